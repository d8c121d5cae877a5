// Package metrics exports cached cluster state as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/cache"
	"github.com/darshan-rambhia/pacemon/internal/cib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pacemon"

var (
	clusterStatuses = []cib.Status{
		cib.StatusOK, cib.StatusMaintenance, cib.StatusErrors, cib.StatusNoStonith, cib.StatusOffline,
	}
	nodeStates = []cib.NodeState{
		cib.NodeOnline, cib.NodeStandby, cib.NodeOffline, cib.NodeUnclean, cib.NodePending, cib.NodeUnknown,
	}
	severities = []cib.Severity{cib.SeverityInfo, cib.SeverityWarning, cib.SeverityDanger}
)

var (
	clusterStatusDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cluster", "status"),
		"Current cluster status, 1 for the active status and 0 for the others.",
		[]string{"cluster", "status"}, nil,
	)
	clusterResourcesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cluster", "resource_instances"),
		"Number of resource instances after clone reconciliation.",
		[]string{"cluster"}, nil,
	)
	diagnosticsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cluster", "diagnostics"),
		"Diagnostics raised while building the snapshot, by severity.",
		[]string{"cluster", "severity"}, nil,
	)
	nodeStateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "node", "state"),
		"Current node state, 1 for the active state and 0 for the others.",
		[]string{"cluster", "node", "state"}, nil,
	)
	resourceStateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "resource", "state"),
		"Rolled-up resource state. Only the active state is exported.",
		[]string{"cluster", "resource", "kind", "state"}, nil,
	)
	failedOpsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "resource", "failed_operations"),
		"Failed operations recorded for a primitive, excluding ignored ones.",
		[]string{"cluster", "resource"}, nil,
	)
	ticketGrantedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "ticket", "granted"),
		"Whether a geo-cluster ticket is granted to this site.",
		[]string{"cluster", "ticket"}, nil,
	)
	lastPollDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "collector", "last_poll_timestamp_seconds"),
		"Unix time of the collector's last completed poll.",
		[]string{"collector"}, nil,
	)
)

// Exporter reads the cache on every scrape and records poll timings as
// they happen.
type Exporter struct {
	cache        *cache.Cache
	registry     *prometheus.Registry
	pollDuration *prometheus.HistogramVec
	pollFailures *prometheus.CounterVec
}

// New creates an exporter over c with its own registry, which also carries
// the Go runtime and process collectors.
func New(c *cache.Cache) *Exporter {
	e := &Exporter{
		cache:    c,
		registry: prometheus.NewRegistry(),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "duration_seconds",
			Help:      "Duration of a full cluster poll.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"cluster"}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "failures_total",
			Help:      "Polls that produced an offline snapshot.",
		}, []string{"cluster"}),
	}
	e.registry.MustRegister(
		e,
		e.pollDuration,
		e.pollFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return e
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ObservePoll records one completed poll of cluster.
func (e *Exporter) ObservePoll(cluster string, d time.Duration, err error) {
	e.pollDuration.WithLabelValues(cluster).Observe(d.Seconds())
	if err != nil {
		e.pollFailures.WithLabelValues(cluster).Inc()
	}
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- clusterStatusDesc
	ch <- clusterResourcesDesc
	ch <- diagnosticsDesc
	ch <- nodeStateDesc
	ch <- resourceStateDesc
	ch <- failedOpsDesc
	ch <- ticketGrantedDesc
	ch <- lastPollDesc
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	snap := e.cache.Snapshot()

	for name, s := range snap.Clusters {
		collectCluster(ch, name, s)
	}
	for id, t := range snap.LastPoll {
		ch <- prometheus.MustNewConstMetric(lastPollDesc, prometheus.GaugeValue, float64(t.Unix()), id)
	}
}

func collectCluster(ch chan<- prometheus.Metric, name string, s *cib.Snapshot) {
	for _, st := range clusterStatuses {
		ch <- prometheus.MustNewConstMetric(clusterStatusDesc, prometheus.GaugeValue, boolValue(s.Meta.Status == st), name, string(st))
	}
	ch <- prometheus.MustNewConstMetric(clusterResourcesDesc, prometheus.GaugeValue, float64(s.ResourceCount), name)

	counts := make(map[cib.Severity]int, len(severities))
	for _, d := range s.Diagnostics {
		counts[d.Severity]++
	}
	for _, sev := range severities {
		ch <- prometheus.MustNewConstMetric(diagnosticsDesc, prometheus.GaugeValue, float64(counts[sev]), name, string(sev))
	}

	for _, n := range s.Nodes {
		for _, st := range nodeStates {
			ch <- prometheus.MustNewConstMetric(nodeStateDesc, prometheus.GaugeValue, boolValue(n.State == st), name, n.Uname, string(st))
		}
	}

	for id, r := range s.ResourcesByID {
		ch <- prometheus.MustNewConstMetric(resourceStateDesc, prometheus.GaugeValue, 1, name, id, string(r.Kind), string(r.State))
		if r.IsContainer() {
			continue
		}
		failed := 0
		for _, inst := range r.Instances {
			for _, op := range inst.FailedOps {
				if !op.Ignored {
					failed++
				}
			}
		}
		ch <- prometheus.MustNewConstMetric(failedOpsDesc, prometheus.GaugeValue, float64(failed), name, id)
	}

	for id, t := range s.Tickets {
		ch <- prometheus.MustNewConstMetric(ticketGrantedDesc, prometheus.GaugeValue, boolValue(t.Granted), name, id)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

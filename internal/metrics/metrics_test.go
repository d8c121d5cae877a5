package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/cache"
	"github.com/darshan-rambhia/pacemon/internal/cib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *cib.Snapshot {
	vip := &cib.Resource{
		ID: "vip", Kind: cib.KindPrimitive, State: cib.StateFailed,
		Instances: map[cib.InstanceKey]*cib.Instance{
			cib.DefaultKey: {FailedOps: []cib.FailedOp{
				{Node: "node1", Op: "monitor", RC: 7},
				{Node: "node1", Op: "stop", RC: 1, Ignored: true},
			}},
		},
	}
	group := &cib.Resource{ID: "g-web", Kind: cib.KindGroup, State: cib.StateStarted}
	return &cib.Snapshot{
		Meta: cib.Meta{Status: cib.StatusErrors},
		Nodes: []*cib.Node{
			{Uname: "node1", State: cib.NodeOnline},
			{Uname: "node2", State: cib.NodeUnclean},
		},
		Resources:     []*cib.Resource{vip, group},
		ResourcesByID: map[string]*cib.Resource{"vip": vip, "g-web": group},
		ResourceCount: 1,
		Tickets: map[string]*cib.Ticket{
			"ticketA": {Granted: true},
			"ticketB": {Granted: false},
		},
		Diagnostics: []cib.Diagnostic{
			{Kind: cib.KindOpFailed, Severity: cib.SeverityDanger},
			{Kind: cib.KindNodeUnclean, Severity: cib.SeverityDanger},
			{Kind: cib.KindOrphanedHistory, Severity: cib.SeverityInfo},
		},
	}
}

func scrape(t *testing.T, e *Exporter) string {
	t.Helper()
	w := httptest.NewRecorder()
	e.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestExporter_ClusterMetrics(t *testing.T) {
	c := cache.New()
	c.UpdateCluster("prod", testSnapshot(), nil)
	c.SetLastPoll("cib:prod", time.Unix(1700000000, 0))

	out := scrape(t, New(c))

	expected := []string{
		"# TYPE pacemon_cluster_status gauge",
		`pacemon_cluster_status{cluster="prod",status="errors"} 1`,
		`pacemon_cluster_status{cluster="prod",status="ok"} 0`,
		`pacemon_cluster_resource_instances{cluster="prod"} 1`,
		`pacemon_cluster_diagnostics{cluster="prod",severity="danger"} 2`,
		`pacemon_cluster_diagnostics{cluster="prod",severity="info"} 1`,
		`pacemon_cluster_diagnostics{cluster="prod",severity="warning"} 0`,
		`pacemon_node_state{cluster="prod",node="node1",state="online"} 1`,
		`pacemon_node_state{cluster="prod",node="node2",state="unclean"} 1`,
		`pacemon_node_state{cluster="prod",node="node2",state="online"} 0`,
		`pacemon_resource_state{cluster="prod",kind="primitive",resource="vip",state="failed"} 1`,
		`pacemon_resource_state{cluster="prod",kind="group",resource="g-web",state="started"} 1`,
		`pacemon_resource_failed_operations{cluster="prod",resource="vip"} 1`,
		`pacemon_ticket_granted{cluster="prod",ticket="ticketA"} 1`,
		`pacemon_ticket_granted{cluster="prod",ticket="ticketB"} 0`,
		`pacemon_collector_last_poll_timestamp_seconds{collector="cib:prod"} 1.7e+09`,
	}
	for _, s := range expected {
		assert.Contains(t, out, s)
	}
	assert.NotContains(t, out, `pacemon_resource_failed_operations{cluster="prod",resource="g-web"}`,
		"containers carry no operations")
	assert.Contains(t, out, "go_goroutines")
}

func TestExporter_Offline(t *testing.T) {
	c := cache.New()
	c.UpdateCluster("dr", cib.Offline(cib.KindNotInstalled, nil), errors.New("missing"))

	out := scrape(t, New(c))
	assert.Contains(t, out, `pacemon_cluster_status{cluster="dr",status="offline"} 1`)
	assert.NotContains(t, out, `pacemon_node_state{cluster="dr"`)
}

func TestExporter_ObservePoll(t *testing.T) {
	e := New(cache.New())
	e.ObservePoll("prod", 200*time.Millisecond, nil)
	e.ObservePoll("prod", 2*time.Second, errors.New("boom"))
	e.ObservePoll("lab", time.Second, nil)

	out := scrape(t, e)
	assert.Contains(t, out, `pacemon_poll_duration_seconds_count{cluster="prod"} 2`)
	assert.Contains(t, out, `pacemon_poll_duration_seconds_bucket{cluster="prod",le="0.25"} 1`)
	assert.Contains(t, out, `pacemon_poll_failures_total{cluster="prod"} 1`)
	assert.NotContains(t, out, `pacemon_poll_failures_total{cluster="lab"}`)
}

func TestExporter_Empty(t *testing.T) {
	out := scrape(t, New(cache.New()))
	assert.NotContains(t, out, "pacemon_cluster_status")
}

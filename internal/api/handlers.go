// Package api provides the HTTP JSON API for pacemon.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/cache"
	"github.com/darshan-rambhia/pacemon/internal/cib"
	"github.com/darshan-rambhia/pacemon/internal/model"
	"github.com/darshan-rambhia/pacemon/internal/store"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/darshan-rambhia/pacemon/docs/swagger"
)

// Server is the HTTP server for pacemon.
type Server struct {
	cache   *cache.Cache
	store   *store.Store
	metrics http.Handler
	mux     *http.ServeMux
	server  *http.Server
}

// NewServer creates a new HTTP server. metrics serves /metrics and may be
// nil to disable the endpoint.
func NewServer(addr string, c *cache.Cache, s *store.Store, metrics http.Handler) *Server {
	srv := &Server{
		cache:   c,
		store:   s,
		metrics: metrics,
		mux:     http.NewServeMux(),
	}

	srv.registerRoutes()

	srv.server = &http.Server{
		Addr:         addr,
		Handler:      SecurityHeadersMiddleware(RecoveryMiddleware(LoggingMiddleware(srv.mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return srv
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("HTTP server starting", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	// Health check
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Cluster views
	s.mux.HandleFunc("GET /api/clusters", s.handleClusters)
	s.mux.HandleFunc("GET /api/clusters/{cluster}", s.handleCluster)
	s.mux.HandleFunc("GET /api/clusters/{cluster}/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/clusters/{cluster}/nodes", s.handleNodes)
	s.mux.HandleFunc("GET /api/clusters/{cluster}/resources/{id}", s.handleResource)
	s.mux.HandleFunc("GET /api/clusters/{cluster}/tickets", s.handleTickets)
	s.mux.HandleFunc("GET /api/clusters/{cluster}/diagnostics", s.handleDiagnostics)
	s.mux.HandleFunc("GET /api/clusters/{cluster}/history", s.handleHistory)

	// Alert log
	s.mux.HandleFunc("GET /api/alerts", s.handleAlerts)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}

	// Swagger UI
	s.mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// writeJSON marshals v to JSON into a buffer first, then writes it to the
// response. This ensures marshalling errors can be returned as a proper 500.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding JSON response", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		// Client disconnected after headers sent; nothing to recover.
		slog.Debug("writing JSON response", "path", r.URL.Path, "error", err)
	}
}

// lookup returns the cached snapshot named by the {cluster} path value,
// answering 404 itself when there is none.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*cib.Snapshot, bool) {
	snap, ok := s.cache.Cluster(r.PathValue("cluster"))
	if !ok {
		http.Error(w, "Cluster not found", http.StatusNotFound)
		return nil, false
	}
	return snap, true
}

// clusterEntry is one row of GET /api/clusters.
type clusterEntry struct {
	Name          string     `json:"name"`
	Source        string     `json:"source,omitempty"`
	Host          string     `json:"host,omitempty"`
	Status        cib.Status `json:"status"`
	Epoch         string     `json:"epoch,omitempty"`
	DC            string     `json:"dc,omitempty"`
	NodesOnline   int        `json:"nodes_online"`
	NodesTotal    int        `json:"nodes_total"`
	ResourceCount int        `json:"resource_count"`
	Errors        int        `json:"errors"`
	LastError     string     `json:"last_error,omitempty"`
}

// statusPending marks a configured cluster that has not been polled yet.
const statusPending cib.Status = "pending"

// @Summary List clusters
// @Description Returns every configured cluster with its latest status
// @Produce json
// @Success 200 {array} clusterEntry
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/clusters [get]
func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Snapshot()

	registered, err := s.store.ListClusters()
	if err != nil {
		slog.Error("listing clusters", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	info := make(map[string]model.ClusterInfo, len(registered))
	for _, c := range registered {
		info[c.Name] = c
	}

	names := slices.Collect(maps.Keys(snap.Clusters))
	for name := range info {
		if _, ok := snap.Clusters[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	out := make([]clusterEntry, 0, len(names))
	for _, name := range names {
		e := clusterEntry{
			Name:      name,
			Source:    info[name].Source,
			Host:      info[name].Host,
			Status:    statusPending,
			LastError: snap.LastError[name],
		}
		if cs, ok := snap.Clusters[name]; ok {
			e.Status = cs.Meta.Status
			e.Epoch = cs.Meta.Epoch
			e.DC = cs.Meta.DC
			e.ResourceCount = cs.ResourceCount
			e.NodesTotal = len(cs.Nodes)
			for _, n := range cs.Nodes {
				if n.State == cib.NodeOnline {
					e.NodesOnline++
				}
			}
			e.Errors = cs.ErrorCount()
		}
		out = append(out, e)
	}

	writeJSON(w, r, out)
}

// @Summary Cluster snapshot
// @Description Returns the full health snapshot of a cluster
// @Produce json
// @Param cluster path string true "Cluster name"
// @Success 200 {object} cib.Snapshot
// @Failure 404 {string} string "Cluster not found"
// @Router /api/clusters/{cluster} [get]
func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, snap)
}

// @Summary Cluster summary
// @Description Returns the compact status view: per-resource node states and state counts
// @Produce json
// @Param cluster path string true "Cluster name"
// @Success 200 {object} cib.Summary
// @Failure 404 {string} string "Cluster not found"
// @Router /api/clusters/{cluster}/summary [get]
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, snap.Summary())
}

// @Summary Cluster nodes
// @Description Returns the cluster's nodes in natural name order
// @Produce json
// @Param cluster path string true "Cluster name"
// @Success 200 {array} cib.Node
// @Failure 404 {string} string "Cluster not found"
// @Router /api/clusters/{cluster}/nodes [get]
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	nodes := snap.Nodes
	if nodes == nil {
		nodes = []*cib.Node{}
	}
	writeJSON(w, r, nodes)
}

// @Summary Resource detail
// @Description Returns one resource by id, including its instances and failed operations
// @Produce json
// @Param cluster path string true "Cluster name"
// @Param id path string true "Resource id"
// @Success 200 {object} cib.Resource
// @Failure 404 {string} string "Not found"
// @Router /api/clusters/{cluster}/resources/{id} [get]
func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	res, ok := snap.Resource(r.PathValue("id"))
	if !ok {
		http.Error(w, "Resource not found", http.StatusNotFound)
		return
	}
	writeJSON(w, r, res)
}

// ticketsResponse is the response body for the tickets endpoint.
type ticketsResponse struct {
	Tickets map[string]*cib.Ticket `json:"tickets"`
	Booth   cib.BoothInfo          `json:"booth"`
}

// @Summary Cluster tickets
// @Description Returns geo-cluster tickets and the booth configuration
// @Produce json
// @Param cluster path string true "Cluster name"
// @Success 200 {object} ticketsResponse
// @Failure 404 {string} string "Cluster not found"
// @Router /api/clusters/{cluster}/tickets [get]
func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	resp := ticketsResponse{Tickets: snap.Tickets, Booth: snap.Booth}
	if resp.Tickets == nil {
		resp.Tickets = map[string]*cib.Ticket{}
	}
	writeJSON(w, r, resp)
}

// @Summary Cluster diagnostics
// @Description Returns the diagnostics raised while building the snapshot
// @Produce json
// @Param cluster path string true "Cluster name"
// @Param severity query string false "Only diagnostics of this severity (info, warning, danger)"
// @Success 200 {array} cib.Diagnostic
// @Failure 400 {string} string "Invalid severity"
// @Failure 404 {string} string "Cluster not found"
// @Router /api/clusters/{cluster}/diagnostics [get]
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sev := cib.Severity(r.URL.Query().Get("severity"))
	switch sev {
	case "", cib.SeverityInfo, cib.SeverityWarning, cib.SeverityDanger:
	default:
		http.Error(w, "Invalid severity", http.StatusBadRequest)
		return
	}

	out := []cib.Diagnostic{}
	for _, d := range snap.Diagnostics {
		if sev == "" || d.Severity == sev {
			out = append(out, d)
		}
	}
	writeJSON(w, r, out)
}

// @Summary Cluster history
// @Description Returns status history, or the state transitions of one node or resource
// @Produce json
// @Param cluster path string true "Cluster name"
// @Param hours query int false "Hours of history (1-168)" default(24)
// @Param node query string false "Node uname"
// @Param resource query string false "Resource id"
// @Success 200 {array} model.StatusPoint
// @Failure 400 {string} string "Only one of node and resource"
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/clusters/{cluster}/history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	cluster := r.PathValue("cluster")
	q := r.URL.Query()
	hours := 24
	if h := q.Get("hours"); h != "" {
		if v, err := strconv.Atoi(h); err == nil && v > 0 && v <= 168 {
			hours = v
		}
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour).Unix()

	node, resource := q.Get("node"), q.Get("resource")
	var (
		out any
		err error
	)
	switch {
	case node != "" && resource != "":
		http.Error(w, "Only one of node and resource", http.StatusBadRequest)
		return
	case node != "":
		out, err = s.store.QueryNodeHistory(cluster, node, since)
	case resource != "":
		out, err = s.store.QueryResourceHistory(cluster, resource, since)
	default:
		out, err = s.store.QueryStatusHistory(cluster, since)
	}
	if err != nil {
		slog.Error("querying history", "cluster", cluster, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, out)
}

// @Summary Recent alerts
// @Description Returns the most recent alerts and resolutions, newest first
// @Produce json
// @Param limit query int false "Maximum rows (1-500)" default(50)
// @Success 200 {array} model.AlertRecord
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/alerts [get]
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	alerts, err := s.store.RecentAlerts(limit)
	if err != nil {
		slog.Error("querying alerts", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, alerts)
}

// @Summary Health check
// @Description Returns service health status and collector poll times
// @Produce json
// @Success 200 {object} map[string]interface{} "Health status"
// @Router /healthz [get]
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Snapshot()
	healthy := len(snap.LastPoll) > 0

	status := "ok"
	if !healthy {
		status = "no_data"
	}

	collectors := make(map[string]string, len(snap.LastPoll))
	for k, v := range snap.LastPoll {
		collectors[k] = fmt.Sprintf("%ds ago", int(time.Since(v).Seconds()))
	}
	clusters := make(map[string]cib.Status, len(snap.Clusters))
	for name, cs := range snap.Clusters {
		clusters[name] = cs.Meta.Status
	}
	writeJSON(w, r, map[string]any{
		"status":     status,
		"timestamp":  time.Now().Unix(),
		"collectors": collectors,
		"clusters":   clusters,
	})
}

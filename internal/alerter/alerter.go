// Package alerter evaluates alert rules against cached cluster snapshots.
package alerter

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/cache"
	"github.com/darshan-rambhia/pacemon/internal/cib"
	"github.com/darshan-rambhia/pacemon/internal/model"
	"github.com/darshan-rambhia/pacemon/internal/notify"
	"github.com/darshan-rambhia/pacemon/internal/store"
)

// AlertConfig holds configuration for alert rules. A nil rule is disabled.
type AlertConfig struct {
	ClusterStatus  *GraceAlert  `yaml:"cluster_status"`
	NodeUnclean    *SimpleAlert `yaml:"node_unclean"`
	NodeOffline    *GraceAlert  `yaml:"node_offline"`
	ResourceFailed *SimpleAlert `yaml:"resource_failed"`
	TicketRevoked  *SimpleAlert `yaml:"ticket_revoked"`
}

// GraceAlert triggers when a condition holds for longer than GracePeriod.
type GraceAlert struct {
	GracePeriod time.Duration `yaml:"grace_period"`
	Severity    string        `yaml:"severity"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// SimpleAlert triggers as soon as its condition is observed.
type SimpleAlert struct {
	Severity string        `yaml:"severity"`
	Cooldown time.Duration `yaml:"cooldown"`
}

// DefaultAlertConfig returns sensible alert defaults.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		ClusterStatus: &GraceAlert{
			GracePeriod: 1 * time.Minute, Severity: "warning", Cooldown: 1 * time.Hour,
		},
		NodeUnclean: &SimpleAlert{
			Severity: "critical", Cooldown: 30 * time.Minute,
		},
		NodeOffline: &GraceAlert{
			GracePeriod: 2 * time.Minute, Severity: "critical", Cooldown: 30 * time.Minute,
		},
		ResourceFailed: &SimpleAlert{
			Severity: "warning", Cooldown: 1 * time.Hour,
		},
		TicketRevoked: &SimpleAlert{
			Severity: "critical", Cooldown: 30 * time.Minute,
		},
	}
}

// Alerter evaluates rules and sends notifications.
type Alerter struct {
	cache     *cache.Cache
	store     *store.Store
	providers []notify.Provider
	config    AlertConfig
	interval  time.Duration

	// Deduplication: maps alert key → last fired time
	lastFired map[string]time.Time

	// Track sustained conditions: maps alert key → first observed time
	sustained map[string]time.Time

	// Alerts that fired and have not yet resolved, by key.
	firing map[string]model.Notification

	// Last observed grant of each ticket, keyed by cluster/ticket.
	granted map[string]bool
}

// NewAlerter creates a new alerter.
func NewAlerter(c *cache.Cache, s *store.Store, providers []notify.Provider, cfg AlertConfig) *Alerter {
	return &Alerter{
		cache:     c,
		store:     s,
		providers: providers,
		config:    cfg,
		interval:  30 * time.Second,
		lastFired: make(map[string]time.Time),
		sustained: make(map[string]time.Time),
		firing:    make(map[string]model.Notification),
		granted:   make(map[string]bool),
	}
}

// Run starts the alerter evaluation loop.
func (a *Alerter) Run(ctx context.Context) error {
	slog.Info("alerter started", "interval", a.interval)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("alerter stopped")
			return ctx.Err()
		case <-ticker.C:
			a.evaluate(ctx)
		}
	}
}

func (a *Alerter) cleanup(now time.Time) {
	const maxAge = 6 * time.Hour
	for key, t := range a.lastFired {
		if _, active := a.firing[key]; !active && now.Sub(t) > maxAge {
			delete(a.lastFired, key)
		}
	}
}

func (a *Alerter) evaluate(ctx context.Context) {
	snap := a.cache.Snapshot()
	now := time.Now()

	a.cleanup(now)

	for _, name := range slices.Sorted(maps.Keys(snap.Clusters)) {
		s := snap.Clusters[name]
		a.checkClusterStatus(ctx, now, name, s)

		// An offline snapshot carries no nodes or resources; leave their
		// alert state alone until the cluster can be read again.
		if s.IsOffline() {
			continue
		}
		a.checkNodes(ctx, now, name, s)
		a.checkResources(ctx, now, name, s)
		a.checkTickets(ctx, now, name, s)
	}
}

func (a *Alerter) checkClusterStatus(ctx context.Context, now time.Time, cluster string, s *cib.Snapshot) {
	cfg := a.config.ClusterStatus
	if cfg == nil {
		return
	}
	key := "cluster_status:" + cluster
	status := s.Meta.Status
	unhealthy := status != cib.StatusOK && status != cib.StatusMaintenance
	a.checkSustained(ctx, now, key, unhealthy, cfg, model.Notification{
		AlertType: "cluster_status",
		Severity:  cfg.Severity,
		Title:     fmt.Sprintf("Cluster %s: %s", cluster, status),
		Message:   statusMessage(cluster, s),
		Cluster:   cluster,
		Subject:   cluster,
		Timestamp: now,
		Metadata: map[string]string{
			"status": string(status),
			"epoch":  s.Meta.Epoch,
			"dc":     s.Meta.DC,
		},
	})
}

func statusMessage(cluster string, s *cib.Snapshot) string {
	switch s.Meta.Status {
	case cib.StatusOffline:
		if len(s.Diagnostics) > 0 {
			return fmt.Sprintf("[%s] Cluster is offline: %s", cluster, s.Diagnostics[0].Kind)
		}
		return fmt.Sprintf("[%s] Cluster is offline", cluster)
	case cib.StatusNoStonith:
		return fmt.Sprintf("[%s] STONITH is disabled", cluster)
	default:
		return fmt.Sprintf("[%s] Cluster reports %d errors", cluster, s.ErrorCount())
	}
}

func (a *Alerter) checkNodes(ctx context.Context, now time.Time, cluster string, s *cib.Snapshot) {
	for _, node := range s.Nodes {
		if cfg := a.config.NodeUnclean; cfg != nil {
			key := fmt.Sprintf("node_unclean:%s/%s", cluster, node.Uname)
			if node.State == cib.NodeUnclean {
				a.fire(ctx, now, key, cfg.Cooldown, model.Notification{
					AlertType: "node_unclean",
					Severity:  cfg.Severity,
					Title:     fmt.Sprintf("Node Unclean: %s", node.Uname),
					Message:   fmt.Sprintf("[%s] Node %s is unclean and will be fenced", cluster, node.Uname),
					Cluster:   cluster,
					Subject:   node.Uname,
					Timestamp: now,
					Metadata:  map[string]string{"node_id": node.ID},
				})
			} else {
				a.resolve(ctx, now, key)
			}
		}

		if cfg := a.config.NodeOffline; cfg != nil {
			key := fmt.Sprintf("node_offline:%s/%s", cluster, node.Uname)
			a.checkSustained(ctx, now, key, node.State == cib.NodeOffline, cfg, model.Notification{
				AlertType: "node_offline",
				Severity:  cfg.Severity,
				Title:     fmt.Sprintf("Node Offline: %s", node.Uname),
				Message:   fmt.Sprintf("[%s] Node %s has been offline for %s+", cluster, node.Uname, cfg.GracePeriod),
				Cluster:   cluster,
				Subject:   node.Uname,
				Timestamp: now,
				Metadata: map[string]string{
					"node_id": node.ID,
					"remote":  fmt.Sprintf("%t", node.Remote),
				},
			})
		}
	}
}

func (a *Alerter) checkResources(ctx context.Context, now time.Time, cluster string, s *cib.Snapshot) {
	cfg := a.config.ResourceFailed
	if cfg == nil {
		return
	}
	for _, r := range primitives(s.Resources) {
		key := fmt.Sprintf("resource_failed:%s/%s", cluster, r.ID)
		if r.State != cib.StateFailed {
			a.resolve(ctx, now, key)
			continue
		}
		var failed []cib.FailedOp
		for _, inst := range r.Instances {
			for _, op := range inst.FailedOps {
				if !op.Ignored {
					failed = append(failed, op)
				}
			}
		}
		msg := fmt.Sprintf("[%s] Resource %s has failed", cluster, r.ID)
		meta := map[string]string{"failed_ops": fmt.Sprintf("%d", len(failed))}
		if len(failed) > 0 {
			op := failed[0]
			msg = fmt.Sprintf("[%s] Resource %s failed %s on %s: %s (rc=%d)",
				cluster, r.ID, op.Op, op.Node, cib.RCName(op.RC), op.RC)
			meta["node"] = op.Node
			meta["exit_reason"] = op.ExitReason
		}
		a.fire(ctx, now, key, cfg.Cooldown, model.Notification{
			AlertType: "resource_failed",
			Severity:  cfg.Severity,
			Title:     fmt.Sprintf("Resource Failed: %s", r.ID),
			Message:   msg,
			Cluster:   cluster,
			Subject:   r.ID,
			Timestamp: now,
			Metadata:  meta,
		})
	}
}

// primitives flattens the resource tree to its primitives at any depth.
func primitives(rs []*cib.Resource) []*cib.Resource {
	var out []*cib.Resource
	for _, r := range rs {
		if r.IsContainer() {
			out = append(out, primitives(r.Children)...)
			continue
		}
		out = append(out, r)
	}
	return out
}

// checkTickets fires when a ticket moves from granted to revoked. A ticket
// that has never been seen granted does not alert.
func (a *Alerter) checkTickets(ctx context.Context, now time.Time, cluster string, s *cib.Snapshot) {
	cfg := a.config.TicketRevoked
	if cfg == nil {
		return
	}
	for _, id := range slices.Sorted(maps.Keys(s.Tickets)) {
		t := s.Tickets[id]
		key := fmt.Sprintf("ticket_revoked:%s/%s", cluster, id)
		was, seen := a.granted[key]
		a.granted[key] = t.Granted

		switch {
		case t.Granted:
			a.resolve(ctx, now, key)
		case seen && was:
			meta := map[string]string{"standby": fmt.Sprintf("%t", t.Standby)}
			if t.Leader != "" {
				meta["leader"] = t.Leader
			}
			a.fire(ctx, now, key, cfg.Cooldown, model.Notification{
				AlertType: "ticket_revoked",
				Severity:  cfg.Severity,
				Title:     fmt.Sprintf("Ticket Revoked: %s", id),
				Message:   fmt.Sprintf("[%s] Ticket %s is no longer granted to this site", cluster, id),
				Cluster:   cluster,
				Subject:   id,
				Timestamp: now,
				Metadata:  meta,
			})
		}
	}
}

func (a *Alerter) checkSustained(ctx context.Context, now time.Time, key string, active bool, cfg *GraceAlert, notif model.Notification) {
	if active {
		if first, ok := a.sustained[key]; ok {
			if now.Sub(first) >= cfg.GracePeriod {
				a.fire(ctx, now, key, cfg.Cooldown, notif)
			}
		} else {
			a.sustained[key] = now
		}
	} else {
		delete(a.sustained, key)
		a.resolve(ctx, now, key)
	}
}

func (a *Alerter) fire(ctx context.Context, now time.Time, key string, cooldown time.Duration, notif model.Notification) {
	if last, ok := a.lastFired[key]; ok && now.Sub(last) < cooldown {
		return // still in cooldown
	}
	a.lastFired[key] = now
	a.firing[key] = notif

	a.deliver(ctx, now, notif)

	slog.Warn("alert fired",
		"type", notif.AlertType,
		"severity", notif.Severity,
		"cluster", notif.Cluster,
		"subject", notif.Subject,
		"title", notif.Title,
	)
}

// resolve sends a resolution for key if an alert for it is outstanding.
func (a *Alerter) resolve(ctx context.Context, now time.Time, key string) {
	notif, ok := a.firing[key]
	if !ok {
		return
	}
	delete(a.firing, key)
	delete(a.lastFired, key)

	notif.Resolved = true
	notif.Severity = "info"
	notif.Timestamp = now
	notif.Message = fmt.Sprintf("[%s] %s has recovered", notif.Cluster, notif.Subject)
	a.deliver(ctx, now, notif)

	slog.Info("alert resolved",
		"type", notif.AlertType,
		"cluster", notif.Cluster,
		"subject", notif.Subject,
	)
}

func (a *Alerter) deliver(ctx context.Context, now time.Time, notif model.Notification) {
	if err := a.store.InsertAlert(now.Unix(), notif.AlertType, notif.Cluster, notif.Subject, notif.Message, notif.Severity); err != nil {
		slog.Error("storing alert", "type", notif.AlertType, "error", err)
	}
	if err := notify.Broadcast(ctx, a.providers, notif); err != nil {
		slog.Error("sending notification", "alert", notif.AlertType, "error", err)
	}
}

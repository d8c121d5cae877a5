package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetentionConfig defines how long to keep rows in each table. Zero keeps
// rows forever.
type RetentionConfig struct {
	StatusHistory  time.Duration // per-poll rows, default 72h
	NodeStates     time.Duration // superseded node transitions, default 7d
	ResourceStates time.Duration // superseded resource transitions, default 7d
	AlertLog       time.Duration // default 30d
}

// DefaultRetention returns the default retention periods.
func DefaultRetention() RetentionConfig {
	return RetentionConfig{
		StatusHistory:  72 * time.Hour,
		NodeStates:     7 * 24 * time.Hour,
		ResourceStates: 7 * 24 * time.Hour,
		AlertLog:       30 * 24 * time.Hour,
	}
}

// Pruner periodically trims history so the database stays bounded.
type Pruner struct {
	store     *Store
	retention RetentionConfig
	interval  time.Duration
}

// NewPruner creates a pruner with the given retention config.
func NewPruner(store *Store, retention RetentionConfig) *Pruner {
	return &Pruner{
		store:     store,
		retention: retention,
		interval:  1 * time.Hour,
	}
}

// Run starts the pruner loop. It blocks until the context is cancelled.
func (p *Pruner) Run(ctx context.Context) error {
	slog.Info("pruner started", "interval", p.interval)
	p.prune()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pruner stopped")
			return ctx.Err()
		case <-ticker.C:
			p.prune()
		}
	}
}

// pruneTarget is a table with a retention period. Tables with a subject
// column hold state transitions: the newest row per subject is the current
// state and is never pruned, however old.
type pruneTarget struct {
	table     string
	subject   string
	retention time.Duration
}

func (t pruneTarget) query() string {
	if t.subject == "" {
		return fmt.Sprintf("DELETE FROM %s WHERE ts < ?", t.table)
	}
	return fmt.Sprintf(`DELETE FROM %[1]s WHERE ts < ? AND ts < (
		SELECT MAX(l.ts) FROM %[1]s l
		WHERE l.cluster = %[1]s.cluster AND l.%[2]s = %[1]s.%[2]s
	)`, t.table, t.subject)
}

func (p *Pruner) prune() {
	now := time.Now().Unix()
	targets := []pruneTarget{
		{table: "status_history", retention: p.retention.StatusHistory},
		{table: "node_states", subject: "node", retention: p.retention.NodeStates},
		{table: "resource_states", subject: "resource", retention: p.retention.ResourceStates},
		{table: "alert_log", retention: p.retention.AlertLog},
	}

	for _, t := range targets {
		if t.retention <= 0 {
			continue
		}
		cutoff := now - int64(t.retention.Seconds())
		result, err := p.store.db.Exec(t.query(), cutoff)
		if err != nil {
			slog.Error("pruning failed", "table", t.table, "error", err)
			continue
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			slog.Info("pruned old rows", "table", t.table, "rows", rows)
		}
	}
}

// Package store provides SQLite persistence for pacemon's status history and
// alert log.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/cib"
	"github.com/darshan-rambhia/pacemon/internal/model"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database for pacemon data persistence.
type Store struct {
	db *sql.DB
}

// New opens or creates a SQLite database at the given path and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertCluster inserts or updates a cluster record.
func (s *Store) UpsertCluster(name, source, host string) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT INTO clusters (name, source, host, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			source = excluded.source,
			host = excluded.host,
			last_seen = excluded.last_seen`,
		name, source, host, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting cluster %s: %w", name, err)
	}
	return nil
}

// ListClusters returns all registered clusters ordered by name.
func (s *Store) ListClusters() ([]model.ClusterInfo, error) {
	rows, err := s.db.Query(`SELECT name, source, COALESCE(host, ''), first_seen, last_seen FROM clusters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing clusters: %w", err)
	}
	defer rows.Close()

	var out []model.ClusterInfo
	for rows.Next() {
		var c model.ClusterInfo
		if err := rows.Scan(&c.Name, &c.Source, &c.Host, &c.FirstSeen, &c.LastSeen); err != nil {
			return nil, fmt.Errorf("scanning cluster: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordSnapshot writes one status row for the poll and a state row for
// every node and resource whose state differs from the last one recorded.
func (s *Store) RecordSnapshot(ts int64, cluster string, snap *cib.Snapshot) error {
	point := statusPoint(ts, cluster, snap)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO status_history
		(ts, cluster, status, epoch, dc, resource_count, nodes_online, nodes_total, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		point.Timestamp, point.Cluster, point.Status, point.Epoch, point.DC,
		point.ResourceCount, point.NodesOnline, point.NodesTotal, point.Errors,
	)
	if err != nil {
		return fmt.Errorf("inserting status: %w", err)
	}

	nodes := make(map[string]string, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes[n.Uname] = string(n.State)
	}
	if err := recordTransitions(tx, "node_states", "node", ts, cluster, nodes); err != nil {
		return err
	}

	resources := make(map[string]string, len(snap.ResourcesByID))
	for id, r := range snap.ResourcesByID {
		resources[id] = string(r.State)
	}
	if err := recordTransitions(tx, "resource_states", "resource", ts, cluster, resources); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func statusPoint(ts int64, cluster string, snap *cib.Snapshot) model.StatusPoint {
	p := model.StatusPoint{
		Timestamp:     ts,
		Cluster:       cluster,
		Status:        string(snap.Meta.Status),
		Epoch:         snap.Meta.Epoch,
		DC:            snap.Meta.DC,
		ResourceCount: snap.ResourceCount,
		NodesTotal:    len(snap.Nodes),
	}
	for _, n := range snap.Nodes {
		if n.State == cib.NodeOnline {
			p.NodesOnline++
		}
	}
	p.Errors = snap.ErrorCount()
	return p
}

// recordTransitions inserts rows for subjects whose state changed. table and
// col are fixed identifiers, never user input.
func recordTransitions(tx *sql.Tx, table, col string, ts int64, cluster string, states map[string]string) error {
	last := make(map[string]string)
	rows, err := tx.Query(fmt.Sprintf(`
		SELECT t.%[2]s, t.state FROM %[1]s t
		WHERE t.cluster = ? AND t.ts = (
			SELECT MAX(ts) FROM %[1]s WHERE cluster = t.cluster AND %[2]s = t.%[2]s
		)`, table, col), cluster)
	if err != nil {
		return fmt.Errorf("querying last %s: %w", table, err)
	}
	for rows.Next() {
		var subject, state string
		if err := rows.Scan(&subject, &state); err != nil {
			rows.Close()
			return fmt.Errorf("scanning last %s: %w", table, err)
		}
		last[subject] = state
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading last %s: %w", table, err)
	}

	stmt, err := tx.Prepare(fmt.Sprintf(
		`INSERT OR REPLACE INTO %s (ts, cluster, %s, state) VALUES (?, ?, ?, ?)`, table, col))
	if err != nil {
		return fmt.Errorf("preparing %s insert: %w", table, err)
	}
	defer stmt.Close()

	for subject, state := range states {
		if prev, ok := last[subject]; ok && prev == state {
			continue
		}
		if _, err := stmt.Exec(ts, cluster, subject, state); err != nil {
			return fmt.Errorf("inserting %s %s: %w", table, subject, err)
		}
	}
	return nil
}

// QueryStatusHistory returns the per-poll status of a cluster since the
// given time, oldest first.
func (s *Store) QueryStatusHistory(cluster string, since int64) ([]model.StatusPoint, error) {
	rows, err := s.db.Query(`
		SELECT ts, cluster, status, epoch, dc, resource_count, nodes_online, nodes_total, errors
		FROM status_history
		WHERE cluster = ? AND ts >= ?
		ORDER BY ts ASC`, cluster, since)
	if err != nil {
		return nil, fmt.Errorf("querying status history: %w", err)
	}
	defer rows.Close()

	points := make([]model.StatusPoint, 0)
	for rows.Next() {
		var p model.StatusPoint
		if err := rows.Scan(&p.Timestamp, &p.Cluster, &p.Status, &p.Epoch, &p.DC,
			&p.ResourceCount, &p.NodesOnline, &p.NodesTotal, &p.Errors); err != nil {
			return nil, fmt.Errorf("scanning status point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// QueryNodeHistory returns the state transitions of one node.
func (s *Store) QueryNodeHistory(cluster, node string, since int64) ([]model.StateChange, error) {
	return s.queryTransitions("node_states", "node", cluster, node, since)
}

// QueryResourceHistory returns the state transitions of one resource.
func (s *Store) QueryResourceHistory(cluster, resource string, since int64) ([]model.StateChange, error) {
	return s.queryTransitions("resource_states", "resource", cluster, resource, since)
}

func (s *Store) queryTransitions(table, col, cluster, subject string, since int64) ([]model.StateChange, error) {
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT ts, cluster, %[2]s, state FROM %[1]s
		WHERE cluster = ? AND %[2]s = ? AND ts >= ?
		ORDER BY ts ASC`, table, col), cluster, subject, since)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	changes := make([]model.StateChange, 0)
	for rows.Next() {
		var c model.StateChange
		if err := rows.Scan(&c.Timestamp, &c.Cluster, &c.Subject, &c.State); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// InsertAlert logs an alert.
func (s *Store) InsertAlert(ts int64, alertType, cluster, subject, message, severity string) error {
	_, err := s.db.Exec(`
		INSERT INTO alert_log (ts, alert_type, cluster, subject, message, severity)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ts, alertType, cluster, subject, message, severity,
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (s *Store) RecentAlerts(limit int) ([]model.AlertRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, ts, alert_type, COALESCE(cluster, ''), subject, message, severity
		FROM alert_log
		ORDER BY ts DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]model.AlertRecord, 0)
	for rows.Next() {
		var a model.AlertRecord
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.AlertType, &a.Cluster, &a.Subject, &a.Message, &a.Severity); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

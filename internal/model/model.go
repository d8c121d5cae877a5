// Package model defines the shared record types exchanged between the
// store, alerter and API.
package model

import "time"

// ClusterInfo is a registered cluster from config.
type ClusterInfo struct {
	Name      string `json:"name"`
	Source    string `json:"source"` // "local", "ssh", "file"
	Host      string `json:"host"`
	FirstSeen int64  `json:"first_seen"`
	LastSeen  int64  `json:"last_seen"`
}

// StatusPoint is one poll's cluster-level outcome.
type StatusPoint struct {
	Timestamp     int64  `json:"ts"`
	Cluster       string `json:"cluster"`
	Status        string `json:"status"` // "ok", "maintenance", "errors", "nostonith", "offline"
	Epoch         string `json:"epoch"`
	DC            string `json:"dc"`
	ResourceCount int    `json:"resource_count"`
	NodesOnline   int    `json:"nodes_online"`
	NodesTotal    int    `json:"nodes_total"`
	Errors        int    `json:"errors"` // diagnostics counted as errors
}

// StateChange records a node or resource entering a state.
type StateChange struct {
	Timestamp int64  `json:"ts"`
	Cluster   string `json:"cluster"`
	Subject   string `json:"subject"` // node uname or resource id
	State     string `json:"state"`
}

// AlertRecord is a row of the alert log.
type AlertRecord struct {
	ID        int64  `json:"id"`
	Timestamp int64  `json:"ts"`
	AlertType string `json:"alert_type"`
	Cluster   string `json:"cluster"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
}

// Notification represents a structured alert message.
type Notification struct {
	AlertType string            `json:"alert_type"`
	Severity  string            `json:"severity"` // "info", "warning", "critical"
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Cluster   string            `json:"cluster"`
	Subject   string            `json:"subject"`
	Timestamp time.Time         `json:"timestamp"`
	Resolved  bool              `json:"resolved"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

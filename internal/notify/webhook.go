package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/model"
)

// Webhook events.
const (
	EventFiring   = "firing"
	EventResolved = "resolved"
)

// WebhookPayload is the JSON body posted for every alert. Version changes
// only on incompatible field changes.
type WebhookPayload struct {
	Version   int               `json:"version"`
	Event     string            `json:"event"`
	Alert     string            `json:"alert"`
	Severity  string            `json:"severity"`
	Cluster   string            `json:"cluster"`
	Subject   WebhookSubject    `json:"subject"`
	Summary   string            `json:"summary"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Status    string            `json:"cluster_status,omitempty"`
	Epoch     string            `json:"epoch,omitempty"`
	DC        string            `json:"dc,omitempty"`
	Node      string            `json:"node,omitempty"`
	Reason    string            `json:"exit_reason,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// WebhookSubject names what an alert is about.
type WebhookSubject struct {
	Kind string `json:"kind"` // "cluster", "node", "resource" or "ticket"
	ID   string `json:"id"`
}

// payloadVersion is the current WebhookPayload.Version.
const payloadVersion = 1

// promoted metadata keys have dedicated payload fields.
var promoted = []string{"status", "epoch", "dc", "node", "exit_reason"}

// NewWebhookPayload converts a notification into the webhook body.
func NewWebhookPayload(n model.Notification) WebhookPayload {
	p := WebhookPayload{
		Version:   payloadVersion,
		Event:     EventFiring,
		Alert:     n.AlertType,
		Severity:  n.Severity,
		Cluster:   n.Cluster,
		Subject:   WebhookSubject{Kind: subjectKind(n.AlertType), ID: n.Subject},
		Summary:   title(n),
		Message:   n.Message,
		Timestamp: n.Timestamp.UTC(),
		Status:    n.Metadata["status"],
		Epoch:     n.Metadata["epoch"],
		DC:        n.Metadata["dc"],
		Node:      n.Metadata["node"],
		Reason:    n.Metadata["exit_reason"],
	}
	if n.Resolved {
		p.Event = EventResolved
	}
	labels := maps.Clone(n.Metadata)
	for _, k := range promoted {
		delete(labels, k)
	}
	if len(labels) > 0 {
		p.Labels = labels
	}
	return p
}

// subjectKind derives the subject kind from the alert type prefix.
func subjectKind(alertType string) string {
	prefix, _, _ := strings.Cut(alertType, "_")
	switch prefix {
	case "node", "resource", "ticket":
		return prefix
	default:
		return "cluster"
	}
}

// WebhookProvider posts WebhookPayload bodies to an HTTP endpoint.
type WebhookProvider struct {
	url     string
	method  string
	headers map[string]string
	client  *http.Client
}

// NewWebhook creates a webhook provider. method defaults to POST.
func NewWebhook(url, method string, headers map[string]string) *WebhookProvider {
	if method == "" {
		method = http.MethodPost
	}
	return &WebhookProvider{
		url:     url,
		method:  method,
		headers: headers,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookProvider) Name() string { return "webhook" }

func (w *WebhookProvider) Send(ctx context.Context, n model.Notification) error {
	payload := NewWebhookPayload(n)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, w.method, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pacemon-Event", payload.Event)
	req.Header.Set("X-Pacemon-Alert", payload.Alert)
	if payload.Cluster != "" {
		req.Header.Set("X-Pacemon-Cluster", payload.Cluster)
	}
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: %s returned %d", payload.Alert, resp.StatusCode)
	}
	return nil
}

package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNtfyName(t *testing.T) {
	p := NewNtfy("http://localhost", "alerts")
	assert.Equal(t, "ntfy", p.Name())
}

func TestNtfySendCritical(t *testing.T) {
	var gotReq *http.Request
	var gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewNtfy(srv.URL, "test-alerts")
	notif := model.Notification{
		AlertType: "node_unclean",
		Severity:  "critical",
		Title:     "Node unclean",
		Message:   "Node node2 is unclean and will be fenced",
		Cluster:   "prod",
		Subject:   "node2",
		Timestamp: time.Now(),
	}

	err := p.Send(context.Background(), notif)
	require.NoError(t, err)

	assert.Equal(t, "/test-alerts", gotReq.URL.Path)
	assert.Equal(t, "[prod] Node unclean", gotReq.Header.Get("Title"))
	assert.Equal(t, "5", gotReq.Header.Get("Priority"))
	assert.Equal(t, "rotating_light,node_unclean,cluster-prod", gotReq.Header.Get("Tags"))
	assert.Equal(t, "Node node2 is unclean and will be fenced", gotBody)
}

func TestNtfySendWarning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.Header.Get("Priority"))
		assert.Contains(t, r.Header.Get("Tags"), "warning")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewNtfy(srv.URL, "alerts")
	err := p.Send(context.Background(), model.Notification{
		Severity: "warning",
		Title:    "Resource failed",
		Message:  "vip failed on node1",
	})
	require.NoError(t, err)
}

func TestNtfySendInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.Header.Get("Priority"))
		assert.Contains(t, r.Header.Get("Tags"), "information_source")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewNtfy(srv.URL, "alerts")
	err := p.Send(context.Background(), model.Notification{
		Severity: "info",
		Title:    "Maintenance",
		Message:  "Cluster entered maintenance mode",
	})
	require.NoError(t, err)
}

func TestNtfySendResolved(t *testing.T) {
	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewNtfy(srv.URL, "alerts")
	err := p.Send(context.Background(), model.Notification{
		AlertType: "node_offline",
		Severity:  "critical",
		Title:     "Node offline",
		Message:   "node2 is back online",
		Cluster:   "prod",
		Resolved:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Resolved: [prod] Node offline", gotReq.Header.Get("Title"))
	assert.Equal(t, "2", gotReq.Header.Get("Priority"), "resolution is low priority whatever the severity")
	assert.Equal(t, "white_check_mark,node_offline,cluster-prod", gotReq.Header.Get("Tags"))
}

func TestSeverityToNtfyPriority_UnknownSeverity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.Header.Get("Priority"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewNtfy(srv.URL, "alerts")
	err := p.Send(context.Background(), model.Notification{
		Severity: "unknown-severity",
		Title:    "Test",
		Message:  "Test unknown severity",
	})
	require.NoError(t, err)
}

func TestNtfySendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewNtfy(srv.URL, "alerts")
	err := p.Send(context.Background(), model.Notification{
		Severity: "info",
		Title:    "Test",
		Message:  "Test",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNtfySendCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewNtfy(srv.URL, "alerts")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Send(ctx, model.Notification{
		Severity: "info",
		Title:    "Test",
		Message:  "Test cancelled",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ntfy: send:")
}

func TestNtfySendBadURL(t *testing.T) {
	p := NewNtfy("://invalid", "alerts")
	err := p.Send(context.Background(), model.Notification{
		Severity: "info",
		Title:    "Test",
		Message:  "bad url",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ntfy:")
}

func TestNtfyTrailingSlash(t *testing.T) {
	p := NewNtfy("http://example.com/", "alerts")
	assert.Equal(t, "http://example.com", p.url)
}

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/config"
	"github.com/darshan-rambhia/pacemon/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInfo_Defaults(t *testing.T) {
	ver, sha, built, dirty := buildInfo()
	assert.Equal(t, "dev", ver)
	assert.NotEmpty(t, sha)
	assert.NotEmpty(t, built)
	assert.Contains(t, []string{"clean", "dirty"}, dirty)
}

func TestLogHandler(t *testing.T) {
	ctx := context.Background()

	h := logHandler("debug", "json")
	assert.IsType(t, &slog.JSONHandler{}, h)
	assert.True(t, h.Enabled(ctx, slog.LevelDebug))

	h = logHandler("warn", "text")
	assert.IsType(t, &slog.TextHandler{}, h)
	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))

	h = logHandler("bogus", "")
	assert.True(t, h.Enabled(ctx, slog.LevelInfo))
	assert.False(t, h.Enabled(ctx, slog.LevelDebug))
}

func TestNewSource_File(t *testing.T) {
	dir := t.TempDir()
	cibPath := filepath.Join(dir, "cib.xml")
	require.NoError(t, os.WriteFile(cibPath, []byte("<cib/>"), 0o600))

	src, host, err := newSource(config.ClusterConfig{Name: "lab", Source: config.SourceFile, CIBFile: cibPath})
	require.NoError(t, err)
	assert.Empty(t, host)
	assert.IsType(t, &source.FileSource{}, src)

	data, err := src.FetchCIB(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<cib/>", string(data))
}

func TestNewSource_Local(t *testing.T) {
	src, host, err := newSource(config.ClusterConfig{Name: "local", Source: config.SourceLocal})
	require.NoError(t, err)
	assert.IsType(t, &source.CommandSource{}, src)
	assert.Equal(t, src.Host(), host)
}

func TestNewSource_SSHWithoutSettings(t *testing.T) {
	_, _, err := newSource(config.ClusterConfig{Name: "prod", Source: config.SourceSSH})
	assert.Error(t, err)
}

func TestNewSource_SSHBadKey(t *testing.T) {
	_, _, err := newSource(config.ClusterConfig{
		Name:   "prod",
		Source: config.SourceSSH,
		SSH:    &config.SSHConfig{Host: "10.0.0.11", User: "hacluster", KeyPath: "/nonexistent/id_ed25519"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssh runner")
}

func TestAlertConfig_Defaults(t *testing.T) {
	cfg := alertConfig(config.AlertsConfig{})
	assert.Equal(t, time.Minute, cfg.ClusterStatus.GracePeriod)
	assert.Equal(t, "critical", cfg.NodeUnclean.Severity)
	assert.Equal(t, 2*time.Minute, cfg.NodeOffline.GracePeriod)
}

func TestAlertConfig_Overrides(t *testing.T) {
	cfg := alertConfig(config.AlertsConfig{
		ClusterStatus:  &config.AlertClusterStatus{GracePeriod: config.Duration{Duration: 5 * time.Minute}, Severity: "critical"},
		NodeUnclean:    &config.AlertNodeUnclean{Severity: "warning"},
		NodeOffline:    &config.AlertNodeOffline{GracePeriod: config.Duration{Duration: 10 * time.Minute}},
		ResourceFailed: &config.AlertResourceFailed{Severity: "critical"},
		TicketRevoked:  &config.AlertTicketRevoked{Severity: "warning"},
	})
	assert.Equal(t, 5*time.Minute, cfg.ClusterStatus.GracePeriod)
	assert.Equal(t, "critical", cfg.ClusterStatus.Severity)
	assert.Equal(t, "warning", cfg.NodeUnclean.Severity)
	assert.Equal(t, 10*time.Minute, cfg.NodeOffline.GracePeriod)
	assert.Equal(t, "critical", cfg.NodeOffline.Severity, "unset severity keeps the default")
	assert.Equal(t, "critical", cfg.ResourceFailed.Severity)
	assert.Equal(t, "warning", cfg.TicketRevoked.Severity)
}

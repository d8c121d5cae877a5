package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/alerter"
	"github.com/darshan-rambhia/pacemon/internal/api"
	"github.com/darshan-rambhia/pacemon/internal/cache"
	"github.com/darshan-rambhia/pacemon/internal/collector"
	"github.com/darshan-rambhia/pacemon/internal/config"
	"github.com/darshan-rambhia/pacemon/internal/metrics"
	"github.com/darshan-rambhia/pacemon/internal/notify"
	"github.com/darshan-rambhia/pacemon/internal/source"
	"github.com/darshan-rambhia/pacemon/internal/store"
	"golang.org/x/sync/errgroup"
)

// @title pacemon API
// @version 1.0
// @description Pacemaker cluster health monitor. Cluster snapshots, state history and alerts.
// @host localhost:3900
// @BasePath /

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// buildInfo returns version, commit, build time, and VCS details from the
// embedded Go build info. ldflags-injected values take priority; VCS info
// from debug.ReadBuildInfo fills in anything left as default.
func buildInfo() (ver, sha, built, dirty string) {
	ver = version
	sha = commit
	built = buildTime
	dirty = "clean"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if sha == "none" {
				sha = s.Value
			}
		case "vcs.time":
			if built == "unknown" {
				built = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "dirty"
			}
		}
	}

	return
}

func main() {
	configPath := flag.String("config", "", "path to pacemon.yml config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	ver, sha, built, dirty := buildInfo()

	if *showVersion {
		fmt.Printf("pacemon %s\n  commit:    %s (%s)\n  built:     %s\n  go:        %s\n  platform:  %s/%s\n",
			ver, sha, dirty, built, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigFileNotFound) {
			fmt.Fprintf(os.Stderr, "error: %s\n\n", err)
			fmt.Fprintf(os.Stderr, "Copy the example config to get started:\n")
			fmt.Fprintf(os.Stderr, "  cp pacemon.example.yml %s\n\n", *configPath)
			fmt.Fprintf(os.Stderr, "Without -config, the local cluster is monitored using PACEMON_* environment variables.\n")
		} else {
			fmt.Fprintf(os.Stderr, "error: loading config (%s): %s\n", *configPath, err)
		}
		os.Exit(1)
	}

	slog.SetDefault(slog.New(logHandler(cfg.LogLevel, cfg.LogFormat)))

	slog.Info("starting pacemon",
		"version", ver,
		"commit", sha,
		"built", built,
		"dirty", dirty,
		"go", runtime.Version(),
		"listen", cfg.Listen,
	)

	// Initialize store
	st, err := store.New(cfg.DBPath)
	if err != nil {
		slog.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Initialize cache, metrics and worker pool
	c := cache.New()
	exporter := metrics.New(c)
	pool := collector.NewWorkerPool(cfg.WorkerPoolSize)

	// Setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Start one collector per cluster
	started := 0
	for _, cc := range cfg.Clusters {
		src, host, err := newSource(cc)
		if err != nil {
			slog.Error("creating cluster source", "cluster", cc.Name, "source", cc.Source, "error", err)
			continue
		}

		if err := st.UpsertCluster(cc.Name, cc.Source, host); err != nil {
			slog.Error("registering cluster", "cluster", cc.Name, "error", err)
		}

		coll := collector.NewCIBCollector(collector.CIBConfig{
			Name:         cc.Name,
			PollInterval: cc.PollInterval.Duration,
		}, src, pool, c, st, exporter)
		g.Go(func() error { return collector.Run(ctx, coll) })
		started++
	}

	// Start pruner
	retention := store.DefaultRetention()
	retention.StatusHistory = time.Duration(cfg.HistoryHours) * time.Hour
	pruner := store.NewPruner(st, retention)
	g.Go(func() error { return pruner.Run(ctx) })

	// Build notification providers
	var providers []notify.Provider
	for _, ncfg := range cfg.Notifications {
		switch ncfg.Type {
		case "ntfy":
			providers = append(providers, notify.NewNtfy(ncfg.URL, ncfg.Topic))
		case "webhook":
			providers = append(providers, notify.NewWebhook(ncfg.URL, ncfg.Method, ncfg.Headers))
		}
	}

	// Start alerter
	a := alerter.NewAlerter(c, st, providers, alertConfig(cfg.Alerts))
	g.Go(func() error { return a.Run(ctx) })

	// Start HTTP server
	server := api.NewServer(cfg.Listen, c, st, exporter.Handler())
	g.Go(func() error { return server.Run(ctx) })

	slog.Info("all components started",
		"clusters", started,
		"notifications", len(providers),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal error", "error", err)
	}

	slog.Info("pacemon stopped gracefully")
}

// logHandler builds the slog handler selected by the log level and format.
func logHandler(level, format string) slog.Handler {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "json" {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

// newSource builds the CIB source for one cluster and reports the host it
// reads from.
func newSource(cc config.ClusterConfig) (source.Source, string, error) {
	timeout := cc.CommandTimeout.Duration
	switch cc.Source {
	case config.SourceFile:
		return source.NewFileSource(cc.CIBFile, cc.BoothConfig), "", nil
	case config.SourceSSH:
		if cc.SSH == nil {
			return nil, "", errors.New("ssh source without ssh settings")
		}
		runner, err := source.NewSSHRunner(source.SSHConfig{
			Addr:           cc.SSH.Addr(),
			User:           cc.SSH.User,
			KeyPath:        cc.SSH.KeyPath,
			KnownHostsPath: cc.SSH.KnownHostsPath,
		})
		if err != nil {
			return nil, "", fmt.Errorf("ssh runner: %w", err)
		}
		return source.NewCommandSource(runner, cc.SSH.Host, cc.BoothConfig, timeout), runner.Addr(), nil
	default:
		src := source.NewLocalSource(cc.BoothConfig, timeout)
		return src, src.Host(), nil
	}
}

// alertConfig overlays the configured alert rules on the defaults. Rules
// absent from the configuration keep their defaults.
func alertConfig(ac config.AlertsConfig) alerter.AlertConfig {
	cfg := alerter.DefaultAlertConfig()
	if r := ac.ClusterStatus; r != nil {
		if r.GracePeriod.Duration > 0 {
			cfg.ClusterStatus.GracePeriod = r.GracePeriod.Duration
		}
		if r.Severity != "" {
			cfg.ClusterStatus.Severity = r.Severity
		}
	}
	if r := ac.NodeUnclean; r != nil && r.Severity != "" {
		cfg.NodeUnclean.Severity = r.Severity
	}
	if r := ac.NodeOffline; r != nil {
		if r.GracePeriod.Duration > 0 {
			cfg.NodeOffline.GracePeriod = r.GracePeriod.Duration
		}
		if r.Severity != "" {
			cfg.NodeOffline.Severity = r.Severity
		}
	}
	if r := ac.ResourceFailed; r != nil && r.Severity != "" {
		cfg.ResourceFailed.Severity = r.Severity
	}
	if r := ac.TicketRevoked; r != nil && r.Severity != "" {
		cfg.TicketRevoked.Severity = r.Severity
	}
	return cfg
}

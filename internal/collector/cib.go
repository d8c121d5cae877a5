package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/cache"
	"github.com/darshan-rambhia/pacemon/internal/cib"
	"github.com/darshan-rambhia/pacemon/internal/source"
	"github.com/darshan-rambhia/pacemon/internal/store"
)

// PollObserver is told about every completed poll.
type PollObserver interface {
	ObservePoll(cluster string, d time.Duration, err error)
}

// CIBConfig holds configuration for a single cluster.
type CIBConfig struct {
	Name         string
	PollInterval time.Duration
}

// CIBCollector polls one Pacemaker cluster and derives its snapshot.
type CIBCollector struct {
	config   CIBConfig
	src      source.Source
	pool     *WorkerPool
	cache    *cache.Cache
	store    *store.Store // may be nil
	observer PollObserver // may be nil
}

// NewCIBCollector creates a collector for one cluster. s and obs may be nil.
func NewCIBCollector(cfg CIBConfig, src source.Source, pool *WorkerPool, c *cache.Cache, s *store.Store, obs PollObserver) *CIBCollector {
	return &CIBCollector{
		config:   cfg,
		src:      src,
		pool:     pool,
		cache:    c,
		store:    s,
		observer: obs,
	}
}

func (p *CIBCollector) Name() string            { return "cib:" + p.config.Name }
func (p *CIBCollector) Interval() time.Duration { return p.config.PollInterval }

// inputs are the raw results of one poll's fetches.
type inputs struct {
	cib      []byte
	cibErr   error
	dc       string
	booth    string
	boothErr error
}

// Collect performs a full poll cycle. A cluster that cannot be read is
// recorded as an offline snapshot rather than returned as an error.
func (p *CIBCollector) Collect(ctx context.Context) error {
	start := time.Now()

	in, err := p.fetch(ctx)
	if err != nil {
		return fmt.Errorf("polling %s: %w", p.config.Name, err)
	}

	snap, ingestErr := p.derive(ctx, in)
	if ingestErr != nil {
		slog.Warn("cluster offline", "cluster", p.config.Name, "error", ingestErr)
	}

	p.cache.UpdateCluster(p.config.Name, snap, ingestErr)
	if p.store != nil {
		if err := p.store.RecordSnapshot(start.Unix(), p.config.Name, snap); err != nil {
			slog.Error("recording snapshot", "cluster", p.config.Name, "error", err)
		}
	}
	p.cache.SetLastPoll(p.Name(), time.Now())
	if p.observer != nil {
		p.observer.ObservePoll(p.config.Name, time.Since(start), ingestErr)
	}

	slog.Debug("cluster polled",
		"cluster", p.config.Name,
		"status", snap.Meta.Status,
		"epoch", snap.Meta.Epoch,
		"resources", snap.ResourceCount,
		"duration", time.Since(start),
	)
	return nil
}

// fetch runs the CIB, DC and booth lookups concurrently on the pool.
func (p *CIBCollector) fetch(ctx context.Context) (inputs, error) {
	var in inputs
	err := p.pool.Go(ctx,
		func() { in.cib, in.cibErr = p.src.FetchCIB(ctx) },
		func() {
			dc, err := p.src.DesignatedCoordinator(ctx)
			if err != nil {
				slog.Debug("DC lookup failed", "cluster", p.config.Name, "error", err)
			}
			in.dc = dc
		},
		func() { in.booth, in.boothErr = p.src.BoothConfig(ctx) },
	)
	if err != nil {
		return inputs{}, err
	}
	return in, nil
}

// derive turns fetched inputs into a snapshot. The returned error is the
// ingestion failure behind an offline snapshot.
func (p *CIBCollector) derive(ctx context.Context, in inputs) (*cib.Snapshot, error) {
	if in.cibErr != nil {
		return offlineFor(in.cibErr), in.cibErr
	}
	doc, err := cib.Parse(in.cib)
	if err != nil {
		return cib.Offline(cib.KindParseFailed, map[string]string{"error": err.Error()}), err
	}

	if in.boothErr != nil {
		slog.Warn("reading booth config", "cluster", p.config.Name, "error", in.boothErr)
	}
	return cib.Build(ctx, doc, cib.Options{
		DC:      in.dc,
		Host:    p.src.Host(),
		Booth:   cib.ParseBoothConfig(in.booth),
		Tickets: p.src,
	}), nil
}

// offlineFor maps a source error to the diagnostic of an offline snapshot.
func offlineFor(err error) *cib.Snapshot {
	var cmdErr *source.CommandError
	switch {
	case errors.Is(err, source.ErrNotInstalled):
		return cib.Offline(cib.KindNotInstalled, map[string]string{"cmd": source.CRMMon})
	case errors.Is(err, source.ErrNotExecutable):
		return cib.Offline(cib.KindNotExecutable, map[string]string{"cmd": source.CRMMon})
	case errors.Is(err, source.ErrPermissionDenied):
		return cib.Offline(cib.KindPermissionDenied, map[string]string{"cmd": source.CIBAdmin + " -Ql"})
	case errors.Is(err, cib.ErrEmptyDocument):
		return cib.Offline(cib.KindParseFailed, map[string]string{"error": err.Error()})
	case errors.As(err, &cmdErr):
		return cib.Offline(cib.KindInvokeFailed, map[string]string{
			"cmd": cmdErr.Command,
			"msg": strings.TrimSpace(cmdErr.Stderr),
		})
	default:
		return cib.Offline(cib.KindInvokeFailed, map[string]string{"msg": err.Error()})
	}
}

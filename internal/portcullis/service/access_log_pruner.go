package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/metrics"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
)

// AccessLogPruner enforces the access-log retention window. Each sweep drops
// every record stamped before now minus the window; records are otherwise
// never removed. With no window the log grows forever.
type AccessLogPruner struct {
	store     store.AccessLogStore
	retention time.Duration
	interval  time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

type PrunerConfig struct {
	RetentionDays int           // whole days of log kept; 0 keeps all
	Interval      time.Duration // between sweeps; 6h when unset
}

func NewAccessLogPruner(s store.AccessLogStore, cfg PrunerConfig, m *metrics.Metrics, logger *zap.Logger) *AccessLogPruner {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &AccessLogPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		metrics:   m,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start sweeps once, then every interval, on its own goroutine. It returns
// at once; with no window it only logs that pruning is off.
func (p *AccessLogPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("access log pruner disabled", zap.Int("retention_days", 0))
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Info("access log pruner started",
		zap.Duration("retention", p.retention),
		zap.Duration("interval", p.interval),
	)
}

// Stop ends the sweep loop and blocks until an in-flight sweep returns.
func (p *AccessLogPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *AccessLogPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

// cutoff is the oldest timestamp a sweep at now keeps.
func (p *AccessLogPruner) cutoff(now time.Time) time.Time {
	return now.UTC().Add(-p.retention)
}

func (p *AccessLogPruner) prune(ctx context.Context) {
	cutoff := p.cutoff(time.Now())
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("access log prune failed", zap.Error(err))
		return
	}
	p.metrics.Pruned(deleted)
	if deleted > 0 {
		p.logger.Info("access log prune",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}

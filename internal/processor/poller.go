package processor

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller invokes a pipeline run on a fixed interval: ProcessRecentMessages
// for per-unit mode, ProcessBatch for batch mode. Per-tick failures are
// logged; the next tick starts clean, with no partial-batch state carried
// over.
type Poller struct {
	run      func(context.Context) (Stats, error)
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
}

func NewPoller(run func(context.Context) (Stats, error), interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		run:      run,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting message poller", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			stats, err := p.run(ctx)
			if err != nil {
				p.logger.Error("Poll failed", zap.Error(err))
				continue
			}
			p.logger.Info("Poll complete",
				zap.Int("processed", stats.Processed),
				zap.Int("tickets_requested", stats.TicketsRequested))
		}
	}
}

func (p *Poller) Stop() {
	close(p.stopCh)
}

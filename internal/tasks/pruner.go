package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type idempotencyPruner interface {
	DeleteIdempotencyKeysBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner removes published outbox events and stale idempotency keys past the retention window.
type Pruner struct {
	outbox    outboxPruner
	keys      idempotencyPruner
	retention time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewPruner builds a Pruner. Retention defaults to seven days.
func NewPruner(outbox outboxPruner, keys idempotencyPruner, retention time.Duration, logger *zap.Logger) *Pruner {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pruner{
		outbox:    outbox,
		keys:      keys,
		retention: retention,
		timeout:   time.Minute,
		logger:    logger,
		now:       time.Now,
	}
}

// Prune runs one pass. A failure in one table does not stop the other.
func (p *Pruner) Prune(ctx context.Context) {
	cutoff := p.now().UTC().Add(-p.retention)

	if p.outbox != nil {
		n, err := p.outbox.DeletePublishedBefore(ctx, cutoff)
		if err != nil {
			p.logger.Error("outbox pruning failed", zap.Error(err))
		} else {
			p.logger.Info("outbox pruned", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
		}
	}

	if p.keys != nil {
		n, err := p.keys.DeleteIdempotencyKeysBefore(ctx, cutoff)
		if err != nil {
			p.logger.Error("idempotency key pruning failed", zap.Error(err))
		} else {
			p.logger.Info("idempotency keys pruned", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
		}
	}
}

// Schedule registers Prune on a seconds-precision cron spec and starts the scheduler.
// Callers stop it with Stop on shutdown.
func (p *Pruner) Schedule(spec string) (*cron.Cron, error) {
	if spec == "" {
		spec = "0 0 3 * * *"
	}
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		p.Prune(ctx)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	p.logger.Info("pruning scheduled", zap.String("spec", spec), zap.Duration("retention", p.retention))
	return c, nil
}

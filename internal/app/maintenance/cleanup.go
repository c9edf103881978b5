package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/woopsyyy/portal-credsvc/internal/services"
	"github.com/woopsyyy/portal-credsvc/pkg/logger"
)

const (
	defaultRetentionDays = 90
	defaultSweepSpec     = "@daily"
)

// Cleaner prunes aged audit trail entries on a cron schedule.
type Cleaner struct {
	audit     *services.AuditService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int
	schedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention cutoffs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithRetentionDays adjusts how long audit entries are retained.
func WithRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithSchedule overrides the cron specification for the sweep.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil audit
// service disables the sweep entirely.
func NewCleaner(audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:     audit,
		now:       time.Now,
		retention: defaultRetentionDays,
		schedule:  defaultSweepSpec,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the sweep with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.audit == nil || c.retention <= 0 {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.sweep(context.Background()); err != nil {
			c.log.Warn("audit sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes the sweep immediately. Used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if c.audit == nil || c.retention <= 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return c.sweep(ctx)
}

func (c *Cleaner) sweep(ctx context.Context) error {
	cutoff := c.now().AddDate(0, 0, -c.retention)
	removed, err := c.audit.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.log.Info("pruned audit entries",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}

package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

const DefaultReapSchedule = "@every 1m"

// Reaper periodically closes idle sessions of a Pool.
type Reaper struct {
	pool     *Pool
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewReaper(pool *Pool, schedule string, logger *slog.Logger) (*Reaper, error) {
	if schedule == "" {
		schedule = DefaultReapSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid reap schedule: %w", err)
	}

	return &Reaper{
		pool:     pool,
		schedule: schedule,
		logger:   logger.With("module", "session_reaper", "schedule", schedule),
	}, nil
}

func (r *Reaper) Start(ctx context.Context) error {
	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := r.cron.AddFunc(r.schedule, func() {
		if n := r.pool.ReapExpired(ctx); n > 0 {
			r.logger.InfoContext(ctx, "Reaped expired sessions", "count", n)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session reaper: %w", err)
	}

	r.logger.InfoContext(ctx, "Starting session reaper")
	r.cron.Start()

	return nil
}

// Stop waits for a running reap to finish.
func (r *Reaper) Stop() {
	if r.cron == nil {
		return
	}

	<-r.cron.Stop().Done()
}

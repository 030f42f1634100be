package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the job run once a day.
type Sweeper interface {
	ProcessScheduledBookings(ctx context.Context) (int, error)
}

// Daily runs a Sweeper at start-up and then at every local midnight.
type Daily struct {
	sweeper Sweeper
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	running bool
}

// NewDaily creates a Daily scheduler firing at midnight in loc.
func NewDaily(sweeper Sweeper, loc *time.Location, logger *zap.Logger) *Daily {
	return &Daily{
		sweeper: sweeper,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// NextMidnight returns the first midnight in loc strictly after t.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// Run blocks until ctx is cancelled.
func (d *Daily) Run(ctx context.Context) {
	d.RunOnce(ctx)

	for {
		next := NextMidnight(d.now(), d.loc)
		timer := time.NewTimer(time.Until(next))
		d.logger.Info("next booking sweep scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce runs the sweep now unless one is already in progress. It reports the
// number of activated bookings and whether the sweep ran.
func (d *Daily) RunOnce(ctx context.Context) (int, bool) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		d.logger.Info("booking sweep already in progress, skipping")
		return 0, false
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	start := time.Now()
	activated, err := d.sweeper.ProcessScheduledBookings(ctx)
	if err != nil {
		d.logger.Error("booking sweep failed", zap.Error(err))
		return activated, true
	}
	d.logger.Info("booking sweep completed",
		zap.Int("activated", activated),
		zap.Duration("took", time.Since(start)),
	)
	return activated, true
}

// Package scheduler fires a job once per day at a fixed local time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const defaultJobTimeout = time.Hour

// Job is the work run at each firing.
type Job func(ctx context.Context) error

// Daily runs one job per day at hour:minute in loc. Firings never overlap:
// the next wait starts only after the previous run returned, and a run is
// abandoned once its timeout passes.
type Daily struct {
	hour       int
	minute     int
	loc        *time.Location
	jobTimeout time.Duration
	logger     *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewDaily(hour, minute int, loc *time.Location, logger *slog.Logger) (*Daily, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid daily time %02d:%02d", hour, minute)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Daily{
		hour:       hour,
		minute:     minute,
		loc:        loc,
		jobTimeout: defaultJobTimeout,
		logger:     logger,
		now:        time.Now,
		after:      time.After,
	}, nil
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// following returns the firing one calendar day after prev, or the first one
// after now when that has already passed (clock jump, suspended host).
func (d *Daily) following(prev, now time.Time) time.Time {
	p := prev.In(d.loc)
	next := time.Date(p.Year(), p.Month(), p.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	if !next.After(now) {
		next = NextRun(now, d.hour, d.minute, d.loc)
	}
	return next
}

// Run blocks until ctx is cancelled, invoking job once per day. Each firing
// is derived from the previous one, so a wall clock that lags behind the
// timer never yields the same firing twice.
func (d *Daily) Run(ctx context.Context, job Job) error {
	var next time.Time
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if next.IsZero() {
			next = NextRun(d.now(), d.hour, d.minute, d.loc)
		} else {
			next = d.following(next, d.now())
		}
		d.logger.Info("next daily run scheduled", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.after(next.Sub(d.now())):
		}

		d.runOnce(ctx, job)
	}
}

func (d *Daily) runOnce(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, d.jobTimeout)
	defer cancel()

	start := d.now()
	if err := job(jobCtx); err != nil {
		d.logger.Error("daily job failed", "error", err, "elapsed", d.now().Sub(start))
		return
	}
	d.logger.Info("daily job finished", "elapsed", d.now().Sub(start))
}

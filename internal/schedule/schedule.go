// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule runs digests on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var dailyTime = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// Job is one scheduled digest run.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner. Overlapping triggers are skipped while a
// run is still in progress.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location
	log  zerolog.Logger

	mu      sync.Mutex
	running bool
}

// New creates a scheduler evaluating expressions in the named timezone.
func New(timezone string, log zerolog.Logger) (*Scheduler, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		loc:  loc,
		log:  log,
	}, nil
}

// ParseSpec converts a daily "HH:MM" into a cron expression; anything else
// must already be a standard five-field expression.
func ParseSpec(spec string) (string, error) {
	if m := dailyTime.FindStringSubmatch(spec); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return spec, nil
}

// Add registers job under spec. Each trigger runs job with ctx.
func (s *Scheduler) Add(ctx context.Context, spec string, job Job) error {
	expr, err := ParseSpec(spec)
	if err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(expr, func() { s.trigger(ctx, job) }); err != nil {
		return fmt.Errorf("adding cron job: %w", err)
	}
	s.log.Info().Str("schedule", expr).Str("timezone", s.loc.String()).Msg("digest scheduled")
	return nil
}

func (s *Scheduler) trigger(ctx context.Context, job Job) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn().Msg("previous run still in progress, skipping trigger")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if err := job(ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduled run failed")
	}
}

// Next returns the next trigger time, or the zero time when nothing is
// scheduled.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	next := entries[0].Schedule.Next(time.Now().In(s.loc))
	for _, e := range entries[1:] {
		if n := e.Schedule.Next(time.Now().In(s.loc)); n.Before(next) {
			next = n
		}
	}
	return next
}

// Run starts the cron loop and blocks until ctx is done, then waits for an
// in-flight job to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

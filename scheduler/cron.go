package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"news-shorts-pipeline/config"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the pipeline on a cron expression. A run still in progress
// when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location

	mu  sync.Mutex
	ctx context.Context
}

// New parses the schedule and registers job
func New(sc config.ScheduleConfig, job func(ctx context.Context)) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	tz := sc.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	logger := cron.PrintfLogger(log.Default())
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s := &Scheduler{cron: c, location: loc, ctx: context.Background()}

	if _, err := c.AddFunc(sc.Cron, func() { job(s.jobContext()) }); err != nil {
		return nil, fmt.Errorf("add cron %q: %w", sc.Cron, err)
	}
	return s, nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// the running job to finish. Jobs receive ctx, so a shutdown reaches them.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	log.Printf("[scheduler] Started. Next run at %s", s.Next().Format(time.RFC1123))
	<-ctx.Done()
	log.Println("[scheduler] Stopping, waiting for the current run...")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Next returns the next scheduled run time
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now().In(s.location))
}

// Location returns the scheduler location
func (s *Scheduler) Location() *time.Location {
	return s.location
}

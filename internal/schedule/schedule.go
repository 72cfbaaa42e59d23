// Package schedule re-validates configured sources on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled pass.
type Job func(ctx context.Context)

// Scheduler runs a Job on a standard five-field cron expression
// ("0 3 * * *") or a descriptor such as "@daily" or "@every 6h".
type Scheduler struct {
	spec       string
	job        Job
	cron       *cron.Cron
	runAtStart bool

	mu      sync.Mutex
	entry   cron.EntryID
	started bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRunAtStart runs the job once as soon as Run starts.
func WithRunAtStart() Option { return func(s *Scheduler) { s.runAtStart = true } }

// WithLocation evaluates the expression in loc instead of the local zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.cron = newCron(cron.WithLocation(loc)) }
}

func newCron(opts ...cron.Option) *cron.Cron {
	logger := cron.PrintfLogger(log.Default())
	opts = append(opts, cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	return cron.New(opts...)
}

// New validates spec and returns a Scheduler. Overlapping passes are
// skipped, so a slow pass never stacks up behind itself.
func New(spec string, job Job, opts ...Option) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("schedule: job must not be nil")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("schedule: invalid cron expression %q: %w", spec, err)
	}
	s := &Scheduler{spec: spec, job: job, cron: newCron()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Run schedules the job and blocks until ctx is done, then waits for a
// running pass to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("schedule: already running")
	}
	id, err := s.cron.AddFunc(s.spec, func() { s.job(ctx) })
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("schedule: add %q: %w", s.spec, err)
	}
	s.entry = id
	s.started = true
	s.cron.Start()
	s.mu.Unlock()

	log.Printf("schedule: spec=%q next=%s", s.spec, s.Next().Format(time.RFC3339))

	if s.runAtStart {
		s.job(ctx)
	}

	<-ctx.Done()
	<-s.cron.Stop().Done()
	log.Printf("schedule: stopped")
	return nil
}

// Next returns the next activation, or the zero time before Run.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

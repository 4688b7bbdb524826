package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/reshetovitsme/catfacts-bot/internal/shared/errors"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Job describes a registered periodic job
type Job struct {
	Name   string        `json:"name"`
	Period time.Duration `json:"period"`
	Next   time.Time     `json:"next"`
}

type entry struct {
	id     cron.EntryID
	period time.Duration
}

// Service runs named jobs at fixed intervals
type Service struct {
	c       *cron.Cron
	mu      sync.Mutex
	entries map[string]entry
	started bool
}

// New creates a new scheduler. Jobs registered before Start begin ticking once it is called.
func New() *Service {
	return &Service{
		c:       cron.New(cron.WithChain(cron.Recover(cronLogger{}))),
		entries: map[string]entry{},
	}
}

// Start begins triggering jobs
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.c.Start()
	slog.Info("Scheduler started", "jobs", len(s.entries))
}

// Stop stops triggering and waits for running jobs until ctx is done
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
		slog.Warn("Scheduler stop timed out", "error", ctx.Err())
	}
	slog.Info("Scheduler stopped")
}

// Every registers fn to run once per period under name, replacing any job with the same name
func (s *Service) Every(name string, period time.Duration, fn func()) error {
	if period <= 0 {
		return oops.With("job", name, "period", period).Wrap(errors.ErrInvalidPeriod)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[name]; ok {
		s.c.Remove(old.id)
	}

	id := s.c.Schedule(cron.Every(period), cron.FuncJob(fn))
	s.entries[name] = entry{id: id, period: period}

	slog.Info("Job scheduled", "job", name, "period", period)
	return nil
}

// Remove unregisters the job with the given name
func (s *Service) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return
	}
	s.c.Remove(e.id)
	delete(s.entries, name)
	slog.Info("Job removed", "job", name)
}

// Jobs returns the registered jobs sorted by name
func (s *Service) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := lo.MapToSlice(s.entries, func(name string, e entry) Job {
		return Job{Name: name, Period: e.period, Next: s.c.Entry(e.id).Next}
	})
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// cronLogger adapts cron.Logger to slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error(fmt.Sprintf("cron: %s", msg), append(keysAndValues, "error", err)...)
}

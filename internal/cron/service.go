package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

// ErrInvalidExpr is returned for malformed cron expressions.
var ErrInvalidExpr = errors.New("invalid cron expression")

// JobHandler is called when a job fires.
type JobHandler func(ctx context.Context) error

// Job is a registered recurring job.
type Job struct {
	Name       string
	Expr       string
	NextRun    time.Time
	LastRun    time.Time
	LastStatus string
	LastError  string

	handler JobHandler
}

// Service runs cron-scheduled jobs with a ticker-based polling loop.
type Service struct {
	loc      *time.Location
	interval time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	jobs     map[string]*Job
	cancel   context.CancelFunc
	stopped  chan struct{}
	running  bool
	inflight sync.WaitGroup
}

// NewService creates a scheduler evaluating expressions in loc.
func NewService(loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		loc:      loc,
		interval: time.Second,
		now:      time.Now,
		jobs:     make(map[string]*Job),
	}
}

// Validate reports whether expr is a usable cron expression.
func Validate(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" || !gronx.New().IsValid(expr) {
		return fmt.Errorf("%w: %q", ErrInvalidExpr, expr)
	}
	return nil
}

// AddJob registers a job. Names are unique.
func (s *Service) AddJob(name, expr string, handler JobHandler) (Job, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Job{}, fmt.Errorf("job name is required")
	}
	if handler == nil {
		return Job{}, fmt.Errorf("job %s: handler is required", name)
	}
	if err := Validate(expr); err != nil {
		return Job{}, err
	}

	job := &Job{Name: name, Expr: strings.TrimSpace(expr), handler: handler}
	if err := s.computeNextRun(job); err != nil {
		return Job{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return Job{}, fmt.Errorf("job %s already exists", name)
	}
	s.jobs[name] = job
	return *job, nil
}

// ListJobs returns a snapshot of all jobs sorted by name.
func (s *Service) ListJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Start begins the polling loop. Jobs receive a context cancelled by Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("cron service already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})
	s.running = true

	go s.loop(loopCtx, s.stopped)

	slog.Info("cron service started", "jobs", len(s.jobs))
	return nil
}

// Stop shuts down the polling loop and waits for running jobs.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	stopped := s.stopped
	s.mu.Unlock()

	<-stopped
	s.inflight.Wait()
	slog.Info("cron service stopped")
}

func (s *Service) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	now := s.now()

	var due []*Job
	s.mu.Lock()
	for _, j := range s.jobs {
		if j.NextRun.IsZero() || j.NextRun.After(now) {
			continue
		}
		// Clear NextRun to prevent re-firing while running.
		j.NextRun = time.Time{}
		due = append(due, j)
	}
	s.mu.Unlock()

	for _, j := range due {
		s.inflight.Add(1)
		go func(job *Job) {
			defer s.inflight.Done()
			s.executeJob(ctx, job)
		}(j)
	}
}

func (s *Service) executeJob(ctx context.Context, job *Job) {
	slog.Info("cron: executing job", "name", job.Name)

	execErr := job.handler(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	job.LastRun = s.now()
	if execErr != nil {
		job.LastStatus = "error"
		job.LastError = execErr.Error()
		slog.Error("cron: job execution failed", "name", job.Name, "error", execErr)
	} else {
		job.LastStatus = "ok"
		job.LastError = ""
	}
	if err := s.computeNextRun(job); err != nil {
		slog.Warn("cron: failed to compute next run", "name", job.Name, "expr", job.Expr, "error", err)
	}
}

func (s *Service) computeNextRun(job *Job) error {
	next, err := gronx.NextTickAfter(job.Expr, s.now().In(s.loc), false)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidExpr, job.Expr, err)
	}
	job.NextRun = next
	return nil
}

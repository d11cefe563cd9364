// Package scheduler runs periodic collection for a fixed set of apps.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/cognicore/reviewscope/pkg/reviewscope/collect"
	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
)

// Collector runs one collection.
type Collector interface {
	Collect(ctx context.Context, req collect.Request) (collect.Summary, error)
}

// ActiveChecker finds a running task for an app and actor.
type ActiveChecker interface {
	Active(ctx context.Context, appID, actor string) (store.Task, bool, error)
}

// Job is one app collected on every tick.
type Job struct {
	AppID    string
	AppName  string
	Target   int
	TaskType string
}

// Outcome reports what a tick did for one job.
type Outcome struct {
	AppID   string
	Skipped bool
	Summary collect.Summary
	Err     error
}

// Scheduler triggers collection for every job on a cron spec. Jobs in a
// tick run in parallel; a job whose app already has an active task for the
// actor is skipped.
type Scheduler struct {
	cron      *cron.Cron
	collector Collector
	active    ActiveChecker
	actor     string
	jobs      []Job
	logger    *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	inflight map[string]bool
}

// New creates a scheduler for a standard five-field cron spec.
func New(spec, actor string, jobs []Job, c Collector, a ActiveChecker, logger *slog.Logger) (*Scheduler, error) {
	if c == nil || a == nil {
		return nil, errors.New("scheduler: collector and active checker are required")
	}
	if actor == "" {
		return nil, errors.New("scheduler: actor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		collector: c,
		active:    a,
		actor:     actor,
		jobs:      append([]Job(nil), jobs...),
		logger:    logger,
		ctx:       context.Background(),
		inflight:  make(map[string]bool),
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("add cron %q: %w", spec, err)
	}
	return s, nil
}

// Start begins cron execution. Runs started by the scheduler use ctx, so
// cancelling it revokes them.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running tick.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	s.RunOnce(ctx)
}

// RunOnce runs every job once, in parallel, and waits for them.
func (s *Scheduler) RunOnce(ctx context.Context) []Outcome {
	out := make([]Outcome, len(s.jobs))
	var wg sync.WaitGroup
	for i, job := range s.jobs {
		i, job := i, job
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = s.run(ctx, job)
		}()
	}
	wg.Wait()
	return out
}

func (s *Scheduler) run(ctx context.Context, job Job) Outcome {
	res := Outcome{AppID: job.AppID}
	if !s.claim(job.AppID) {
		res.Skipped = true
		return res
	}
	defer s.release(job.AppID)

	task, running, err := s.active.Active(ctx, job.AppID, s.actor)
	if err != nil {
		res.Err = fmt.Errorf("active task lookup: %w", err)
		s.logger.Error("scheduled collection failed", "app", job.AppID, "err", res.Err)
		return res
	}
	if running {
		res.Skipped = true
		s.logger.Info("collection already running", "app", job.AppID, "task", task.ID, "status", task.Status)
		return res
	}

	taskType := job.TaskType
	if taskType == "" {
		taskType = collect.TaskQuick
	}
	res.Summary, res.Err = s.collector.Collect(ctx, collect.Request{
		AppID:    job.AppID,
		AppName:  job.AppName,
		Actor:    s.actor,
		Target:   job.Target,
		TaskType: taskType,
	})
	if res.Err != nil {
		s.logger.Error("scheduled collection failed", "app", job.AppID, "task", res.Summary.TaskID, "err", res.Err)
	}
	return res
}

func (s *Scheduler) claim(appID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[appID] {
		return false
	}
	s.inflight[appID] = true
	return true
}

func (s *Scheduler) release(appID string) {
	s.mu.Lock()
	delete(s.inflight, appID)
	s.mu.Unlock()
}

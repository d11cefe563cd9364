// Package tracker keeps the durable progress record of collection runs.
package tracker

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
)

// Tracker creates and advances collection tasks.
type Tracker struct {
	store  store.TaskStore
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures a Tracker
type Options struct {
	Logger *slog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// New creates a tracker backed by the given task store
func New(ts store.TaskStore, opts Options) *Tracker {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		store:   ts,
		logger:  opts.Logger,
		now:     opts.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewTask describes a run about to start
type NewTask struct {
	AppID    string
	AppName  string
	Actor    string
	TaskType string
	Target   int
}

// Create records a pending task. A missing actor fails with ErrIdentity.
func (t *Tracker) Create(ctx context.Context, nt NewTask) (store.Task, error) {
	if nt.Actor == "" {
		return store.Task{}, fmt.Errorf("create task for %s: %w", nt.AppID, internalerr.ErrIdentity)
	}
	if nt.AppID == "" || nt.Target <= 0 {
		return store.Task{}, fmt.Errorf("create task: app id and positive target required: %w", internalerr.ErrInvalidInput)
	}

	task := store.Task{
		ID:        t.newID(),
		AppID:     nt.AppID,
		AppName:   nt.AppName,
		Actor:     nt.Actor,
		TaskType:  nt.TaskType,
		Target:    nt.Target,
		Status:    store.StatusPending,
		CreatedAt: t.now(),
	}
	if err := t.store.CreateTask(ctx, task); err != nil {
		return store.Task{}, err
	}
	t.logger.Debug("task created", "task_id", task.ID, "app_id", task.AppID, "target", task.Target)
	return task, nil
}

// Active returns the running task for (appID, actor), if any. Callers use it
// to refuse a second concurrent run.
func (t *Tracker) Active(ctx context.Context, appID, actor string) (store.Task, bool, error) {
	return t.store.ActiveTask(ctx, appID, actor)
}

// Get returns a task by id.
func (t *Tracker) Get(ctx context.Context, id string) (store.Task, error) {
	task, ok, err := t.store.GetTask(ctx, id)
	if err != nil {
		return store.Task{}, err
	}
	if !ok {
		return store.Task{}, fmt.Errorf("task %s: %w", id, internalerr.ErrNotFound)
	}
	return task, nil
}

// Start moves a pending task to started.
func (t *Tracker) Start(ctx context.Context, id string) (store.Task, error) {
	return t.apply(ctx, id, store.StatusStarted, func(task *store.Task) {
		now := t.now()
		task.StartedAt = &now
	})
}

// Progress records processed/target and moves the task to status.
// The stored percentage never decreases.
func (t *Tracker) Progress(ctx context.Context, id string, processed, target int, status store.TaskStatus) (store.Task, error) {
	return t.apply(ctx, id, status, func(task *store.Task) {
		if target > 0 {
			task.Target = target
		}
		if processed > task.Current {
			task.Current = processed
		}
		if pct := Percent(processed, task.Target); pct > task.ProgressPercent {
			task.ProgressPercent = pct
		}
	})
}

// Succeed marks the task successful with a result message.
func (t *Tracker) Succeed(ctx context.Context, id, message string) (store.Task, error) {
	return t.apply(ctx, id, store.StatusSuccess, func(task *store.Task) {
		task.ResultMessage = message
		t.complete(task)
	})
}

// Fail marks the task failed and records cause as the error message.
func (t *Tracker) Fail(ctx context.Context, id string, cause error) (store.Task, error) {
	return t.apply(ctx, id, store.StatusFailure, func(task *store.Task) {
		if cause != nil {
			task.ErrorMessage = cause.Error()
		}
		t.complete(task)
	})
}

// Revoke marks the task revoked, e.g. on shutdown.
func (t *Tracker) Revoke(ctx context.Context, id, reason string) (store.Task, error) {
	return t.apply(ctx, id, store.StatusRevoked, func(task *store.Task) {
		task.ErrorMessage = reason
		t.complete(task)
	})
}

func (t *Tracker) complete(task *store.Task) {
	now := t.now()
	task.CompletedAt = &now
	if task.StartedAt == nil {
		task.StartedAt = &now
	}
}

func (t *Tracker) apply(ctx context.Context, id string, next store.TaskStatus, mutate func(*store.Task)) (store.Task, error) {
	task, err := t.Get(ctx, id)
	if err != nil {
		return store.Task{}, err
	}
	if !CanTransition(task.Status, next) {
		return store.Task{}, fmt.Errorf("task %s %s -> %s: %w", id, task.Status, next, internalerr.ErrInvalidTransition)
	}
	task.Status = next
	mutate(&task)
	if err := t.store.UpdateTask(ctx, task); err != nil {
		return store.Task{}, err
	}
	return task, nil
}

func (t *Tracker) newID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t.now()), t.entropy).String()
}

// CanTransition reports whether a task may move from one status to another.
// Terminal states are final.
func CanTransition(from, to store.TaskStatus) bool {
	switch from {
	case store.StatusPending:
		return to == store.StatusStarted || to == store.StatusFailure || to == store.StatusRevoked
	case store.StatusStarted, store.StatusProgress:
		return to == store.StatusProgress || to.Terminal()
	}
	return false
}

// Percent is min(100, processed/target*100), truncated.
func Percent(processed, target int) int {
	if target <= 0 || processed <= 0 {
		return 0
	}
	pct := processed * 100 / target
	if pct > 100 {
		return 100
	}
	return pct
}

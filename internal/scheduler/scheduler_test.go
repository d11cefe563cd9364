package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/cognicore/reviewscope/pkg/reviewscope/collect"
	"github.com/cognicore/reviewscope/pkg/reviewscope/store/memstore"
	"github.com/cognicore/reviewscope/pkg/reviewscope/tracker"
)

type fakeCollector struct {
	mu   sync.Mutex
	reqs []collect.Request
	err  error
}

func (f *fakeCollector) Collect(ctx context.Context, req collect.Request) (collect.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return collect.Summary{TaskID: "t-" + req.AppID, New: 3}, f.err
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewRejectsBadSpec(t *testing.T) {
	tr := tracker.New(memstore.New(), tracker.Options{})
	if _, err := New("every day at noon", "bot", nil, &fakeCollector{}, tr, quiet()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
	if _, err := New("@hourly", "", nil, &fakeCollector{}, tr, quiet()); err == nil {
		t.Fatal("expected error for missing actor")
	}
}

func TestRunOnceSkipsActiveApps(t *testing.T) {
	ctx := context.Background()
	tr := tracker.New(memstore.New(), tracker.Options{})
	if _, err := tr.Create(ctx, tracker.NewTask{AppID: "busy", Actor: "bot", TaskType: collect.TaskQuick, Target: 100}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// another actor's task does not block
	if _, err := tr.Create(ctx, tracker.NewTask{AppID: "free", Actor: "someone", TaskType: collect.TaskQuick, Target: 100}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	fc := &fakeCollector{}
	s, err := New("@hourly", "bot", []Job{
		{AppID: "busy", Target: 100},
		{AppID: "free", AppName: "Free App", Target: 500, TaskType: collect.TaskFull},
	}, fc, tr, quiet())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	out := s.RunOnce(ctx)
	if len(out) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(out))
	}
	if !out[0].Skipped || out[0].AppID != "busy" {
		t.Fatalf("busy app should be skipped: %+v", out[0])
	}
	if out[1].Skipped || out[1].Summary.TaskID != "t-free" {
		t.Fatalf("free app should run: %+v", out[1])
	}
	if len(fc.reqs) != 1 {
		t.Fatalf("expected one collection, got %d", len(fc.reqs))
	}
	req := fc.reqs[0]
	if req.Actor != "bot" || req.Target != 500 || req.TaskType != collect.TaskFull || req.AppName != "Free App" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestRunOnceDefaultsTaskTypeAndReportsErrors(t *testing.T) {
	tr := tracker.New(memstore.New(), tracker.Options{})
	fc := &fakeCollector{err: errors.New("boom")}
	s, err := New("*/30 * * * *", "bot", []Job{{AppID: "a", Target: 10}}, fc, tr, quiet())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	out := s.RunOnce(context.Background())
	if out[0].Err == nil {
		t.Fatal("collector error should be reported")
	}
	if fc.reqs[0].TaskType != collect.TaskQuick {
		t.Fatalf("expected quick task by default, got %q", fc.reqs[0].TaskType)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	tr := tracker.New(memstore.New(), tracker.Options{})
	s, err := New("@daily", "bot", nil, &fakeCollector{}, tr, quiet())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !s.claim("a") || s.claim("a") {
		t.Fatal("second claim for the same app should fail")
	}
	s.release("a")
	if !s.claim("a") {
		t.Fatal("claim should succeed after release")
	}
}

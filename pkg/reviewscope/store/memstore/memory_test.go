package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
)

func ptr(v float64) *float64 { return &v }

func TestUpsertReviewIdempotent(t *testing.T) {
	ctx := context.Background()
	st := New()

	r := store.Review{ReviewID: "id-1", AppID: "a", Content: "original", Rating: 1, Sentiment: ptr(-0.9)}
	created, err := st.UpsertReview(ctx, r)
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}

	r.Content = "changed"
	r.Sentiment = ptr(-0.5)
	created, err = st.UpsertReview(ctx, r)
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}

	if st.ReviewCount() != 1 {
		t.Fatalf("expected 1 review, got %d", st.ReviewCount())
	}
	got, _, _ := st.GetReview(ctx, "id-1")
	if got.Content != "original" {
		t.Errorf("content should not change: %q", got.Content)
	}
	if s, _ := got.Score(); s != -0.5 {
		t.Errorf("score = %v, want -0.5", s)
	}
}

func TestUpsertRejectsEmptyID(t *testing.T) {
	if _, err := New().UpsertReview(context.Background(), store.Review{}); err == nil {
		t.Error("expected error for empty review id")
	}
}

func TestListReviewsPolarity(t *testing.T) {
	ctx := context.Background()
	st := New()
	st.UpsertReview(ctx, store.Review{ReviewID: "p", AppID: "a", Sentiment: ptr(0.5), CountsTowardScore: true})
	st.UpsertReview(ctx, store.Review{ReviewID: "n", AppID: "a", Sentiment: ptr(-0.5), CountsTowardScore: true})
	st.UpsertReview(ctx, store.Review{ReviewID: "u", AppID: "a", CountsTowardScore: true})
	st.UpsertReview(ctx, store.Review{ReviewID: "f", AppID: "a", Sentiment: ptr(0.5), CountsTowardScore: false})

	pos, _ := st.ListReviews(ctx, store.ReviewQuery{AppIDs: []string{"a"}, ScoredOnly: true, Polarity: store.PolarityPositive})
	if len(pos) != 1 || pos[0].ReviewID != "p" {
		t.Errorf("positive = %+v", pos)
	}
	all, _ := st.ListReviews(ctx, store.ReviewQuery{AppIDs: []string{"a"}})
	if len(all) != 4 {
		t.Errorf("expected 4, got %d", len(all))
	}
	other, _ := st.ListReviews(ctx, store.ReviewQuery{AppIDs: []string{"b"}})
	if len(other) != 0 {
		t.Errorf("expected none for app b, got %d", len(other))
	}
}

func TestActiveTask(t *testing.T) {
	ctx := context.Background()
	st := New()
	now := time.Now()

	st.CreateTask(ctx, store.Task{ID: "old", AppID: "a", Actor: "u", Status: store.StatusProgress, CreatedAt: now.Add(-time.Hour)})
	st.CreateTask(ctx, store.Task{ID: "new", AppID: "a", Actor: "u", Status: store.StatusStarted, CreatedAt: now})
	st.CreateTask(ctx, store.Task{ID: "done", AppID: "a", Actor: "u", Status: store.StatusSuccess, CreatedAt: now.Add(time.Hour)})

	got, ok, err := st.ActiveTask(ctx, "a", "u")
	if err != nil || !ok {
		t.Fatalf("ActiveTask: ok=%v err=%v", ok, err)
	}
	if got.ID != "new" {
		t.Errorf("active = %s, want new", got.ID)
	}
	if _, ok, _ := st.ActiveTask(ctx, "a", "someone-else"); ok {
		t.Error("task of another actor should not match")
	}
	if err := st.CreateTask(ctx, store.Task{ID: "new"}); err == nil {
		t.Error("duplicate task id should fail")
	}
}

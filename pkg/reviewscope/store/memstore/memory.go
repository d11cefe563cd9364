package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu      sync.RWMutex
	reviews map[string]store.Review
	tasks   map[string]store.Task
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		reviews: make(map[string]store.Review),
		tasks:   make(map[string]store.Task),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertReview inserts a review keyed by ReviewID, refreshing only
// CreatedAt and Sentiment for a known id.
func (s *Store) UpsertReview(ctx context.Context, r store.Review) (bool, error) {
	if r.ReviewID == "" {
		return false, fmt.Errorf("upsert review: empty review id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	existing, ok := s.reviews[r.ReviewID]
	if !ok {
		s.reviews[r.ReviewID] = copyReview(r)
		return true, nil
	}
	if r.Sentiment != nil {
		v := *r.Sentiment
		existing.Sentiment = &v
	}
	existing.CreatedAt = r.CreatedAt
	s.reviews[r.ReviewID] = existing
	return false, nil
}

// GetReview returns a review by external id.
func (s *Store) GetReview(ctx context.Context, reviewID string) (store.Review, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reviews[reviewID]
	if !ok {
		return store.Review{}, false, nil
	}
	return copyReview(r), true, nil
}

// ListReviews returns matching reviews, newest first.
func (s *Store) ListReviews(ctx context.Context, q store.ReviewQuery) ([]store.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apps := toSet(q.AppIDs)
	var out []store.Review
	for _, r := range s.reviews {
		if len(apps) > 0 {
			if _, ok := apps[r.AppID]; !ok {
				continue
			}
		}
		if q.ScoredOnly && !r.CountsTowardScore {
			continue
		}
		if !store.MatchesPolarity(r, q.Polarity) {
			continue
		}
		out = append(out, copyReview(r))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ReviewID < out[j].ReviewID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// SentimentStats aggregates scored reviews that count toward the app score.
func (s *Store) SentimentStats(ctx context.Context, appIDs []string) (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apps := toSet(appIDs)
	var (
		total, positive, negative int
		sum                       float64
	)
	for _, r := range s.reviews {
		if len(apps) > 0 {
			if _, ok := apps[r.AppID]; !ok {
				continue
			}
		}
		score, ok := r.Score()
		if !ok || !r.CountsTowardScore {
			continue
		}
		total++
		sum += score
		switch {
		case score > store.PositiveThreshold:
			positive++
		case score < store.NegativeThreshold:
			negative++
		}
	}
	return store.NewStats(total, positive, negative, sum), nil
}

// CreateTask stores a new task.
func (s *Store) CreateTask(ctx context.Context, t store.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("insert task: duplicate id %s", t.ID)
	}
	s.tasks[t.ID] = copyTask(t)
	return nil
}

// UpdateTask replaces a stored task.
func (s *Store) UpdateTask(ctx context.Context, t store.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.ID]; !ok {
		return fmt.Errorf("update task %s: no such task", t.ID)
	}
	s.tasks[t.ID] = copyTask(t)
	return nil
}

// GetTask returns a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (store.Task, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.Task{}, false, nil
	}
	return copyTask(t), true, nil
}

// ActiveTask returns the newest running task for an app and actor.
func (s *Store) ActiveTask(ctx context.Context, appID, actor string) (store.Task, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  store.Task
		found bool
	)
	for _, t := range s.tasks {
		if t.AppID != appID || t.Actor != actor || !t.Status.Active() {
			continue
		}
		if !found || t.CreatedAt.After(best.CreatedAt) {
			best = t
			found = true
		}
	}
	if !found {
		return store.Task{}, false, nil
	}
	return copyTask(best), true, nil
}

// ListTasks returns recent tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, appID string, limit int) ([]store.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	var out []store.Task
	for _, t := range s.tasks {
		if appID != "" && t.AppID != appID {
			continue
		}
		out = append(out, copyTask(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ReviewCount returns the number of stored reviews.
func (s *Store) ReviewCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reviews)
}

func copyReview(r store.Review) store.Review {
	if r.Sentiment != nil {
		v := *r.Sentiment
		r.Sentiment = &v
	}
	return r
}

func copyTask(t store.Task) store.Task {
	if t.StartedAt != nil {
		v := *t.StartedAt
		t.StartedAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		t.CompletedAt = &v
	}
	return t
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

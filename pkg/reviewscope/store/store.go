package store

import (
	"context"
	"time"
)

// Store is the main interface for persisting reviews and collection tasks
type Store interface {
	ReviewStore
	TaskStore
	Close() error
}

// ReviewStore is the keyed review repository.
type ReviewStore interface {
	// UpsertReview inserts r when its ReviewID is unseen and reports created=true.
	// For a known ReviewID only CreatedAt and Sentiment are updated.
	UpsertReview(ctx context.Context, r Review) (created bool, err error)
	GetReview(ctx context.Context, reviewID string) (Review, bool, error)
	ListReviews(ctx context.Context, q ReviewQuery) ([]Review, error)
	SentimentStats(ctx context.Context, appIDs []string) (Stats, error)
}

// TaskStore persists collection task progress records.
type TaskStore interface {
	CreateTask(ctx context.Context, t Task) error
	UpdateTask(ctx context.Context, t Task) error
	GetTask(ctx context.Context, id string) (Task, bool, error)
	// ActiveTask returns the newest pending/started/progress task for the pair.
	ActiveTask(ctx context.Context, appID, actor string) (Task, bool, error)
	ListTasks(ctx context.Context, appID string, limit int) ([]Task, error)
}

// Review is a single stored third-party review
type Review struct {
	ReviewID          string
	Source            string
	AppID             string
	Author            string
	Rating            int
	Title             string
	Content           string
	Sentiment         *float64 // nil until scored
	CountsTowardScore bool
	CreatedAt         time.Time
}

// Score returns the sentiment and whether it is set.
func (r Review) Score() (float64, bool) {
	if r.Sentiment == nil {
		return 0, false
	}
	return *r.Sentiment, true
}

// Polarity selects reviews by sentiment sign.
type Polarity string

const (
	PolarityNone     Polarity = "none"
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// Polarity thresholds shared by queries, stats and topic filtering.
const (
	PositiveThreshold = 0.1
	NegativeThreshold = -0.1
)

// ParsePolarity maps user input to a Polarity. Empty input means none.
func ParsePolarity(s string) (Polarity, bool) {
	switch Polarity(s) {
	case "", PolarityNone, "all":
		return PolarityNone, true
	case PolarityPositive:
		return PolarityPositive, true
	case PolarityNegative:
		return PolarityNegative, true
	}
	return "", false
}

// ReviewQuery is a range query over stored reviews.
type ReviewQuery struct {
	AppIDs []string
	// ScoredOnly restricts to reviews that count toward aggregate sentiment.
	ScoredOnly bool
	Polarity   Polarity
	Limit      int
}

// Stats aggregates sentiment for one or more app identifiers
type Stats struct {
	Total              int
	Positive           int
	Negative           int
	Neutral            int
	AvgSentiment       float64
	PositivePercentage float64
	NegativePercentage float64
	NeutralPercentage  float64
}

// TaskStatus is the lifecycle state of a collection task.
type TaskStatus string

const (
	StatusPending  TaskStatus = "pending"
	StatusStarted  TaskStatus = "started"
	StatusProgress TaskStatus = "progress"
	StatusSuccess  TaskStatus = "success"
	StatusFailure  TaskStatus = "failure"
	StatusRevoked  TaskStatus = "revoked"
)

// Active reports whether the status still counts as running.
func (s TaskStatus) Active() bool {
	return s == StatusPending || s == StatusStarted || s == StatusProgress
}

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure || s == StatusRevoked
}

// Task is a durable record of one collection run
type Task struct {
	ID              string
	AppID           string
	AppName         string
	Actor           string
	TaskType        string
	Target          int
	Current         int
	Status          TaskStatus
	ProgressPercent int
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	ResultMessage   string
	ErrorMessage    string
}

// Package reviewscope is the review collection and topic discovery facade.
//
// An Engine ties a review source, the sentiment annotator, the repository,
// the task tracker and the topic engine together behind the operations the
// commands need.
package reviewscope

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cognicore/reviewscope/pkg/reviewscope/collect"
	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/sentiment"
	"github.com/cognicore/reviewscope/pkg/reviewscope/source"
	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
	"github.com/cognicore/reviewscope/pkg/reviewscope/topics"
	"github.com/cognicore/reviewscope/pkg/reviewscope/tracker"
)

// CommonLabels is how many shared labels a comparison reports.
const CommonLabels = 5

// Engine is the main facade
type Engine struct {
	store     store.Store
	tracker   *tracker.Tracker
	collector *collect.Collector
	topics    *topics.Engine
	appIDs    func(string) []string
	logger    *slog.Logger
}

// Options configures an Engine
type Options struct {
	Store  store.Store
	Source source.Source
	// Classifier may be nil; scores then come from star ratings.
	Classifier sentiment.Classifier
	Model      topics.Model
	Collect    collect.Options
	Topics     topics.Options
	// AppIDs expands an app id into every id its reviews are stored under.
	AppIDs func(id string) []string
	Logger *slog.Logger
	Now    func() time.Time
}

// New creates an Engine with the given dependencies
func New(opts Options) (*Engine, error) {
	if opts.Store == nil || opts.Source == nil || opts.Model == nil {
		return nil, fmt.Errorf("reviewscope: store, source and model are required: %w", internalerr.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AppIDs == nil {
		opts.AppIDs = func(id string) []string { return []string{id} }
	}
	if opts.Collect.Logger == nil {
		opts.Collect.Logger = opts.Logger
	}
	if opts.Topics.Logger == nil {
		opts.Topics.Logger = opts.Logger
	}

	tr := tracker.New(opts.Store, tracker.Options{Logger: opts.Logger, Now: opts.Now})
	annotator := sentiment.NewAnnotator(opts.Classifier, opts.Logger)
	return &Engine{
		store:     opts.Store,
		tracker:   tr,
		collector: collect.New(opts.Source, opts.Store, tr, annotator, opts.Collect),
		topics:    topics.NewEngine(opts.Model, opts.Topics),
		appIDs:    opts.AppIDs,
		logger:    opts.Logger,
	}, nil
}

// Close cleanly shuts down the Engine
func (e *Engine) Close() error {
	return e.store.Close()
}

// Tracker exposes task lifecycle lookups.
func (e *Engine) Tracker() *tracker.Tracker { return e.tracker }

// Collect runs one paginated collection. Callers wanting the one-run-per-app
// rule check Tracker().Active first.
func (e *Engine) Collect(ctx context.Context, req collect.Request) (collect.Summary, error) {
	return e.collector.Collect(ctx, req)
}

// Tasks lists recent tasks for an app, newest first.
func (e *Engine) Tasks(ctx context.Context, appID string, limit int) ([]store.Task, error) {
	return e.store.ListTasks(ctx, appID, limit)
}

// DiscoverTopics runs topic discovery over the scored reviews of an app and
// its aliases. Only repository failures are returned as errors; modeling
// outcomes are in the Result.
func (e *Engine) DiscoverTopics(ctx context.Context, appID string, filter store.Polarity) (topics.Result, error) {
	reviews, err := e.store.ListReviews(ctx, store.ReviewQuery{AppIDs: e.appIDs(appID), ScoredOnly: true})
	if err != nil {
		return topics.Result{}, fmt.Errorf("list reviews for %s: %w", appID, err)
	}
	return e.topics.Discover(reviews, filter), nil
}

// LabelCount is a topic label and how many apps share it.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Comparison is topic discovery across competing apps.
type Comparison struct {
	Filter  store.Polarity           `json:"filter"`
	Results map[string]topics.Result `json:"results"`
	// Common holds the most frequent distinct-topic labels across apps.
	Common []LabelCount `json:"common_themes"`
}

// CompareTopics discovers topics for every app and counts the labels they
// share. Only each app's distinct topics are counted, not every fitted topic,
// so one app's near-duplicate topics cannot stack a label. Apps without
// enough data contribute no labels.
func (e *Engine) CompareTopics(ctx context.Context, appIDs []string, filter store.Polarity) (Comparison, error) {
	if len(appIDs) == 0 {
		return Comparison{}, fmt.Errorf("compare topics: no apps: %w", internalerr.ErrInvalidInput)
	}

	cmp := Comparison{Filter: filter, Results: make(map[string]topics.Result, len(appIDs))}
	counts := make(map[string]int)
	var order []string
	for _, id := range appIDs {
		res, err := e.DiscoverTopics(ctx, id, filter)
		if err != nil {
			return Comparison{}, err
		}
		cmp.Results[id] = res
		for _, t := range res.Distinct {
			if counts[t.Label] == 0 {
				order = append(order, t.Label)
			}
			counts[t.Label]++
		}
	}

	for _, label := range order {
		cmp.Common = append(cmp.Common, LabelCount{Label: label, Count: counts[label]})
	}
	// first-seen order breaks ties
	sort.SliceStable(cmp.Common, func(i, j int) bool { return cmp.Common[i].Count > cmp.Common[j].Count })
	if len(cmp.Common) > CommonLabels {
		cmp.Common = cmp.Common[:CommonLabels]
	}
	return cmp, nil
}

// Stats aggregates sentiment for an app and its aliases.
func (e *Engine) Stats(ctx context.Context, appID string) (store.Stats, error) {
	stats, err := e.store.SentimentStats(ctx, e.appIDs(appID))
	if err != nil {
		return store.Stats{}, fmt.Errorf("stats for %s: %w", appID, err)
	}
	return stats, nil
}

// Status is the view of an app's collection state.
type Status struct {
	AppID  string
	Stats  store.Stats
	Active *store.Task
	Recent []store.Task
}

// Status reports sentiment stats, the running task for actor if any, and
// recent tasks.
func (e *Engine) Status(ctx context.Context, appID, actor string, recent int) (Status, error) {
	st := Status{AppID: appID}
	var err error
	if st.Stats, err = e.Stats(ctx, appID); err != nil {
		return Status{}, err
	}
	if actor != "" {
		task, ok, err := e.tracker.Active(ctx, appID, actor)
		if err != nil {
			return Status{}, fmt.Errorf("active task for %s: %w", appID, err)
		}
		if ok {
			st.Active = &task
		}
	}
	if st.Recent, err = e.Tasks(ctx, appID, recent); err != nil {
		return Status{}, fmt.Errorf("tasks for %s: %w", appID, err)
	}
	return st, nil
}

package reviewscope

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cognicore/reviewscope/internal/classifier"
	"github.com/cognicore/reviewscope/pkg/reviewscope/collect"
	"github.com/cognicore/reviewscope/pkg/reviewscope/config"
	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/sentiment"
	"github.com/cognicore/reviewscope/pkg/reviewscope/source"
	"github.com/cognicore/reviewscope/pkg/reviewscope/source/apple"
	"github.com/cognicore/reviewscope/pkg/reviewscope/source/jsonl"
	"github.com/cognicore/reviewscope/pkg/reviewscope/store/sqlite"
	"github.com/cognicore/reviewscope/pkg/reviewscope/topics"
	"github.com/cognicore/reviewscope/pkg/reviewscope/topics/nmf"
)

// Open builds an Engine from a validated configuration, backed by SQLite.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	comp, err := config.NewLoader(cfg).Load()
	if err != nil {
		return nil, err
	}
	src, err := NewSource(cfg.Source, logger)
	if err != nil {
		return nil, err
	}

	st, err := sqlite.OpenSQLite(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Database, err)
	}

	eng, err := New(Options{
		Store:      st,
		Source:     src,
		Classifier: NewClassifier(cfg.Classifier),
		Model:      nmf.New(cfg.Topics.Iterations, cfg.Topics.Seed),
		Collect:    CollectOptions(cfg.Collector),
		Topics:     TopicOptions(cfg.Topics, comp),
		AppIDs:     cfg.AppIDs,
		Logger:     logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return eng, nil
}

// NewSource builds the configured review source.
func NewSource(cfg config.Source, logger *slog.Logger) (source.Source, error) {
	switch cfg.Kind {
	case config.SourceApple:
		return &apple.Client{Country: cfg.Country}, nil
	case config.SourceJSONL:
		return jsonl.New(cfg.Path, logger), nil
	}
	return nil, fmt.Errorf("unknown source kind %q: %w", cfg.Kind, internalerr.ErrInvalidConfig)
}

// NewClassifier returns the hosted classifier, or nil when no endpoint is
// configured so scores fall back to star ratings.
func NewClassifier(cfg config.Classifier) sentiment.Classifier {
	if cfg.Endpoint == "" {
		return nil
	}
	return &classifier.Client{
		Endpoint:   cfg.Endpoint,
		APIKey:     cfg.APIKey(),
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// CollectOptions maps collector settings.
func CollectOptions(cfg config.Collector) collect.Options {
	return collect.Options{
		PageSize: cfg.PageSize,
		MaxPages: cfg.MaxPages,
		Retry: collect.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
		},
	}
}

// TopicOptions maps topic settings and loaded rule files.
func TopicOptions(cfg config.Topics, comp *config.Components) topics.Options {
	opts := topics.DefaultOptions()
	opts.NumTopics = cfg.NumTopics
	opts.MaxFeatures = cfg.MaxFeatures
	opts.MinDF = cfg.MinDF
	opts.MaxDF = cfg.MaxDF
	opts.DistinctCap = cfg.DistinctCap
	opts.QuotesPerTopic = cfg.QuotesPerTopic
	opts.MinDominance = cfg.MinDominance
	if comp != nil {
		opts.Stopwords = comp.Stoplist.All()
		opts.Themes = comp.Themes
	}
	return opts
}

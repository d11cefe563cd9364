package topics

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cognicore/reviewscope/pkg/reviewscope/ingest"
	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/stoplist"
	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
)

// Options tunes discovery.
type Options struct {
	NumTopics   int
	MaxFeatures int
	MinDF       int
	MaxDF       float64
	NGramMin    int
	NGramMax    int
	// TopTerms is how many terms each topic reports.
	TopTerms int
	// LabelTerms is how many top terms feed labeling and coherence.
	LabelTerms          int
	DistinctCap         int
	SimilarityThreshold float64
	QuotesPerTopic      int
	MinDominance        float64
	// MinReviews is the smallest corpus worth fitting.
	MinReviews int

	Stopwords []string
	Themes    []Theme
	Logger    *slog.Logger
}

// DefaultOptions returns the production settings with the built-in stoplist
// and theme table.
func DefaultOptions() Options {
	return Options{
		NumTopics:           10,
		MaxFeatures:         500,
		MinDF:               5,
		MaxDF:               0.5,
		NGramMin:            1,
		NGramMax:            3,
		TopTerms:            10,
		LabelTerms:          5,
		DistinctCap:         3,
		SimilarityThreshold: 0.6,
		QuotesPerTopic:      2,
		MinDominance:        0.08,
		MinReviews:          10,
		Stopwords:           stoplist.Default().All(),
		Themes:              DefaultThemes(),
	}
}

// Engine runs topic discovery. It holds no per-run state and is safe for
// concurrent use as long as the Model is.
type Engine struct {
	model  Model
	vec    Vectorizer
	opts   Options
	logger *slog.Logger
}

// NewEngine wires a model. Zero option fields take their defaults; a nil
// Themes slice means the built-in table.
func NewEngine(model Model, opts Options) *Engine {
	def := DefaultOptions()
	if opts.NumTopics <= 0 {
		opts.NumTopics = def.NumTopics
	}
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = def.MaxFeatures
	}
	if opts.MinDF <= 0 {
		opts.MinDF = def.MinDF
	}
	if opts.MaxDF <= 0 || opts.MaxDF > 1 {
		opts.MaxDF = def.MaxDF
	}
	if opts.NGramMin <= 0 {
		opts.NGramMin = def.NGramMin
	}
	if opts.NGramMax < opts.NGramMin {
		opts.NGramMax = max(def.NGramMax, opts.NGramMin)
	}
	if opts.TopTerms <= 0 {
		opts.TopTerms = def.TopTerms
	}
	if opts.LabelTerms <= 0 {
		opts.LabelTerms = def.LabelTerms
	}
	if opts.DistinctCap <= 0 {
		opts.DistinctCap = def.DistinctCap
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = def.SimilarityThreshold
	}
	if opts.QuotesPerTopic <= 0 {
		opts.QuotesPerTopic = def.QuotesPerTopic
	}
	if opts.MinDominance <= 0 {
		opts.MinDominance = def.MinDominance
	}
	if opts.MinReviews <= 0 {
		opts.MinReviews = def.MinReviews
	}
	if opts.Stopwords == nil {
		opts.Stopwords = def.Stopwords
	}
	if opts.Themes == nil {
		opts.Themes = def.Themes
	} else {
		opts.Themes = CopyThemes(opts.Themes)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pipeline := ingest.NewPipeline(ingest.NewTokenizer(opts.Stopwords), opts.NGramMin, opts.NGramMax)
	return &Engine{
		model: model,
		vec: Vectorizer{
			Pipeline:    pipeline,
			MaxFeatures: opts.MaxFeatures,
			MinDF:       opts.MinDF,
			MaxDF:       opts.MaxDF,
		},
		opts:   opts,
		logger: opts.Logger,
	}
}

// Discover finds themes in reviews after applying the polarity filter.
func (e *Engine) Discover(reviews []store.Review, filter store.Polarity) Result {
	filtered := FilterReviews(reviews, filter)
	res := Result{Filter: filter, RawCount: len(filtered)}

	if res.RawCount < e.opts.MinReviews {
		res.FilteredOut = res.RawCount
		return e.insufficient(res, fmt.Sprintf("insufficient reviews for analysis: found %d", res.RawCount))
	}

	docs := make([]store.Review, 0, len(filtered))
	texts := make([]string, 0, len(filtered))
	for _, r := range filtered {
		if text := ingest.Normalize(r.Content); text != "" {
			docs = append(docs, r)
			texts = append(texts, text)
		}
	}
	res.UsableCount = len(docs)
	res.FilteredOut = res.RawCount - res.UsableCount
	if res.UsableCount < e.opts.MinReviews {
		return e.insufficient(res, fmt.Sprintf("insufficient valid review text: found %d usable reviews", res.UsableCount))
	}

	matrix, err := e.vec.Build(texts)
	if err != nil {
		return e.fitError(res, err)
	}
	res.VocabularySize = len(matrix.Vocabulary)

	k := e.opts.NumTopics
	fit, err := e.model.Fit(matrix, k)
	if err != nil {
		return e.fitError(res, fmt.Errorf("fit %d topics: %w", k, err))
	}
	if err := checkShape(fit, k, len(matrix.Vocabulary), len(docs)); err != nil {
		return e.fitError(res, err)
	}
	res.ReconstructionError = fit.ReconstructionError

	topics := e.buildTopics(fit.TopicTerms, matrix.Vocabulary)
	mentionStats(topics, fit.DocTopics, res.UsableCount)
	attachQuotes(topics, docs, fit.DocTopics, quoteRules{
		perTopic:     e.opts.QuotesPerTopic,
		minDominance: e.opts.MinDominance,
	})

	ranked := append([]Topic(nil), topics...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Coherence > ranked[j].Coherence
	})
	res.Topics = ranked
	res.Distinct = SelectDistinct(ranked, e.opts.DistinctCap, e.opts.SimilarityThreshold)
	res.Kind = KindOK

	e.logger.Info("topics discovered",
		"filter", filter, "reviews", res.UsableCount, "vocabulary", res.VocabularySize,
		"topics", len(res.Topics), "distinct", len(res.Distinct),
		"reconstruction_error", res.ReconstructionError)
	return res
}

// buildTopics extracts top terms, coherence and labels, indexed by topic id.
func (e *Engine) buildTopics(topicTerms [][]float64, vocab []string) []Topic {
	topics := make([]Topic, len(topicTerms))
	labelInput := make([][]string, len(topicTerms))
	for id, weights := range topicTerms {
		idx := make([]int, len(weights))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return weights[idx[a]] > weights[idx[b]] })
		idx = idx[:min(e.opts.TopTerms, len(idx))]

		t := Topic{ID: id, TopTerms: make([]TermWeight, len(idx))}
		for i, j := range idx {
			t.TopTerms[i] = TermWeight{Term: vocab[j], Weight: weights[j]}
			if i < e.opts.LabelTerms {
				t.Coherence += weights[j]
			}
		}
		topics[id] = t
		labelInput[id] = t.Terms(e.opts.LabelTerms)
	}

	for id, l := range AssignLabels(labelInput, e.opts.Themes) {
		topics[id].Label = l.Text
		topics[id].LabelKeywords = l.Keywords
		topics[id].LabelExcludes = l.Excludes
	}
	return topics
}

func (e *Engine) insufficient(res Result, msg string) Result {
	res.Kind = KindInsufficientData
	res.Message = msg
	res.Err = fmt.Errorf("%s: %w", msg, internalerr.ErrInsufficientData)
	e.logger.Info("topic discovery skipped", "filter", res.Filter, "raw", res.RawCount, "usable", res.UsableCount)
	return res
}

func (e *Engine) fitError(res Result, err error) Result {
	res.Kind = KindFitError
	res.Message = "topic modeling failed: " + err.Error()
	if !errors.Is(err, internalerr.ErrModelFit) {
		err = fmt.Errorf("%w: %v", internalerr.ErrModelFit, err)
	}
	res.Err = err
	e.logger.Warn("topic modeling failed", "filter", res.Filter, "usable", res.UsableCount, "err", err)
	return res
}

func checkShape(fit Fit, k, vocab, docs int) error {
	if len(fit.TopicTerms) != k || len(fit.DocTopics) != docs {
		return fmt.Errorf("model returned %d topics for %d docs, want %d and %d: %w",
			len(fit.TopicTerms), len(fit.DocTopics), k, docs, internalerr.ErrModelFit)
	}
	for _, row := range fit.TopicTerms {
		if len(row) != vocab {
			return fmt.Errorf("topic row has %d weights, vocabulary has %d: %w", len(row), vocab, internalerr.ErrModelFit)
		}
	}
	for _, row := range fit.DocTopics {
		if len(row) != k {
			return fmt.Errorf("document row has %d topics, want %d: %w", len(row), k, internalerr.ErrModelFit)
		}
	}
	return nil
}

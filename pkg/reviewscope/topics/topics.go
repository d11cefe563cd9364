// Package topics discovers recurring themes in a review corpus.
//
// Discover filters reviews by polarity, vectorizes their text into n-gram
// counts, fits a topic model, then labels, ranks, deduplicates and annotates
// the topics with mention statistics and representative quotes. Failures are
// reported inside the Result, never as a panic.
package topics

import (
	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
)

// TermWeight is a vocabulary term and its weight in a topic.
type TermWeight struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Quote is a review excerpt that represents a topic well.
type Quote struct {
	ReviewID    string   `json:"review_id"`
	Text        string   `json:"text"`
	Probability float64  `json:"probability"`
	Rating      int      `json:"rating"`
	Sentiment   *float64 `json:"sentiment,omitempty"`
}

// Topic is one discovered theme. Topics are built fresh for every run.
type Topic struct {
	ID                 int          `json:"id"`
	TopTerms           []TermWeight `json:"top_terms"`
	Coherence          float64      `json:"coherence"`
	Label              string       `json:"label"`
	LabelKeywords      []string     `json:"label_keywords"`
	LabelExcludes      []string     `json:"label_excludes"`
	Mentions           int          `json:"mentions"`
	MentionPercentage  float64      `json:"mention_percentage"`
	AverageProbability float64      `json:"average_probability"`
	Quotes             []Quote      `json:"quotes,omitempty"`
}

// Terms returns the first n top terms.
func (t Topic) Terms(n int) []string {
	n = min(n, len(t.TopTerms))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = t.TopTerms[i].Term
	}
	return out
}

// Kind tags the outcome of a discovery run.
type Kind string

const (
	KindOK               Kind = "ok"
	KindInsufficientData Kind = "insufficient_data"
	KindFitError         Kind = "fit_error"
)

// Result is the outcome of Discover.
type Result struct {
	Kind   Kind           `json:"kind"`
	Filter store.Polarity `json:"filter"`
	// Topics holds every topic, most coherent first.
	Topics []Topic `json:"topics"`
	// Distinct is the small, deduplicated selection for presentation.
	Distinct            []Topic `json:"distinct_topics"`
	RawCount            int     `json:"raw_review_count"`
	UsableCount         int     `json:"usable_review_count"`
	FilteredOut         int     `json:"filtered_out_reviews"`
	VocabularySize      int     `json:"vocabulary_size"`
	ReconstructionError float64 `json:"reconstruction_error"`
	Message             string  `json:"message,omitempty"`
	Err                 error   `json:"-"`
}

// OK reports whether topics were produced.
func (r Result) OK() bool { return r.Kind == KindOK }

// TermMatrix is a dense document-term count matrix. Counts[d][t] counts
// Vocabulary[t] in document d.
type TermMatrix struct {
	Vocabulary []string
	Counts     [][]float64
}

// Docs returns the number of documents.
func (m TermMatrix) Docs() int { return len(m.Counts) }

// Fit is a fitted topic model. TopicTerms is k×vocab; DocTopics is docs×k
// with rows summing to 1.
type Fit struct {
	TopicTerms          [][]float64
	DocTopics           [][]float64
	ReconstructionError float64
}

// Model fits k topics to a term matrix.
type Model interface {
	Fit(m TermMatrix, k int) (Fit, error)
}

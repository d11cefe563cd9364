package topics

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/reviewscope/pkg/reviewscope/ingest"
	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
)

// Vectorizer builds count matrices from normalized review text.
type Vectorizer struct {
	Pipeline *ingest.Pipeline
	// MaxFeatures keeps the most frequent terms across the corpus.
	MaxFeatures int
	// MinDF drops terms found in fewer documents.
	MinDF int
	// MaxDF drops terms found in more than this fraction of documents.
	MaxDF float64
}

// Build counts terms per document and prunes the vocabulary. The vocabulary
// is sorted alphabetically. Documents whose terms were all pruned keep an
// all-zero row so rows stay aligned with docs.
func (v Vectorizer) Build(docs []string) (TermMatrix, error) {
	if len(docs) == 0 {
		return TermMatrix{}, fmt.Errorf("vectorize: no documents: %w", internalerr.ErrModelFit)
	}

	perDoc := make([]map[string]int, len(docs))
	df := make(map[string]int)
	tf := make(map[string]int)
	for i, doc := range docs {
		counts := make(map[string]int)
		for _, term := range v.Pipeline.Process(doc).Terms {
			counts[term]++
		}
		for term, n := range counts {
			df[term]++
			tf[term] += n
		}
		perDoc[i] = counts
	}

	maxDocs := len(docs)
	if v.MaxDF > 0 && v.MaxDF < 1 {
		maxDocs = int(math.Floor(v.MaxDF * float64(len(docs))))
	}
	minDocs := max(v.MinDF, 1)
	if maxDocs < minDocs {
		return TermMatrix{}, fmt.Errorf("vectorize: max_df keeps at most %d documents, fewer than min_df %d: %w",
			maxDocs, minDocs, internalerr.ErrModelFit)
	}

	var kept []string
	for term, n := range df {
		if n >= minDocs && n <= maxDocs {
			kept = append(kept, term)
		}
	}
	if len(kept) == 0 {
		return TermMatrix{}, fmt.Errorf("vectorize: no terms remain after pruning: %w", internalerr.ErrModelFit)
	}

	if v.MaxFeatures > 0 && len(kept) > v.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if tf[kept[i]] != tf[kept[j]] {
				return tf[kept[i]] > tf[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:v.MaxFeatures]
	}
	sort.Strings(kept)

	index := make(map[string]int, len(kept))
	for i, term := range kept {
		index[term] = i
	}
	m := TermMatrix{Vocabulary: kept, Counts: make([][]float64, len(docs))}
	for d, counts := range perDoc {
		row := make([]float64, len(kept))
		for term, n := range counts {
			if j, ok := index[term]; ok {
				row[j] = float64(n)
			}
		}
		m.Counts[d] = row
	}
	return m, nil
}

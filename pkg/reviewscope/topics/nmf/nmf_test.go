package nmf

import (
	"errors"
	"math"
	"testing"

	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/topics"
)

// blockMatrix has two disjoint groups of documents and terms.
func blockMatrix() topics.TermMatrix {
	return topics.TermMatrix{
		Vocabulary: []string{"crash", "freeze", "lag", "playlist", "library", "shuffle"},
		Counts: [][]float64{
			{3, 2, 1, 0, 0, 0},
			{2, 3, 1, 0, 0, 0},
			{4, 1, 2, 0, 0, 0},
			{0, 0, 0, 3, 2, 1},
			{0, 0, 0, 2, 3, 2},
			{0, 0, 0, 4, 1, 1},
		},
	}
}

func TestFitSeparatesBlocks(t *testing.T) {
	fit, err := New(300, 42).Fit(blockMatrix(), 2)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if len(fit.TopicTerms) != 2 || len(fit.TopicTerms[0]) != 6 {
		t.Fatalf("unexpected topic shape %dx%d", len(fit.TopicTerms), len(fit.TopicTerms[0]))
	}
	if len(fit.DocTopics) != 6 {
		t.Fatalf("expected 6 document rows, got %d", len(fit.DocTopics))
	}

	for d, row := range fit.DocTopics {
		var sum float64
		for _, p := range row {
			if p < 0 {
				t.Fatalf("negative probability in row %d: %v", d, row)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d sums to %v", d, sum)
		}
	}

	first := topicOf(fit.DocTopics[0])
	for d := 1; d < 3; d++ {
		if topicOf(fit.DocTopics[d]) != first {
			t.Fatalf("doc %d should share a topic with doc 0", d)
		}
	}
	for d := 3; d < 6; d++ {
		if topicOf(fit.DocTopics[d]) == first {
			t.Fatalf("doc %d should not share a topic with doc 0", d)
		}
	}
	if fit.ReconstructionError < 0 || math.IsNaN(fit.ReconstructionError) {
		t.Fatalf("invalid reconstruction error %v", fit.ReconstructionError)
	}
}

func TestFitIsDeterministic(t *testing.T) {
	a, err := New(50, 7).Fit(blockMatrix(), 2)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	b, err := New(50, 7).Fit(blockMatrix(), 2)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if a.ReconstructionError != b.ReconstructionError {
		t.Fatalf("same seed gave %v and %v", a.ReconstructionError, b.ReconstructionError)
	}
}

func TestFitUniformForEmptyDocument(t *testing.T) {
	m := blockMatrix()
	m.Counts = append(m.Counts, make([]float64, len(m.Vocabulary)))

	fit, err := Model{Iterations: 20, Seed: 1}.Fit(m, 2)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	last := fit.DocTopics[len(fit.DocTopics)-1]
	if math.Abs(last[0]+last[1]-1) > 1e-9 {
		t.Fatalf("empty document row should still sum to 1, got %v", last)
	}
}

func TestFitRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		m topics.TermMatrix
		k int
	}{
		"zero topics": {blockMatrix(), 0},
		"empty":       {topics.TermMatrix{}, 2},
		"ragged":      {topics.TermMatrix{Vocabulary: []string{"a", "b"}, Counts: [][]float64{{1}}}, 1},
		"negative":    {topics.TermMatrix{Vocabulary: []string{"a"}, Counts: [][]float64{{-1}}}, 1},
		"all zero":    {topics.TermMatrix{Vocabulary: []string{"a"}, Counts: [][]float64{{0}}}, 1},
	}
	for name, tc := range cases {
		if _, err := New(10, 1).Fit(tc.m, tc.k); !errors.Is(err, internalerr.ErrModelFit) {
			t.Fatalf("%s: expected ErrModelFit, got %v", name, err)
		}
	}
}

func topicOf(row []float64) int {
	best := 0
	for i, p := range row {
		if p > row[best] {
			best = i
		}
	}
	return best
}

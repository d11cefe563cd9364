// Package nmf fits topics by non-negative matrix factorization.
//
// The document-term matrix V (docs×terms) is approximated by W·H with W
// docs×k and H k×terms, using Lee-Seung multiplicative updates that minimize
// the Frobenius norm of V − W·H. Rows of H are topic-term weights; rows of W,
// normalized to sum to 1, are document-topic probabilities.
package nmf

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/topics"
)

const eps = 1e-10

// Model is a seeded NMF fitter. The same seed and input give the same fit.
type Model struct {
	Iterations int
	Seed       int64
	// Tol stops early once the relative error improvement over ten
	// iterations falls below it. Zero runs every iteration.
	Tol float64
}

var _ topics.Model = Model{}

// New returns a model with the given iteration budget and seed.
func New(iterations int, seed int64) Model {
	return Model{Iterations: iterations, Seed: seed, Tol: 1e-4}
}

// Fit implements topics.Model.
func (m Model) Fit(tm topics.TermMatrix, k int) (fit topics.Fit, err error) {
	n, terms := tm.Docs(), len(tm.Vocabulary)
	switch {
	case k <= 0:
		return topics.Fit{}, fmt.Errorf("nmf: k must be positive, got %d: %w", k, internalerr.ErrModelFit)
	case n == 0 || terms == 0:
		return topics.Fit{}, fmt.Errorf("nmf: empty %dx%d matrix: %w", n, terms, internalerr.ErrModelFit)
	}

	// gonum reports shape errors by panicking
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("nmf: %v: %w", r, internalerr.ErrModelFit)
		}
	}()

	v := mat.NewDense(n, terms, nil)
	var total float64
	for i, row := range tm.Counts {
		if len(row) != terms {
			return topics.Fit{}, fmt.Errorf("nmf: row %d has %d columns, want %d: %w", i, len(row), terms, internalerr.ErrModelFit)
		}
		for j, c := range row {
			if c < 0 || math.IsNaN(c) {
				return topics.Fit{}, fmt.Errorf("nmf: invalid count %v at (%d,%d): %w", c, i, j, internalerr.ErrModelFit)
			}
			v.Set(i, j, c)
			total += c
		}
	}
	if total == 0 {
		return topics.Fit{}, fmt.Errorf("nmf: all-zero matrix: %w", internalerr.ErrModelFit)
	}

	w, h := m.init(n, terms, k, total/float64(n*terms))

	iterations := m.Iterations
	if iterations <= 0 {
		iterations = 200
	}
	prev := math.Inf(1)
	var (
		wtv, wtw, wtwh mat.Dense
		vht, hht, whht mat.Dense
	)
	for it := 0; it < iterations; it++ {
		// H ← H ⊙ (WᵀV) ⊘ (WᵀWH)
		wtv.Mul(w.T(), v)
		wtw.Mul(w.T(), w)
		wtwh.Mul(&wtw, h)
		h.Apply(func(i, j int, x float64) float64 {
			return x * wtv.At(i, j) / (wtwh.At(i, j) + eps)
		}, h)

		// W ← W ⊙ (VHᵀ) ⊘ (WHHᵀ)
		vht.Mul(v, h.T())
		hht.Mul(h, h.T())
		whht.Mul(w, &hht)
		w.Apply(func(i, j int, x float64) float64 {
			return x * vht.At(i, j) / (whht.At(i, j) + eps)
		}, w)

		if m.Tol > 0 && (it+1)%10 == 0 {
			cur := reconstructionError(v, w, h)
			if prev-cur < m.Tol*prev {
				break
			}
			prev = cur
		}
	}

	return topics.Fit{
		TopicTerms:          rows(h),
		DocTopics:           normalizeRows(w),
		ReconstructionError: reconstructionError(v, w, h),
	}, nil
}

// init fills W and H with seeded uniform noise scaled to the data mean.
func (m Model) init(n, terms, k int, mean float64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(m.Seed))
	scale := math.Sqrt(mean / float64(k))
	w := mat.NewDense(n, k, nil)
	h := mat.NewDense(k, terms, nil)
	w.Apply(func(_, _ int, _ float64) float64 { return scale * (rng.Float64() + eps) }, w)
	h.Apply(func(_, _ int, _ float64) float64 { return scale * (rng.Float64() + eps) }, h)
	return w, h
}

// reconstructionError is ‖V − WH‖_F.
func reconstructionError(v, w, h *mat.Dense) float64 {
	var wh, diff mat.Dense
	wh.Mul(w, h)
	diff.Sub(v, &wh)
	return mat.Norm(&diff, 2)
}

func rows(d *mat.Dense) [][]float64 {
	r, c := d.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, d)
	}
	return out
}

// normalizeRows turns W into per-document distributions; an all-zero row
// becomes uniform.
func normalizeRows(w *mat.Dense) [][]float64 {
	out := rows(w)
	for _, row := range out {
		var sum float64
		for _, x := range row {
			sum += x
		}
		for j := range row {
			if sum > 0 {
				row[j] /= sum
			} else {
				row[j] = 1 / float64(len(row))
			}
		}
	}
	return out
}

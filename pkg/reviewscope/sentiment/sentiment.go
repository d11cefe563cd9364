// Package sentiment turns a review body into a signed score in [-1, 1].
//
// The classifier's label picks the sign and its confidence the magnitude:
// a positive verdict scores +confidence, a negative one -confidence and a
// neutral one 0. The star rating is consulted only when there is no usable
// verdict, as with empty text, a failed call or an unknown label.
package sentiment

import (
	"context"
	"log/slog"
	"math"
	"strings"
)

// Prediction is one classifier verdict.
type Prediction struct {
	Label      string
	Confidence float64
}

// Classifier scores a piece of text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) (Prediction, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, text string) (Prediction, error) {
	return f(ctx, text)
}

// Annotator maps classifier output and ratings to scores.
type Annotator struct {
	classifier Classifier
	logger     *slog.Logger
}

// NewAnnotator wires a classifier. A nil classifier scores from ratings only.
func NewAnnotator(c Classifier, logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotator{classifier: c, logger: logger}
}

// Score returns the sentiment of a review. Classifier trouble falls back to
// the rating; the only error is ctx's, so a shutdown never stores a
// fallback score.
func (a *Annotator) Score(ctx context.Context, text string, rating int) (float64, error) {
	if strings.TrimSpace(text) == "" || a.classifier == nil {
		return RatingScore(rating), nil
	}

	pred, err := a.classifier.Classify(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		a.logger.Warn("classifier failed, using rating", "rating", rating, "err", err)
		return RatingScore(rating), nil
	}
	label, ok := ParseLabel(pred.Label)
	if !ok {
		a.logger.Warn("unrecognized classifier label, using rating", "label", pred.Label, "rating", rating)
		return RatingScore(rating), nil
	}
	if math.IsNaN(pred.Confidence) {
		return RatingScore(rating), nil
	}

	conf := clamp(pred.Confidence, 0, 1)
	switch label {
	case LabelPositive:
		return conf, nil
	case LabelNegative:
		return -conf, nil
	}
	return 0, nil
}

// RatingScore is the fallback used without a usable classifier verdict.
func RatingScore(rating int) float64 {
	switch {
	case rating >= 4:
		return 0.5
	case rating <= 2:
		return -0.5
	}
	return 0
}

// Label is a normalized classifier label.
type Label string

const (
	LabelPositive Label = "POSITIVE"
	LabelNegative Label = "NEGATIVE"
	LabelNeutral  Label = "NEUTRAL"
)

// ParseLabel understands the common label vocabularies of hosted sentiment
// models: POSITIVE/NEGATIVE/NEUTRAL, LABEL_0..2, pos/neg/neu and "N stars".
func ParseLabel(raw string) (Label, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "positive", "pos", "label_2":
		return LabelPositive, true
	case "negative", "neg", "label_0":
		return LabelNegative, true
	case "neutral", "neu", "label_1":
		return LabelNeutral, true
	}
	if strings.HasSuffix(s, " star") || strings.HasSuffix(s, " stars") {
		switch s[0] {
		case '1', '2':
			return LabelNegative, true
		case '3':
			return LabelNeutral, true
		case '4', '5':
			return LabelPositive, true
		}
	}
	return "", false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

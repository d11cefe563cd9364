package sentiment

import (
	"context"
	"errors"
	"testing"
)

func fixed(label string, conf float64) Classifier {
	return ClassifierFunc(func(ctx context.Context, text string) (Prediction, error) {
		return Prediction{Label: label, Confidence: conf}, nil
	})
}

// score fails the test when Score errors.
func score(t *testing.T, a *Annotator, text string, rating int) float64 {
	t.Helper()
	got, err := a.Score(context.Background(), text, rating)
	if err != nil {
		t.Fatalf("Score(%q, %d): %v", text, rating, err)
	}
	return got
}

func TestScoreUsesLabelForSign(t *testing.T) {
	cases := []struct {
		label  string
		rating int
		want   float64
	}{
		{"1 star", 5, -0.9},
		{"NEGATIVE", 4, -0.9},
		{"5 stars", 1, 0.9},
		{"POSITIVE", 2, 0.9},
		{"3 stars", 5, 0},
		{"NEUTRAL", 1, 0},
		{"5 stars", 0, 0.9},
		{"2 stars", 0, -0.9},
	}
	for _, c := range cases {
		a := NewAnnotator(fixed(c.label, 0.9), nil)
		if got := score(t, a, "some text", c.rating); got != c.want {
			t.Errorf("label %q rating %d: got %v, want %v", c.label, c.rating, got, c.want)
		}
	}
}

func TestScoreCanceledContextIsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := NewAnnotator(ClassifierFunc(func(ctx context.Context, text string) (Prediction, error) {
		cancel()
		return Prediction{}, ctx.Err()
	}), nil)

	if _, err := a.Score(ctx, "crashes", 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScoreEmptyTextSkipsClassifier(t *testing.T) {
	called := false
	a := NewAnnotator(ClassifierFunc(func(ctx context.Context, text string) (Prediction, error) {
		called = true
		return Prediction{Label: "POSITIVE", Confidence: 1}, nil
	}), nil)

	if got := score(t, a, "   \n", 5); got != 0.5 {
		t.Errorf("got %v, want 0.5", got)
	}
	if got := score(t, a, "", 1); got != -0.5 {
		t.Errorf("got %v, want -0.5", got)
	}
	if called {
		t.Error("classifier must not be called for empty text")
	}
}

func TestScoreFallsBackOnError(t *testing.T) {
	a := NewAnnotator(ClassifierFunc(func(ctx context.Context, text string) (Prediction, error) {
		return Prediction{}, errors.New("model offline")
	}), nil)

	if got := score(t, a, "crashes", 2); got != -0.5 {
		t.Errorf("got %v, want -0.5", got)
	}
	if got := score(t, a, "fine", 3); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestScoreFallsBackOnUnknownLabel(t *testing.T) {
	a := NewAnnotator(fixed("MIXED", 0.99), nil)
	if got := score(t, a, "meh", 5); got != 0.5 {
		t.Errorf("got %v, want 0.5", got)
	}
}

func TestScoreIsClamped(t *testing.T) {
	a := NewAnnotator(fixed("POSITIVE", 1.7), nil)
	if got := score(t, a, "best ever", 5); got != 1 {
		t.Errorf("got %v, want 1", got)
	}
	a = NewAnnotator(fixed("NEGATIVE", -0.3), nil)
	if got := score(t, a, "odd", 1); got != 0 {
		t.Errorf("negative confidence should clamp to 0, got %v", got)
	}
}

func TestNilClassifier(t *testing.T) {
	a := NewAnnotator(nil, nil)
	if got := score(t, a, "great", 4); got != 0.5 {
		t.Errorf("got %v, want 0.5", got)
	}
}

func TestParseLabel(t *testing.T) {
	cases := map[string]Label{
		"POSITIVE": LabelPositive,
		"negative": LabelNegative,
		"LABEL_1":  LabelNeutral,
		"5 stars":  LabelPositive,
		"1 star":   LabelNegative,
		"3 stars":  LabelNeutral,
	}
	for in, want := range cases {
		got, ok := ParseLabel(in)
		if !ok || got != want {
			t.Errorf("ParseLabel(%q) = %q,%v want %q", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "mixed", "9 stars", "stars"} {
		if _, ok := ParseLabel(in); ok {
			t.Errorf("ParseLabel(%q) should fail", in)
		}
	}
}

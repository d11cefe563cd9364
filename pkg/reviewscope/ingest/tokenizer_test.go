package ingest

import (
	"strings"
	"testing"
)

func TestTokenizerBasic(t *testing.T) {
	stopwords := []string{"the", "a", "and", "of"}
	tokenizer := NewTokenizer(stopwords)

	tokens := tokenizer.Tokenize("The shuffle button skips the song")

	want := []string{"shuffle", "button", "skips", "song"}
	if !equalTokens(tokens, want) {
		t.Errorf("Tokenize = %v, want %v", tokens, want)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Ads EVERY 2 songs!!!":   "ads every songs",
		"  crash\n\ton   start ": "crash on start",
		"don't":                  "don t",
		"1234 !!":                "",
		"":                       "",
		"Café résumé":            "café résumé",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenizerDropsShortTokens(t *testing.T) {
	tokenizer := NewTokenizer([]string{})

	tokens := tokenizer.Tokenize("a b c machine learning x")
	want := []string{"machine", "learning"}
	if !equalTokens(tokens, want) {
		t.Errorf("Tokenize = %v, want %v", tokens, want)
	}
}

func TestTokenizerSplitsOnDigitsAndHyphens(t *testing.T) {
	tokenizer := NewTokenizer([]string{})

	tokens := tokenizer.Tokenize("auto-play broke in v8.2")
	want := []string{"auto", "play", "broke", "in"}
	if !equalTokens(tokens, want) {
		t.Errorf("Tokenize = %v, want %v", tokens, want)
	}
}

func TestTokenizerCaseNormalization(t *testing.T) {
	tokenizer := NewTokenizer([]string{})

	for _, tok := range tokenizer.Tokenize("PREMIUM Paywall Shuffle") {
		if tok != strings.ToLower(tok) {
			t.Errorf("Token %s should be lowercased", tok)
		}
	}
}

func TestTokenizerStopwordCaseInsensitive(t *testing.T) {
	tokenizer := NewTokenizer([]string{"THE", "A"})

	for _, tok := range tokenizer.Tokenize("The cat and the dog") {
		if tok == "the" || tok == "a" {
			t.Errorf("Stopword should be filtered regardless of case: %s", tok)
		}
	}
}

func TestAddRemoveStopword(t *testing.T) {
	tokenizer := NewTokenizer([]string{"the"})

	tokens := tokenizer.Tokenize("the cat")
	if len(tokens) != 1 || tokens[0] != "cat" {
		t.Error("Should filter 'the'")
	}

	tokenizer.RemoveStopword("the")
	if tokens = tokenizer.Tokenize("the cat"); len(tokens) != 2 {
		t.Error("'the' should not be filtered after removal")
	}

	tokenizer.AddStopword("the")
	if tokens = tokenizer.Tokenize("the cat"); len(tokens) != 1 || tokens[0] != "cat" {
		t.Error("Should filter 'the' after re-adding")
	}
}

func TestTokenizerEmptyInput(t *testing.T) {
	tokenizer := NewTokenizer([]string{})

	if tokens := tokenizer.Tokenize("   \t\n\r   "); len(tokens) != 0 {
		t.Errorf("Whitespace-only input should produce 0 tokens, got %d", len(tokens))
	}
	if tokens := tokenizer.Tokenize(""); len(tokens) != 0 {
		t.Error("Empty input should produce empty output")
	}
}

func TestNGrams(t *testing.T) {
	tokens := []string{"release", "radar", "broken"}

	got := NGrams(tokens, 1, 3)
	want := []string{
		"release", "radar", "broken",
		"release radar", "radar broken",
		"release radar broken",
	}
	if !equalTokens(got, want) {
		t.Errorf("NGrams = %v, want %v", got, want)
	}

	if got := NGrams(tokens, 2, 2); len(got) != 2 {
		t.Errorf("bigrams only = %v", got)
	}
	if got := NGrams(nil, 1, 3); len(got) != 0 {
		t.Errorf("no tokens should give no n-grams, got %v", got)
	}
}

// Helper function for comparing token lists
func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenizer handles text tokenization and normalization
type Tokenizer struct {
	stopwords map[string]struct{}
	minLen    int
}

// NewTokenizer creates a new tokenizer with the given stopword list
func NewTokenizer(stopwords []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: stops, minLen: 2}
}

// Normalize lowercases text, turns every non-letter into a space and
// collapses runs of whitespace.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := true
	for _, r := range text {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Tokenize splits text into normalized tokens, removing stopwords and
// tokens shorter than two letters.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(Normalize(text)) {
		if utf8.RuneCountInString(word) < t.minLen || t.isStopword(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

func (t *Tokenizer) isStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// AddStopword adds a word to the stopword list
func (t *Tokenizer) AddStopword(word string) {
	t.stopwords[strings.ToLower(word)] = struct{}{}
}

// RemoveStopword removes a word from the stopword list
func (t *Tokenizer) RemoveStopword(word string) {
	delete(t.stopwords, strings.ToLower(word))
}

// NGrams returns every contiguous n-gram of tokens for n in [minN, maxN],
// joined by single spaces. Unigrams come first, then bigrams, and so on.
func NGrams(tokens []string, minN, maxN int) []string {
	if minN < 1 {
		minN = 1
	}
	var out []string
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				out = append(out, tokens[i])
				continue
			}
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

package topics

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
)

// quoteRules bounds quote selection.
type quoteRules struct {
	perTopic     int
	minDominance float64
}

// attachQuotes picks representative reviews for every topic, visiting topics
// by id. A review is quoted at most once across all topics. docs[i] is the
// review behind docTopics[i].
func attachQuotes(topics []Topic, docs []store.Review, docTopics [][]float64, rules quoteRules) {
	seen := make(map[string]bool)
	for id := range topics {
		topics[id].Quotes = quotesFor(topics[id], id, docs, docTopics, rules, seen)
	}
}

func quotesFor(t Topic, id int, docs []store.Review, docTopics [][]float64, rules quoteRules, seen map[string]bool) []Quote {
	order := make([]int, 0, len(docTopics))
	for d, row := range docTopics {
		if id < len(row) {
			order = append(order, d)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return docTopics[order[i]][id] > docTopics[order[j]][id]
	})

	terms := longTerms(t.LabelKeywords, 3)
	if len(terms) == 0 {
		terms = longTerms(t.Terms(6), 3)
	}
	excludes := longTerms(t.LabelExcludes, 2)

	var quotes []Quote
	for _, d := range order {
		if len(quotes) >= rules.perTopic {
			break
		}
		review := docs[d]
		text := strings.TrimSpace(review.Content)
		if text == "" || seen[text] {
			continue
		}
		lowered := strings.ToLower(text)
		if len(terms) > 0 && !containsAny(lowered, terms) {
			continue
		}
		if containsAny(lowered, excludes) {
			continue
		}
		if dominance(docTopics[d], id) < rules.minDominance {
			continue
		}

		seen[text] = true
		quotes = append(quotes, Quote{
			ReviewID:    review.ReviewID,
			Text:        text,
			Probability: docTopics[d][id],
			Rating:      review.Rating,
			Sentiment:   review.Sentiment,
		})
	}
	return quotes
}

// dominance is the gap between a document's two largest topic
// probabilities, or the topic's own probability when there is one topic.
func dominance(row []float64, id int) float64 {
	if len(row) < 2 {
		return row[id]
	}
	first, second := row[0], row[1]
	if second > first {
		first, second = second, first
	}
	for _, p := range row[2:] {
		switch {
		case p > first:
			first, second = p, first
		case p > second:
			second = p
		}
	}
	return first - second
}

func longTerms(terms []string, minExclusive int) []string {
	var out []string
	for _, t := range terms {
		if utf8.RuneCountInString(t) > minExclusive {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

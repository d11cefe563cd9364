package topics

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FallbackLabel names a topic with no usable terms.
const FallbackLabel = "General Feedback"

// Label is the human-readable name chosen for a topic, with the keywords that
// justified it and the terms a supporting quote must not contain.
type Label struct {
	Text     string
	Keywords []string
	Excludes []string
}

// AssignLabels labels each topic from its top terms, in order. It is a fold:
// every label joins the set of used labels seen by the next topic, so no two
// topics share a label.
func AssignLabels(topTerms [][]string, themes []Theme) []Label {
	used := make(map[string]bool, len(topTerms))
	labels := make([]Label, len(topTerms))
	for i, terms := range topTerms {
		labels[i] = nextLabel(terms, themes, used)
		used[strings.ToLower(labels[i].Text)] = true
	}
	return labels
}

type themeScore struct {
	match int
	theme Theme
}

// nextLabel picks the best unused theme for terms. It does not modify used.
func nextLabel(terms []string, themes []Theme, used map[string]bool) Label {
	var scored []themeScore
	for _, th := range themes {
		if n := th.matchCount(terms); n > 0 {
			scored = append(scored, themeScore{match: n, theme: th})
		}
	}
	// stable: equal (match, priority) keeps rule table order
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].match != scored[j].match {
			return scored[i].match > scored[j].match
		}
		return scored[i].theme.Priority > scored[j].theme.Priority
	})

	var label Label
	switch {
	case len(scored) > 0:
		pick := scored[0].theme
		for _, s := range scored {
			if !used[strings.ToLower(s.theme.Name)] {
				pick = s.theme
				break
			}
		}
		label = Label{
			Text:     pick.Name,
			Keywords: append([]string(nil), pick.Keywords...),
			Excludes: append([]string(nil), pick.Excludes...),
		}
	default:
		var parts []string
		for _, w := range terms[:min(2, len(terms))] {
			if w != "" {
				parts = append(parts, titleize(w))
			}
		}
		label.Text = strings.Join(parts, " & ")
		if label.Text == "" {
			label.Text = FallbackLabel
		}
	}

	if used[strings.ToLower(label.Text)] {
		label = disambiguate(label, terms, used)
	}
	return label
}

// disambiguate appends a parenthetical top term to a label already in use.
func disambiguate(label Label, terms []string, used map[string]bool) Label {
	lowered := strings.ToLower(label.Text)
	for _, w := range terms {
		if w == "" || strings.Contains(lowered, strings.ToLower(w)) || utf8.RuneCountInString(w) <= 3 {
			continue
		}
		word := titleize(w)
		alt := label.Text + " (" + word + ")"
		if !used[strings.ToLower(alt)] {
			label.Text = alt
			label.Keywords = addKeyword(label.Keywords, strings.ToLower(word))
			return label
		}
	}

	suffix := strconv.Itoa(len(used) + 1)
	if len(terms) > 0 && terms[0] != "" {
		suffix = titleize(terms[0])
	}
	label.Text = label.Text + " (" + suffix + ")"
	label.Keywords = addKeyword(label.Keywords, strings.ToLower(suffix))
	return label
}

func addKeyword(keywords []string, kw string) []string {
	for _, k := range keywords {
		if k == kw {
			return keywords
		}
	}
	return append(keywords, kw)
}

// titleize upper-cases the first letter of every word. A Caser holds state,
// so each call gets its own.
func titleize(s string) string {
	return cases.Title(language.English).String(s)
}

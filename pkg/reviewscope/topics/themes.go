package topics

import (
	"strings"
)

// Theme is one row of the labeling rule table. A topic matches a theme when
// one of its top terms contains a keyword.
type Theme struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Excludes []string `yaml:"excludes"`
	Priority int      `yaml:"priority"`
}

// matchCount counts the terms that contain at least one theme keyword.
func (t Theme) matchCount(terms []string) int {
	n := 0
	for _, term := range terms {
		for _, kw := range t.Keywords {
			if kw != "" && strings.Contains(term, kw) {
				n++
				break
			}
		}
	}
	return n
}

var commonExcludes = []string{"ad", "ads", "premium", "price", "pay"}

// DefaultThemes returns a fresh copy of the built-in music-streaming rule
// table, in priority tie-break order.
func DefaultThemes() []Theme {
	return CopyThemes(defaultThemes)
}

// CopyThemes deep-copies a rule table.
func CopyThemes(in []Theme) []Theme {
	out := make([]Theme, len(in))
	for i, t := range in {
		out[i] = Theme{
			Name:     t.Name,
			Keywords: append([]string(nil), t.Keywords...),
			Excludes: append([]string(nil), t.Excludes...),
			Priority: t.Priority,
		}
	}
	return out
}

var defaultThemes = []Theme{
	{
		Name:     "Music Discovery & Recommendations",
		Keywords: []string{"discover", "recommend", "recommendation", "algorithm", "radio", "mix", "weekly", "daily mix", "curation", "suggested", "release radar", "made for"},
		Excludes: commonExcludes,
		Priority: 7,
	},
	{
		Name:     "Playlist & Library Management",
		Keywords: []string{"playlist", "playlists", "library", "save", "saved", "collection", "organize", "add to playlist", "curate", "folders"},
		Excludes: commonExcludes,
		Priority: 6,
	},
	{
		Name:     "Playback & Shuffle Control",
		Keywords: []string{"shuffle", "skip", "skipping", "queue", "order", "playback", "repeat", "sequence", "auto play", "autoplay", "next", "previous"},
		Excludes: commonExcludes,
		Priority: 6,
	},
	{
		Name:     "Ads & Paywall Issues",
		Keywords: []string{"ads", "ad", "advert", "commercial", "sponsor", "premium", "paywall", "interrupt"},
		Priority: 4,
	},
	{
		Name:     "Pricing & Value",
		Keywords: []string{"price", "pricing", "cost", "billing", "payment", "pay", "money", "subscription", "value", "expensive", "worth", "plan"},
		Priority: 5,
	},
	{
		Name:     "Content Availability",
		Keywords: []string{"missing", "unavailable", "available", "removed", "catalog", "artist", "album", "track", "region", "country", "content", "rights"},
		Excludes: commonExcludes,
		Priority: 4,
	},
	{
		Name:     "Offline & Downloads",
		Keywords: []string{"download", "offline", "downloaded", "cache", "storage"},
		Priority: 4,
	},
	{
		Name:     "Login & Authentication",
		Keywords: []string{"login", "log", "account", "password", "sign", "authentication", "verify"},
		Priority: 5,
	},
	{
		Name:     "Performance & Stability",
		Keywords: []string{"slow", "lag", "laggy", "performance", "loading", "crash", "freeze", "freezing", "glitch", "stutter", "buffer"},
		Priority: 5,
	},
	{
		Name:     "Bugs & Errors",
		Keywords: []string{"bug", "bugs", "error", "issue", "broken", "fix", "glitch", "problem"},
		Priority: 4,
	},
	{
		Name:     "Customer Support",
		Keywords: []string{"support", "help", "customer", "service", "response"},
		Priority: 3,
	},
	{
		Name:     "User Interface & Navigation",
		Keywords: []string{"interface", "ui", "design", "layout", "navigation", "screen", "display"},
		Priority: 3,
	},
	{
		Name:     "Feature Requests",
		Keywords: []string{"feature", "features", "add", "need", "missing", "wish", "should"},
		Priority: 2,
	},
}

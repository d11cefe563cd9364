package config

import (
	"fmt"

	"github.com/cognicore/reviewscope/pkg/reviewscope/stoplist"
	"github.com/cognicore/reviewscope/pkg/reviewscope/topics"
)

// Loader loads the optional rule files and constructs components
type Loader struct {
	StoplistPath string
	ThemesPath   string
}

// NewLoader points a Loader at the files named in cfg.
func NewLoader(cfg Config) *Loader {
	return &Loader{StoplistPath: cfg.Topics.StoplistPath, ThemesPath: cfg.Topics.ThemesPath}
}

// Components holds all loaded configuration components
type Components struct {
	Stoplist *stoplist.Manager
	Themes   []topics.Theme
}

// Load reads the files and returns initialized components. Without a
// stoplist file the built-in list is used; a file extends it. Without a
// themes file the built-in table is used; a file replaces it.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Stoplist: stoplist.Default()}

	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		for _, term := range sl.Terms {
			comp.Stoplist.Add(term, stoplist.Reason{Custom: true})
		}
	}

	if l.ThemesPath != "" {
		themes, err := LoadThemes(l.ThemesPath)
		if err != nil {
			return nil, fmt.Errorf("load themes: %w", err)
		}
		comp.Themes = themes
	} else {
		comp.Themes = topics.DefaultThemes()
	}

	return comp, nil
}

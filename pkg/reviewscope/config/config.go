package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/topics"
)

// Config is the reviewscope.yaml file
type Config struct {
	Database   string     `yaml:"database"`
	LogLevel   string     `yaml:"log_level"`
	LogFormat  string     `yaml:"log_format"`
	Collector  Collector  `yaml:"collector"`
	Source     Source     `yaml:"source"`
	Classifier Classifier `yaml:"classifier"`
	Topics     Topics     `yaml:"topics"`
	Schedule   Schedule   `yaml:"schedule"`
	Apps       []App      `yaml:"apps"`
}

// Collector bounds a collection run
type Collector struct {
	PageSize int   `yaml:"page_size"`
	MaxPages int   `yaml:"max_pages"`
	Retry    Retry `yaml:"retry"`
}

// Retry is the transient fetch backoff policy
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// Source kinds
const (
	SourceApple = "apple"
	SourceJSONL = "jsonl"
)

// Source selects where reviews come from
type Source struct {
	Kind    string `yaml:"kind"`
	Country string `yaml:"country"`
	// Path is the JSONL dump for the jsonl kind.
	Path string `yaml:"path"`
}

// Classifier points at the hosted sentiment model. The token is read from
// the environment variable named by APIKeyEnv, never from the file.
type Classifier struct {
	Endpoint  string        `yaml:"endpoint"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

// APIKey resolves the classifier token from the environment.
func (c Classifier) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// Topics tunes topic discovery
type Topics struct {
	NumTopics      int     `yaml:"num_topics"`
	MaxFeatures    int     `yaml:"max_features"`
	MinDF          int     `yaml:"min_df"`
	MaxDF          float64 `yaml:"max_df"`
	DistinctCap    int     `yaml:"distinct_cap"`
	QuotesPerTopic int     `yaml:"quotes_per_topic"`
	MinDominance   float64 `yaml:"min_dominance"`
	Iterations     int     `yaml:"iterations"`
	Seed           int64   `yaml:"seed"`
	ThemesPath     string  `yaml:"themes_path"`
	StoplistPath   string  `yaml:"stoplist_path"`
}

// Schedule drives the collection daemon
type Schedule struct {
	// Spec is a standard five-field cron expression.
	Spec  string         `yaml:"spec"`
	Actor string         `yaml:"actor"`
	Apps  []ScheduledApp `yaml:"apps"`
}

// ScheduledApp is one periodic collection job
type ScheduledApp struct {
	AppID    string `yaml:"app_id"`
	AppName  string `yaml:"app_name"`
	Target   int    `yaml:"target"`
	TaskType string `yaml:"task_type"`
}

// App describes a tracked product. Aliases are other store identifiers
// whose reviews belong to the same product.
type App struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		Database:  "reviewscope.db",
		LogLevel:  "info",
		LogFormat: "text",
		Collector: Collector{
			PageSize: 200,
			MaxPages: 50,
			Retry: Retry{
				MaxAttempts: 3,
				BaseDelay:   time.Second,
				MaxDelay:    300 * time.Second,
			},
		},
		Source: Source{Kind: SourceApple, Country: "us"},
		Classifier: Classifier{
			APIKeyEnv: "REVIEWSCOPE_CLASSIFIER_TOKEN",
			Timeout:   30 * time.Second,
		},
		Topics: Topics{
			NumTopics:      10,
			MaxFeatures:    500,
			MinDF:          5,
			MaxDF:          0.5,
			DistinctCap:    3,
			QuotesPerTopic: 2,
			MinDominance:   0.08,
			Iterations:     200,
			Seed:           42,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, or the validated defaults when path is empty.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	return Load(path)
}

// Validate reports the first problem found.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), internalerr.ErrInvalidConfig)
	}

	if strings.TrimSpace(c.Database) == "" {
		return bad("database path is required")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return bad("log_level %q", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return bad("log_format must be text or json, got %q", c.LogFormat)
	}

	col := c.Collector
	if col.PageSize <= 0 || col.MaxPages <= 0 {
		return bad("collector page_size and max_pages must be positive")
	}
	if col.Retry.MaxAttempts < 1 || col.Retry.BaseDelay <= 0 || col.Retry.MaxDelay < col.Retry.BaseDelay {
		return bad("collector retry needs max_attempts >= 1 and 0 < base_delay <= max_delay")
	}

	switch c.Source.Kind {
	case SourceApple:
	case SourceJSONL:
		if c.Source.Path == "" {
			return bad("source path is required for jsonl")
		}
	default:
		return bad("unknown source kind %q", c.Source.Kind)
	}

	tc := c.Topics
	switch {
	case tc.NumTopics <= 0, tc.MaxFeatures <= 0, tc.MinDF < 1:
		return bad("topics num_topics, max_features and min_df must be positive")
	case tc.MaxDF <= 0 || tc.MaxDF > 1:
		return bad("topics max_df must be in (0, 1], got %v", tc.MaxDF)
	case tc.DistinctCap <= 0 || tc.QuotesPerTopic <= 0:
		return bad("topics distinct_cap and quotes_per_topic must be positive")
	case tc.MinDominance < 0 || tc.MinDominance >= 1:
		return bad("topics min_dominance must be in [0, 1), got %v", tc.MinDominance)
	case tc.Iterations <= 0:
		return bad("topics iterations must be positive")
	}

	seen := make(map[string]bool)
	for _, app := range c.Apps {
		if app.ID == "" {
			return bad("app without id")
		}
		for _, id := range append([]string{app.ID}, app.Aliases...) {
			if seen[id] {
				return bad("app id %q listed twice", id)
			}
			seen[id] = true
		}
	}

	if c.Schedule.Spec != "" {
		if _, err := cron.ParseStandard(c.Schedule.Spec); err != nil {
			return bad("schedule spec %q: %v", c.Schedule.Spec, err)
		}
		if strings.TrimSpace(c.Schedule.Actor) == "" {
			return bad("schedule actor is required")
		}
		for _, job := range c.Schedule.Apps {
			if job.AppID == "" || job.Target <= 0 {
				return bad("scheduled app needs app_id and a positive target")
			}
		}
	}
	return nil
}

// AppIDs returns id followed by every alias of the app it names. Unknown
// ids come back alone.
func (c Config) AppIDs(id string) []string {
	for _, app := range c.Apps {
		match := app.ID == id
		for _, a := range app.Aliases {
			match = match || a == id
		}
		if !match {
			continue
		}
		out := []string{id}
		for _, other := range append([]string{app.ID}, app.Aliases...) {
			if other != id {
				out = append(out, other)
			}
		}
		return out
	}
	return []string{id}
}

// AppName returns the configured display name, or id.
func (c Config) AppName(id string) string {
	for _, app := range c.Apps {
		if app.ID == id && app.Name != "" {
			return app.Name
		}
	}
	return id
}

// Stoplist is a stopword file
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}

// ThemeFile is a labeling rule table file. Rules keep file order.
type ThemeFile struct {
	Themes []topics.Theme `yaml:"themes"`
}

// LoadThemes loads a theme rule table from a YAML file
func LoadThemes(path string) ([]topics.Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf ThemeFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, err
	}
	for i, th := range tf.Themes {
		if strings.TrimSpace(th.Name) == "" || len(th.Keywords) == 0 {
			return nil, fmt.Errorf("theme %d needs a name and keywords: %w", i, internalerr.ErrInvalidConfig)
		}
	}
	return tf.Themes, nil
}

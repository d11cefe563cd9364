package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, "reviewscope.yaml", `database: /tmp/reviews.db
log_level: debug
collector:
  page_size: 50
  retry:
    base_delay: 2s
source:
  kind: jsonl
  path: dump.jsonl
topics:
  num_topics: 6
apps:
  - id: "324684580"
    name: Spotify
    aliases: ["com.spotify.music"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database != "/tmp/reviews.db" || cfg.LogLevel != "debug" {
		t.Fatalf("top-level fields not read: %+v", cfg)
	}
	if cfg.Collector.PageSize != 50 || cfg.Collector.MaxPages != 50 {
		t.Fatalf("collector: %+v", cfg.Collector)
	}
	if cfg.Collector.Retry.BaseDelay != 2*time.Second || cfg.Collector.Retry.MaxDelay != 300*time.Second {
		t.Fatalf("retry: %+v", cfg.Collector.Retry)
	}
	if cfg.Topics.NumTopics != 6 || cfg.Topics.MaxDF != 0.5 {
		t.Fatalf("topics: %+v", cfg.Topics)
	}
	if cfg.AppName("324684580") != "Spotify" {
		t.Fatalf("unexpected app name %q", cfg.AppName("324684580"))
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"empty database":    func(c *Config) { c.Database = "" },
		"log level":         func(c *Config) { c.LogLevel = "loud" },
		"page size":         func(c *Config) { c.Collector.PageSize = 0 },
		"retry window":      func(c *Config) { c.Collector.Retry.MaxDelay = time.Millisecond },
		"source kind":       func(c *Config) { c.Source.Kind = "play" },
		"jsonl path":        func(c *Config) { c.Source.Kind = SourceJSONL },
		"max df":            func(c *Config) { c.Topics.MaxDF = 1.5 },
		"dominance":         func(c *Config) { c.Topics.MinDominance = 1 },
		"cron":              func(c *Config) { c.Schedule = Schedule{Spec: "every tuesday", Actor: "bot"} },
		"schedule actor":    func(c *Config) { c.Schedule = Schedule{Spec: "@hourly"} },
		"schedule target":   func(c *Config) { c.Schedule = Schedule{Spec: "@hourly", Actor: "bot", Apps: []ScheduledApp{{AppID: "1"}}} },
		"duplicate app ids": func(c *Config) { c.Apps = []App{{ID: "1"}, {ID: "2", Aliases: []string{"1"}}} },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestAppIDsExpandsAliases(t *testing.T) {
	cfg := Default()
	cfg.Apps = []App{{ID: "324684580", Aliases: []string{"com.spotify.music", "spotify-web"}}}

	if got, want := cfg.AppIDs("324684580"), []string{"324684580", "com.spotify.music", "spotify-web"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got, want := cfg.AppIDs("com.spotify.music"), []string{"com.spotify.music", "324684580", "spotify-web"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("alias lookup: expected %v, got %v", want, got)
	}
	if got := cfg.AppIDs("unknown"); !reflect.DeepEqual(got, []string{"unknown"}) {
		t.Fatalf("unknown id should come back alone, got %v", got)
	}
}

func TestClassifierAPIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_CLASSIFIER_TOKEN", "secret")
	c := Classifier{APIKeyEnv: "TEST_CLASSIFIER_TOKEN"}
	if c.APIKey() != "secret" {
		t.Fatalf("expected token from env, got %q", c.APIKey())
	}
	if (Classifier{}).APIKey() != "" {
		t.Fatal("no env name should mean no token")
	}
}

func TestLoadStoplist(t *testing.T) {
	path := writeFile(t, "stoplist.yaml", `terms:
  - the
  - a
  - and
`)

	sl, err := LoadStoplist(path)
	if err != nil {
		t.Fatalf("Failed to load stoplist: %v", err)
	}
	if len(sl.Terms) != 3 {
		t.Errorf("Expected 3 terms, got %d", len(sl.Terms))
	}
}

func TestLoadThemes(t *testing.T) {
	path := writeFile(t, "themes.yaml", `themes:
  - name: Battery Drain
    keywords: [battery, drain, hot]
    priority: 6
  - name: Sync
    keywords: [sync]
    excludes: [premium]
`)

	themes, err := LoadThemes(path)
	if err != nil {
		t.Fatalf("Failed to load themes: %v", err)
	}
	if len(themes) != 2 || themes[0].Name != "Battery Drain" || themes[0].Priority != 6 {
		t.Fatalf("unexpected themes %+v", themes)
	}
	if !reflect.DeepEqual(themes[1].Excludes, []string{"premium"}) {
		t.Fatalf("excludes not read: %+v", themes[1])
	}

	bad := writeFile(t, "bad.yaml", "themes:\n  - name: Empty\n")
	if _, err := LoadThemes(bad); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for keywordless theme, got %v", err)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/reviewscope.yaml"); err == nil {
		t.Error("Should error on non-existent config")
	}
	if _, err := LoadStoplist("/nonexistent/path.yaml"); err == nil {
		t.Error("Should error on non-existent stoplist")
	}
	if _, err := LoadThemes("/nonexistent/path.yaml"); err == nil {
		t.Error("Should error on non-existent themes")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if cfg.Collector.PageSize != 200 || cfg.Topics.NumTopics != 10 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

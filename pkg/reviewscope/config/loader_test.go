package config

import (
	"testing"

	"github.com/cognicore/reviewscope/pkg/reviewscope/stoplist"
	"github.com/cognicore/reviewscope/pkg/reviewscope/topics"
)

func TestLoaderAllEmpty(t *testing.T) {
	comp, err := (&Loader{}).Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}
	if comp.Stoplist.Len() != stoplist.Default().Len() {
		t.Errorf("expected the built-in stoplist, got %d terms", comp.Stoplist.Len())
	}
	if len(comp.Themes) != len(topics.DefaultThemes()) {
		t.Errorf("expected the built-in themes, got %d", len(comp.Themes))
	}
}

func TestLoaderExtendsStoplist(t *testing.T) {
	path := writeFile(t, "stoplist.yaml", "terms:\n  - spotify\n  - the\n")

	comp, err := (&Loader{StoplistPath: path}).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !comp.Stoplist.IsStop("spotify") || !comp.Stoplist.IsStop("the") {
		t.Fatal("file terms and built-ins should both be stopwords")
	}
	reason, _ := comp.Stoplist.Reason("the")
	if !reason.English || !reason.Custom {
		t.Fatalf("reasons should accumulate, got %+v", reason)
	}
}

func TestLoaderReplacesThemes(t *testing.T) {
	path := writeFile(t, "themes.yaml", "themes:\n  - name: Sync\n    keywords: [sync]\n")

	cfg := Default()
	cfg.Topics.ThemesPath = path
	comp, err := NewLoader(cfg).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(comp.Themes) != 1 || comp.Themes[0].Name != "Sync" {
		t.Fatalf("unexpected themes %+v", comp.Themes)
	}
}

func TestLoaderNonExistentFiles(t *testing.T) {
	if _, err := (&Loader{StoplistPath: "/nonexistent/stoplist.yaml"}).Load(); err == nil {
		t.Error("Should error on nonexistent stoplist")
	}
	if _, err := (&Loader{ThemesPath: "/nonexistent/themes.yaml"}).Load(); err == nil {
		t.Error("Should error on nonexistent themes")
	}
}

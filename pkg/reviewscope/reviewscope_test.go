package reviewscope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/reviewscope/pkg/reviewscope/collect"
	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/source"
	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
	"github.com/cognicore/reviewscope/pkg/reviewscope/store/memstore"
	"github.com/cognicore/reviewscope/pkg/reviewscope/topics"
)

// feed serves fixed items per app with offset tokens.
type feed map[string][]source.Item

func (f feed) Name() string { return "test feed" }

func (f feed) FetchPage(ctx context.Context, req source.PageRequest) (source.Page, error) {
	items := f[req.AppID]
	start := 0
	if req.Token != "" {
		start, _ = strconv.Atoi(req.Token)
	}
	end := min(start+req.Count, len(items))
	if start >= end {
		return source.Page{}, nil
	}
	page := source.Page{Items: items[start:end]}
	if end < len(items) {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

// keywordModel assigns each term containing keywords[i] to topic i.
type keywordModel []string

func (m keywordModel) Fit(tm topics.TermMatrix, k int) (topics.Fit, error) {
	fit := topics.Fit{TopicTerms: make([][]float64, k), DocTopics: make([][]float64, tm.Docs())}
	for i := range fit.TopicTerms {
		fit.TopicTerms[i] = make([]float64, len(tm.Vocabulary))
		for j, term := range tm.Vocabulary {
			fit.TopicTerms[i][j] = 0.01
			if i < len(m) && strings.Contains(term, m[i]) {
				fit.TopicTerms[i][j] = 1
			}
		}
	}
	for d, counts := range tm.Counts {
		row := make([]float64, k)
		best := -1
		for i := 0; i < k && i < len(m); i++ {
			for j, c := range counts {
				if c > 0 && strings.Contains(tm.Vocabulary[j], m[i]) {
					best = i
				}
			}
		}
		for i := range row {
			switch {
			case best < 0:
				row[i] = 1 / float64(k)
			case i == best:
				row[i] = 1
			}
		}
		fit.DocTopics[d] = row
	}
	return fit, nil
}

func items(prefix string, rating int, texts ...string) []source.Item {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]source.Item, len(texts))
	for i, text := range texts {
		out[i] = source.Item{
			ID:     fmt.Sprintf("%s-%d", prefix, i),
			Rating: rating,
			Text:   text,
			At:     base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := feed{
		"a": items("a", 1,
			"crash on launch since the update",
			"constant crash when streaming",
			"crash after every song",
			"random crash while driving",
			"crash crash crash unusable",
			"annoying crash at night"),
		"a-web": items("w", 2,
			"playlist vanished overnight",
			"cannot reorder my playlist",
			"playlist sync is broken",
			"shared playlist never loads",
			"playlist folders would help",
			"lost a playlist again"),
	}
	eng, err := New(Options{
		Store:  memstore.New(),
		Source: src,
		Model:  keywordModel{"crash", "playlist"},
		Topics: topics.Options{NumTopics: 2, MinDF: 1, MaxDF: 1},
		AppIDs: func(id string) []string {
			if id == "a" {
				return []string{"a", "a-web"}
			}
			return []string{id}
		},
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func collectAll(t *testing.T, eng *Engine, apps ...string) {
	t.Helper()
	for _, app := range apps {
		sum, err := eng.Collect(context.Background(), collect.Request{
			AppID: app, AppName: app, Actor: "tester", Target: 50, TaskType: collect.TaskQuick,
		})
		if err != nil {
			t.Fatalf("collect %s: %v", app, err)
		}
		if sum.New != 6 || sum.Status != store.StatusSuccess {
			t.Fatalf("collect %s: unexpected summary %+v", app, sum)
		}
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestDiscoverTopicsIncludesAliases(t *testing.T) {
	eng := newTestEngine(t)
	collectAll(t, eng, "a", "a-web")

	res, err := eng.DiscoverTopics(context.Background(), "a", store.PolarityNegative)
	if err != nil {
		t.Fatalf("DiscoverTopics failed: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected topics, got %s: %s", res.Kind, res.Message)
	}
	if res.RawCount != 12 {
		t.Fatalf("alias reviews should be included, raw count %d", res.RawCount)
	}

	alone, err := eng.DiscoverTopics(context.Background(), "a-web", store.PolarityNegative)
	if err != nil {
		t.Fatalf("DiscoverTopics failed: %v", err)
	}
	if alone.Kind != topics.KindInsufficientData || alone.RawCount != 6 {
		t.Fatalf("expected insufficient data for 6 reviews, got %s with %d", alone.Kind, alone.RawCount)
	}
}

func TestCompareTopics(t *testing.T) {
	eng := newTestEngine(t)
	collectAll(t, eng, "a", "a-web")

	cmp, err := eng.CompareTopics(context.Background(), []string{"a", "empty"}, store.PolarityNone)
	if err != nil {
		t.Fatalf("CompareTopics failed: %v", err)
	}
	if len(cmp.Results) != 2 || cmp.Results["empty"].Kind != topics.KindInsufficientData {
		t.Fatalf("unexpected results %+v", cmp.Results)
	}
	if len(cmp.Common) != 2 {
		t.Fatalf("expected 2 common labels, got %+v", cmp.Common)
	}
	for _, lc := range cmp.Common {
		if lc.Count != 1 {
			t.Fatalf("each label appears for one app, got %+v", lc)
		}
	}

	if _, err := eng.CompareTopics(context.Background(), nil, store.PolarityNone); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStatsAndStatus(t *testing.T) {
	eng := newTestEngine(t)
	collectAll(t, eng, "a", "a-web")
	ctx := context.Background()

	stats, err := eng.Stats(ctx, "a")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 12 || stats.Negative != 12 || stats.NegativePercentage != 100 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	st, err := eng.Status(ctx, "a", "tester", 5)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Active != nil {
		t.Fatalf("no task should be active, got %+v", st.Active)
	}
	if len(st.Recent) != 1 || st.Recent[0].Status != store.StatusSuccess || st.Recent[0].Current != 6 {
		t.Fatalf("unexpected recent tasks %+v", st.Recent)
	}
}

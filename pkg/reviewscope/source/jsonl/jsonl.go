// Package jsonl serves reviews from a JSON-lines dump, one review per line.
// It backs offline imports and replays of scraped data.
package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/source"
)

// Record is one line of the dump.
type Record struct {
	ReviewID  string    `json:"review_id"`
	AppID     string    `json:"app_id,omitempty"`
	Author    string    `json:"author,omitempty"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Version   string    `json:"version,omitempty"`
}

// Source pages through a dump file. Records without an app id match any
// requested app.
type Source struct {
	Path   string
	Label  string
	Logger *slog.Logger

	once    sync.Once
	records []Record
	loadErr error
}

var _ source.Source = (*Source)(nil)

// New creates a source for path.
func New(path string, logger *slog.Logger) *Source {
	return &Source{Path: path, Logger: logger}
}

// Name implements source.Source.
func (s *Source) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "JSONL Import"
}

// FetchPage implements source.Source. The continuation token is the offset
// of the next matching record.
func (s *Source) FetchPage(ctx context.Context, req source.PageRequest) (source.Page, error) {
	if err := ctx.Err(); err != nil {
		return source.Page{}, err
	}
	s.once.Do(func() { s.records, s.loadErr = LoadFromJSONL(s.Path, s.logger()) })
	if s.loadErr != nil {
		return source.Page{}, s.loadErr
	}

	offset := 0
	if req.Token != "" {
		n, err := strconv.Atoi(req.Token)
		if err != nil || n < 0 {
			return source.Page{}, fmt.Errorf("jsonl: bad continuation token %q: %w", req.Token, internalerr.ErrInvalidInput)
		}
		offset = n
	}
	count := req.Count
	if count <= 0 {
		count = 50
	}

	matching := s.forApp(req.AppID)
	if offset >= len(matching) {
		return source.Page{}, nil
	}
	end := offset + count
	if end > len(matching) {
		end = len(matching)
	}

	page := source.Page{Items: make([]source.Item, 0, end-offset)}
	for _, r := range matching[offset:end] {
		page.Items = append(page.Items, toItem(r))
	}
	if end < len(matching) {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

func (s *Source) forApp(appID string) []Record {
	if appID == "" {
		return s.records
	}
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if r.AppID == "" || r.AppID == appID {
			out = append(out, r)
		}
	}
	return out
}

func (s *Source) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func toItem(r Record) source.Item {
	item := source.Item{
		ID:     r.ReviewID,
		Author: r.Author,
		Rating: r.Rating,
		Title:  source.CleanText(r.Title),
		Text:   source.CleanText(r.Content),
		At:     r.CreatedAt,
	}
	if r.Version != "" {
		item.Meta = map[string]string{"app_version": r.Version}
	}
	return item
}

// LoadFromJSONL reads every well-formed record of a dump. Malformed lines and
// records without an id are skipped with a warning. A file with no usable
// record is a parse error.
func LoadFromJSONL(path string, logger *slog.Logger) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var records []Record
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			logger.Warn("skipping malformed line", "path", path, "line", i+1, "err", err)
			continue
		}
		if rec.ReviewID == "" {
			logger.Warn("skipping record without review_id", "path", path, "line", i+1)
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no valid records found in %s: %w", path, internalerr.ErrParse)
	}

	return records, nil
}

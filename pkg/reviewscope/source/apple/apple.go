// Package apple reads the public App Store customer-review feed.
//
// The feed serves at most ten pages of roughly fifty reviews, newest first.
// Page numbers are exposed to callers as the continuation token.
package apple

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/source"
)

const (
	// DefaultBaseURL is the feed host.
	DefaultBaseURL = "https://itunes.apple.com"
	// MaxPages is the deepest page the feed will serve.
	MaxPages = 10
	// Name is the platform tag stored on reviews.
	Name = "Apple App Store"
)

// Client fetches review pages for one storefront.
type Client struct {
	BaseURL string
	Country string

	HTTPClient *http.Client
}

var _ source.Source = (*Client)(nil)

// Name implements source.Source.
func (c *Client) Name() string { return Name }

// FetchPage implements source.Source.
func (c *Client) FetchPage(ctx context.Context, req source.PageRequest) (source.Page, error) {
	if req.AppID == "" {
		return source.Page{}, fmt.Errorf("apple: app id required: %w", internalerr.ErrInvalidInput)
	}
	page := 1
	if req.Token != "" {
		n, err := strconv.Atoi(req.Token)
		if err != nil || n < 1 {
			return source.Page{}, fmt.Errorf("apple: bad continuation token %q: %w", req.Token, internalerr.ErrInvalidInput)
		}
		page = n
	}
	if page > MaxPages {
		return source.Page{}, nil
	}

	body, err := c.get(ctx, c.feedURL(req.AppID, page))
	if err != nil {
		return source.Page{}, err
	}
	items, err := parseFeed(body)
	if err != nil {
		return source.Page{}, err
	}

	out := source.Page{Items: items}
	if len(items) > 0 && page < MaxPages {
		out.NextToken = strconv.Itoa(page + 1)
	}
	return out, nil
}

func (c *Client) feedURL(appID string, page int) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	country := strings.ToLower(c.Country)
	if country == "" {
		country = "us"
	}
	return fmt.Sprintf("%s/%s/rss/customerreviews/page=%d/id=%s/sortBy=mostRecent/json",
		strings.TrimRight(base, "/"), country, page, appID)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("apple feed: %v: %w", err, internalerr.ErrTransientFetch)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("apple feed read: %v: %w", err, internalerr.ErrTransientFetch)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("apple feed status %d: %w", resp.StatusCode, internalerr.ErrTransientFetch)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("apple feed status %d for %s", resp.StatusCode, url)
	}
	return body, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

type labeled struct {
	Label string `json:"label"`
}

type author struct {
	Name labeled `json:"name"`
}

type entry struct {
	ID      labeled  `json:"id"`
	Author  author   `json:"author"`
	Title   labeled  `json:"title"`
	Content labeled  `json:"content"`
	Rating  *labeled `json:"im:rating"`
	Version labeled  `json:"im:version"`
	Updated labeled  `json:"updated"`
}

type feedPayload struct {
	Feed struct {
		Entry json.RawMessage `json:"entry"`
	} `json:"feed"`
}

// parseFeed decodes one feed page. The app metadata entry (first, without a
// rating) is dropped. A single review arrives as an object, not an array.
func parseFeed(body []byte) ([]source.Item, error) {
	var payload feedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("apple feed json: %v: %w", err, internalerr.ErrParse)
	}

	raw := bytes.TrimSpace(payload.Feed.Entry)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var entries []entry
	if raw[0] == '{' {
		var one entry
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("apple feed entry: %v: %w", err, internalerr.ErrParse)
		}
		entries = []entry{one}
	} else if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("apple feed entries: %v: %w", err, internalerr.ErrParse)
	}

	if len(entries) > 0 && entries[0].Rating == nil {
		entries = entries[1:]
	}

	items := make([]source.Item, 0, len(entries))
	for _, e := range entries {
		if e.ID.Label == "" {
			continue
		}
		item := source.Item{
			ID:     e.ID.Label,
			Author: e.Author.Name.Label,
			Title:  source.CleanText(e.Title.Label),
			Text:   source.CleanText(e.Content.Label),
		}
		if e.Rating != nil {
			item.Rating, _ = strconv.Atoi(strings.TrimSpace(e.Rating.Label))
		}
		if ts, err := time.Parse(time.RFC3339, e.Updated.Label); err == nil {
			item.At = ts
		}
		if e.Version.Label != "" {
			item.Meta = map[string]string{"app_version": e.Version.Label}
		}
		items = append(items, item)
	}
	return items, nil
}

// Package classifier calls a hosted text-classification endpoint (the
// Hugging Face inference API shape) for review sentiment.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/sentiment"
)

// DefaultMaxChars bounds the text sent per request; long reviews are cut.
const DefaultMaxChars = 2000

// Client posts {"inputs": text} and reads back label/score pairs.
type Client struct {
	Endpoint string
	APIKey   string
	MaxChars int

	HTTPClient *http.Client
}

var _ sentiment.Classifier = (*Client)(nil)

type classifyRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Classify returns the highest-scoring label for text.
func (c *Client) Classify(ctx context.Context, text string) (sentiment.Prediction, error) {
	if c.Endpoint == "" {
		return sentiment.Prediction{}, fmt.Errorf("classifier: endpoint required: %w", internalerr.ErrInvalidConfig)
	}
	body, err := c.send(ctx, truncate(text, c.maxChars()))
	if err != nil {
		return sentiment.Prediction{}, err
	}
	scores, err := decodeScores(body)
	if err != nil {
		return sentiment.Prediction{}, err
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return sentiment.Prediction{Label: best.Label, Confidence: best.Score}, nil
}

func (c *Client) send(ctx context.Context, text string) ([]byte, error) {
	reqBody, err := json.Marshal(classifyRequest{Inputs: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %v: %w", err, internalerr.ErrTransientFetch)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("classifier read: %v: %w", err, internalerr.ErrTransientFetch)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("classifier status %d: %w", resp.StatusCode, internalerr.ErrTransientFetch)
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("classifier status %d: %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("classifier status %d", resp.StatusCode)
	}
	return body, nil
}

// decodeScores accepts both [[{label,score}]] (batched) and [{label,score}].
func decodeScores(body []byte) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}
	var flat []labelScore
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}
	var e errorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return nil, fmt.Errorf("classifier error: %s", e.Error)
	}
	return nil, fmt.Errorf("classifier: unexpected response %q: %w", snippet(body), internalerr.ErrParse)
}

func (c *Client) maxChars() int {
	if c.MaxChars > 0 {
		return c.MaxChars
	}
	return DefaultMaxChars
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func snippet(b []byte) string {
	if len(b) > 80 {
		return string(b[:80]) + "..."
	}
	return string(b)
}

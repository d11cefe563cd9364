// Package source defines the paginated review feed consumed by the collector.
package source

import (
	"context"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Sort orders a page request.
type Sort string

const (
	SortNewest Sort = "newest"
)

// PageRequest asks for one page of reviews.
type PageRequest struct {
	AppID string
	Sort  Sort
	Count int
	// Token is the opaque continuation returned by the previous page; empty
	// for the first page.
	Token string
}

// Page is one batch of reviews. An empty NextToken means the feed ended.
type Page struct {
	Items     []Item
	NextToken string
}

// Item is a review as delivered by the external feed.
type Item struct {
	ID     string
	Author string
	Rating int
	Title  string
	Text   string
	At     time.Time
	Meta   map[string]string
}

// Source fetches review pages. Implementations wrap transport failures in
// internalerr.ErrTransientFetch and malformed payloads in internalerr.ErrParse.
type Source interface {
	Name() string
	FetchPage(ctx context.Context, req PageRequest) (Page, error)
}

// CleanText strips markup from a review body and collapses whitespace.
// Plain text passes through unchanged apart from whitespace.
func CleanText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.Data == "br" || n.Data == "p"):
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return collapse(buf.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Package search queries Google Programmable Search for recent material
// on a topic.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/edgard/adviserbot/internal/config"
)

// Result is one search hit reduced to what prompts need.
type Result struct {
	Title   string
	Snippet string
	Link    string
}

// Client wraps the Custom Search JSON API.
type Client struct {
	svc      *customsearch.Service
	engineID string
	results  int64
	log      *slog.Logger
}

// New creates a client. Extra options are appended after the API key.
func New(ctx context.Context, cfg config.SearchConfig, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, errors.New("search API key and engine ID are required")
	}

	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}

	results := int64(cfg.Results)
	if results < 1 || results > 10 {
		results = 5
	}

	return &Client{
		svc:      svc,
		engineID: cfg.EngineID,
		results:  results,
		log:      logger.With("component", "search"),
	}, nil
}

// Search returns up to the configured number of hits for query.
// An empty hit list is not an error.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty search query")
	}

	resp, err := c.svc.Cse.List().Cx(c.engineID).Q(query).Num(c.results).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	out := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(item.Title),
			Snippet: strings.TrimSpace(item.Snippet),
			Link:    item.Link,
		})
	}

	c.log.DebugContext(ctx, "Search completed", "query", query, "results", len(out))
	return out, nil
}

// Format renders results as the plain-text context block used in prompts.
func Format(results []Result) string {
	if len(results) == 0 {
		return "No recent results found."
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s: %s", r.Title, r.Snippet)
	}
	return b.String()
}

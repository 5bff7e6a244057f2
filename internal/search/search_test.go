package search

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/option"

	"github.com/edgard/adviserbot/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(),
		config.SearchConfig{APIKey: "key", EngineID: "cx-1", Results: 3},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestSearch(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("cx") != "cx-1" || q.Get("q") != "Recent developments in AI" || q.Get("num") != "3" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"title": " Agents ship ", "snippet": "New agent frameworks.", "link": "https://a.example"},
				{"title": "Chips", "snippet": "Faster inference.", "link": "https://b.example"},
			},
		})
	})

	got, err := c.Search(context.Background(), "Recent developments in AI")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 || got[0].Title != "Agents ship" || got[1].Snippet != "Faster inference." {
		t.Errorf("Search() = %+v", got)
	}
}

func TestSearchNoItems(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	got, err := c.Search(context.Background(), "quiet topic")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Search() = %+v, want no results", got)
	}
}

func TestSearchErrors(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"quota"}}`, http.StatusForbidden)
	})

	if _, err := c.Search(context.Background(), "anything"); err == nil {
		t.Error("Search() error = nil for HTTP 403")
	}
	if _, err := c.Search(context.Background(), "   "); err == nil {
		t.Error("Search() error = nil for empty query")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), config.SearchConfig{APIKey: "k"}, slog.Default()); err == nil {
		t.Error("New() without engine ID succeeded")
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	if got := Format(nil); got != "No recent results found." {
		t.Errorf("Format(nil) = %q", got)
	}
	got := Format([]Result{{Title: "A", Snippet: "one"}, {Title: "B", Snippet: "two"}})
	if want := "- A: one\n- B: two"; got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

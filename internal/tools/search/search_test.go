package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newSearchServer(t *testing.T, status int, body string, seen *searchRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/indexes/course/docs/search" {
			t.Errorf("path=%q, want /indexes/course/docs/search", r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != defaultAPIVersion {
			t.Errorf("api-version=%q, want %q", got, defaultAPIVersion)
		}
		if got := r.Header.Get("api-key"); got != "key" {
			t.Errorf("api-key=%q, want key", got)
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchTopTwo(t *testing.T) {
	var seen searchRequest
	srv := newSearchServer(t, http.StatusOK,
		`{"value":[{"title":"a","chunk":"one"},{"title":"b","chunk":"two"},{"title":"c","chunk":"three"}]}`, &seen)
	c := New(Config{URL: srv.URL + "/", APIKey: "key", Index: "course", SemanticConfig: "sem"})

	docs, err := c.Search(context.Background(), "what is entropy")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs)=%d, want 2", len(docs))
	}
	if seen.Search != "what is entropy" || seen.QueryType != "semantic" || seen.SemanticConfiguration != "sem" {
		t.Fatalf("request=%+v", seen)
	}

	want := " --- Document context start ---one\n ---End of Document ---\n" +
		" --- Document context start ---two\n ---End of Document ---\n"
	if got := FormatContext(docs); got != want {
		t.Fatalf("FormatContext=%q, want %q", got, want)
	}
}

func TestSearchErrors(t *testing.T) {
	if _, err := New(Config{}).Search(context.Background(), "q"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err=%v, want ErrNotConfigured", err)
	}

	srv := newSearchServer(t, http.StatusForbidden, "denied", nil)
	_, err := New(Config{URL: srv.URL, APIKey: "key", Index: "course"}).Search(context.Background(), "q")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("err=%v, want APIError 403", err)
	}
}

func TestToolSchemaAndDegradedMessage(t *testing.T) {
	tool := New(Config{}).Tool()
	def := tool.Definition()
	if def.Name != ToolName {
		t.Fatalf("Name=%q, want %q", def.Name, ToolName)
	}
	if _, ok := def.Parameters.Properties["query"]; !ok {
		t.Fatalf("parameters missing query: %+v", def.Parameters)
	}
	if !strings.HasPrefix(tool.DegradedMessage(), "We had an issue") {
		t.Fatalf("DegradedMessage=%q", tool.DegradedMessage())
	}
}

package issues

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type tracker struct {
	t       *testing.T
	issues  map[string]Issue
	created []createRequest
	fail    bool
}

func (tr *tracker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != "bot" || pass != "token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if tr.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/rest/api/2/myself":
		_, _ = w.Write([]byte(`{"name":"bot"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/rest/api/2/search":
		jql := r.URL.Query().Get("jql")
		id := jql[strings.LastIndex(jql, " ")+1:]
		var out searchResponse
		if issue, ok := tr.issues[id]; ok && strings.HasPrefix(jql, "project = Grievances AND id = ") {
			out.Issues = append(out.Issues, issue)
		}
		_ = json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodPost && r.URL.Path == "/rest/api/2/issue":
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			tr.t.Errorf("decode create: %v", err)
		}
		tr.created = append(tr.created, req)
		_, _ = w.Write([]byte(`{"id":"10042","key":"GRV-42"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTracker(t *testing.T) (*tracker, *Client) {
	t.Helper()
	tr := &tracker{t: t, issues: map[string]Issue{}}
	srv := httptest.NewServer(tr)
	t.Cleanup(srv.Close)
	c := New(Config{
		URL:         srv.URL,
		Username:    "bot",
		APIKey:      "token",
		ProjectKey:  "GRV",
		ProjectName: "Grievances",
	})
	return tr, c
}

func toolByName(t *testing.T, c *Client, name string) func(context.Context, string) (string, error) {
	t.Helper()
	for _, tool := range c.Tools() {
		if tool.Name == name {
			return func(ctx context.Context, args string) (string, error) {
				return tool.Call(ctx, json.RawMessage(args))
			}
		}
	}
	t.Fatalf("tool %q not found", name)
	return nil
}

func TestPing(t *testing.T) {
	_, c := newTracker(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
}

func TestStatusTool(t *testing.T) {
	tr, c := newTracker(t)
	issue := Issue{ID: "10001"}
	issue.Fields.Priority = &Named{Name: "High"}
	issue.Fields.Status = &Status{}
	issue.Fields.Status.StatusCategory.Key = "indeterminate"
	issue.Fields.Description = "broken projector"
	tr.issues["10001"] = issue

	call := toolByName(t, c, StatusToolName)
	got, err := call(context.Background(), `{"grievance_id":10001}`)
	if err != nil {
		t.Fatalf("call error: %v", err)
	}
	want := "\n Here is the updated status of your grievance.\ngrievance_id : 10001" +
		"\npriority : High\nstatus : indeterminate\ngrievance description : broken projector" +
		"\ndue date : not assigned by the system yet."
	if got != want {
		t.Fatalf("output=%q, want %q", got, want)
	}

	got, err = call(context.Background(), `{"grievance_id":7}`)
	if err != nil {
		t.Fatalf("call error: %v", err)
	}
	if got != notFoundMessage {
		t.Fatalf("output=%q, want not found message", got)
	}
}

func TestFormatStatusDueDate(t *testing.T) {
	issue := Issue{ID: "1"}
	issue.Fields.DueDate = "2026-11-01"
	if got := FormatStatus(issue); !strings.HasSuffix(got, "\ndue date : 2026-11-01") {
		t.Fatalf("FormatStatus=%q", got)
	}
}

func TestRegisterTool(t *testing.T) {
	tr, c := newTracker(t)
	call := toolByName(t, c, RegisterToolName)
	got, err := call(context.Background(), `{"grievance_category":"Library issues","grievance_description":"no quiet room"}`)
	if err != nil {
		t.Fatalf("call error: %v", err)
	}
	if got != RegisteredMessage("10042") {
		t.Fatalf("output=%q", got)
	}
	if len(tr.created) != 1 {
		t.Fatalf("created=%d, want 1", len(tr.created))
	}
	fields := tr.created[0].Fields
	if fields.Project.Key != "GRV" || fields.IssueType.Name != "Task" || fields.Summary != "Library issues" {
		t.Fatalf("fields=%+v", fields)
	}
}

func TestRegisterSchemaEnum(t *testing.T) {
	_, c := newTracker(t)
	for _, tool := range c.Tools() {
		if tool.Name != RegisterToolName {
			continue
		}
		prop := tool.Parameters.Properties["grievance_category"]
		if prop == nil || len(prop.Enum) != len(Categories) {
			t.Fatalf("grievance_category=%+v, want %d enum values", prop, len(Categories))
		}
		return
	}
	t.Fatal("register tool missing")
}

func TestBackendFailure(t *testing.T) {
	tr, c := newTracker(t)
	tr.fail = true
	_, _, err := c.FindByID(context.Background(), "1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err=%v, want APIError 500", err)
	}

	if err := New(Config{}).Ping(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err=%v, want ErrNotConfigured", err)
	}
}

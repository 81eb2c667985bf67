package youtrack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannvm/youtrack-analyzer/internal/models"
)

const issueJSON = `{
	"id": "2-42",
	"idReadable": "DEMO-42",
	"summary": "Cannot move card",
	"description": "Dragging to In Progress fails",
	"created": 1700000000000,
	"updated": 1700003600000,
	"reporter": {"login": "jdoe"},
	"project": {"id": "DEMO", "shortName": "DEMO"},
	"tags": [{"name": "regression"}],
	"fields": [
		{"name": "State", "value": {"name": "Open"}},
		{"name": "Assignee", "value": null},
		{"name": "Priority", "value": {"name": "Critical"}},
		{"name": "Type", "value": {"name": "Bug"}}
	]
}`

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(Config{BaseURL: srv.URL, Token: "test-token", Timeout: 5 * time.Second})
	return client, srv
}

func TestGetIssueMapsFields(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/issues/DEMO-42", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.URL.Query().Get("fields"))
		fmt.Fprint(w, issueJSON)
	}))
	defer srv.Close()

	issue, err := client.GetIssue(context.Background(), "DEMO-42")
	require.NoError(t, err)

	assert.Equal(t, "DEMO-42", issue.ID)
	assert.Equal(t, "DEMO", issue.ProjectID)
	assert.Equal(t, "Cannot move card", issue.Summary)
	assert.Equal(t, "Open", issue.State)
	assert.Empty(t, issue.Assignee)
	assert.Equal(t, "Critical", issue.Priority)
	assert.Equal(t, "Bug", issue.Type)
	assert.Equal(t, "jdoe", issue.Reporter)
	assert.Equal(t, []string{"regression"}, issue.Tags)
	assert.Equal(t, time.UnixMilli(1700000000000), issue.Created)
	assert.False(t, issue.IsResolved())
}

func TestGetIssueProjectFromReadableID(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"2-7","idReadable":"OPS-7","summary":"x","created":0,"updated":0,"fields":[]}`)
	}))
	defer srv.Close()

	issue, err := client.GetIssue(context.Background(), "OPS-7")
	require.NoError(t, err)
	assert.Equal(t, "OPS", issue.ProjectID)
	assert.Equal(t, "Unknown", issue.State)
}

func TestSearchIssuesPassesPagingParams(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/issues", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "project: DEMO", q.Get("query"))
		assert.Equal(t, "25", q.Get("$top"))
		assert.Equal(t, "50", q.Get("$skip"))
		fmt.Fprintf(w, "[%s]", issueJSON)
	}))
	defer srv.Close()

	issues, err := client.SearchIssues(context.Background(), "project: DEMO", 25, 50)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "DEMO-42", issues[0].ID)
}

func TestGetProjectWorkflowsMapsRules(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/projects/DEMO/workflows", r.URL.Path)
		fmt.Fprint(w, `[{
			"id": "wf-1",
			"name": "Assignee Enforcement",
			"isEnabled": true,
			"rules": [{
				"id": "r1",
				"name": "Require Assignee on Start Progress",
				"ruleType": "on-change",
				"guard": "assignee == null",
				"title": "An assignee is required",
				"body": "block transition",
				"requirements": {"Assignee": "User"},
				"isEnabled": true
			}]
		}]`)
	}))
	defer srv.Close()

	workflows, err := client.GetProjectWorkflows(context.Background(), "DEMO")
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	require.Len(t, workflows[0].Rules, 1)

	rule := workflows[0].Rules[0]
	assert.Equal(t, models.RuleTypeOnChange, rule.Type)
	assert.Equal(t, "assignee == null", rule.Guard)
	assert.Equal(t, "block transition", rule.Action)
	assert.Equal(t, "An assignee is required", rule.Message)
	assert.Equal(t, map[string]string{"Assignee": "User"}, rule.Requirements)
}

func TestGetWorkflowRulesScriptFallback(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/workflows/wf-9/rules", r.URL.Path)
		fmt.Fprint(w, `[{"id":"r9","name":"Nightly Sweep","ruleType":"custom","script":"sweep()","isEnabled":true}]`)
	}))
	defer srv.Close()

	rules, err := client.GetWorkflowRules(context.Background(), "wf-9")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, models.RuleTypeCustomScript, rules[0].Type)
	assert.Equal(t, "sweep()", rules[0].Action)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var authErr *AuthenticationError
				assert.True(t, errors.As(err, &authErr))
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var authErr *AuthenticationError
				assert.True(t, errors.As(err, &authErr))
			},
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.True(t, IsNotFound(err))
				var nf *NotFoundError
				require.True(t, errors.As(err, &nf))
				assert.Contains(t, nf.Resource, "DEMO-42")
			},
		},
		{
			name:   "rate limited with header",
			status: http.StatusTooManyRequests,
			header: http.Header{"Retry-After": {"120"}},
			check: func(t *testing.T, err error) {
				var rl *RateLimitError
				require.True(t, errors.As(err, &rl))
				assert.Equal(t, 2*time.Minute, rl.RetryAfter)
			},
		},
		{
			name:   "rate limited without header",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				var rl *RateLimitError
				require.True(t, errors.As(err, &rl))
				assert.Equal(t, time.Minute, rl.RetryAfter)
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				assert.True(t, IsValidation(err))
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				var se *ServerError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusBadGateway, se.StatusCode)
			},
		},
		{
			name:   "teapot maps to unknown",
			status: http.StatusTeapot,
			check: func(t *testing.T, err error) {
				var ue *UnknownError
				assert.True(t, errors.As(err, &ue))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, vals := range tt.header {
					for _, v := range vals {
						w.Header().Add(k, v)
					}
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := client.GetIssue(context.Background(), "DEMO-42")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNetworkErrorOnUnreachableHost(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Token: "t", Timeout: time.Second})

	_, err := client.GetIssue(context.Background(), "DEMO-42")
	require.Error(t, err)
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestTestConnection(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/users/me", r.URL.Path)
		fmt.Fprint(w, `{"id":"1-1","login":"admin"}`)
	}))
	defer srv.Close()

	assert.NoError(t, client.TestConnection(context.Background()))
}

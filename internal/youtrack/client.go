package youtrack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tuannvm/youtrack-analyzer/internal/models"
)

const (
	apiPrefix      = "/api"
	adminAPIPrefix = "/api/admin"

	issueFields    = "id,idReadable,summary,description,created,updated,resolved,reporter(login),project(id,shortName),tags(name),fields(name,value(name))"
	workflowFields = "id,name,description,isEnabled,isAutoAttached,rules(id,name,ruleType,guard,title,body,script,requirements,isEnabled)"
	ruleFields     = "id,name,ruleType,guard,title,body,script,requirements,isEnabled"
)

// Config holds the settings for the YouTrack REST client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client issues HTTP calls against the YouTrack REST API and returns typed
// results or a classified error. It performs no retries itself; retry policy
// lives at the repository level.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new YouTrack client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the configured tracker base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// GetIssue fetches a single issue by its id or readable id.
func (c *Client) GetIssue(ctx context.Context, issueID string) (*models.Issue, error) {
	var dto issueDTO
	path := apiPrefix + "/issues/" + url.PathEscape(issueID)
	if err := c.get(ctx, path, url.Values{"fields": {issueFields}}, &dto, "issue "+issueID); err != nil {
		return nil, err
	}
	issue := dto.toDomain()
	return &issue, nil
}

// SearchIssues runs a YouTrack query and returns the matching issues.
// limit and offset map onto the API's paging parameters.
func (c *Client) SearchIssues(ctx context.Context, query string, limit, offset int) ([]models.Issue, error) {
	var dtos []issueDTO
	params := url.Values{
		"query":  {query},
		"fields": {issueFields},
		"$top":   {strconv.Itoa(limit)},
		"$skip":  {strconv.Itoa(offset)},
	}
	if err := c.get(ctx, apiPrefix+"/issues", params, &dtos, "issue search "+query); err != nil {
		return nil, err
	}
	issues := make([]models.Issue, 0, len(dtos))
	for _, dto := range dtos {
		issues = append(issues, dto.toDomain())
	}
	return issues, nil
}

// GetProjectWorkflows fetches the workflows attached to a project.
func (c *Client) GetProjectWorkflows(ctx context.Context, projectID string) ([]models.Workflow, error) {
	var dtos []workflowDTO
	path := adminAPIPrefix + "/projects/" + url.PathEscape(projectID) + "/workflows"
	if err := c.get(ctx, path, url.Values{"fields": {workflowFields}}, &dtos, "project "+projectID); err != nil {
		return nil, err
	}
	workflows := make([]models.Workflow, 0, len(dtos))
	for _, dto := range dtos {
		workflows = append(workflows, dto.toDomain())
	}
	return workflows, nil
}

// GetWorkflowRules fetches the rule set of a single workflow.
func (c *Client) GetWorkflowRules(ctx context.Context, workflowID string) ([]models.WorkflowRule, error) {
	var dtos []ruleDTO
	path := adminAPIPrefix + "/workflows/" + url.PathEscape(workflowID) + "/rules"
	if err := c.get(ctx, path, url.Values{"fields": {ruleFields}}, &dtos, "workflow "+workflowID); err != nil {
		return nil, err
	}
	rules := make([]models.WorkflowRule, 0, len(dtos))
	for _, dto := range dtos {
		rules = append(rules, dto.toDomain())
	}
	return rules, nil
}

// TestConnection verifies credentials by fetching the calling user.
func (c *Client) TestConnection(ctx context.Context) error {
	var me struct {
		ID    string `json:"id"`
		Login string `json:"login"`
	}
	return c.get(ctx, apiPrefix+"/admin/users/me", url.Values{"fields": {"id,login"}}, &me, "current user")
}

// get executes a GET request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}, resource string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{
			Message: fmt.Sprintf("request to %s failed: %v", path, err),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if err := classify(resp, resource); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ValidationError{
			Field:   "response",
			Message: fmt.Sprintf("failed to parse response: %v", err),
		}
	}
	return nil
}

// classify maps a response status onto the error taxonomy. A nil return
// means the body is safe to decode.
func classify(resp *http.Response, resource string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthenticationError{Message: "invalid or expired authentication token"}
	case resp.StatusCode == http.StatusForbidden:
		return &AuthenticationError{Message: "access denied to the requested resource"}
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Resource: resource}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 60 * time.Second
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{RetryAfter: retryAfter}
	case resp.StatusCode == http.StatusBadRequest:
		return &ValidationError{Field: "request", Message: readBody(resp)}
	case resp.StatusCode >= 500:
		return &ServerError{Message: readBody(resp), StatusCode: resp.StatusCode}
	default:
		return &UnknownError{
			Message: fmt.Sprintf("unexpected response status %d: %s", resp.StatusCode, readBody(resp)),
		}
	}
}

func readBody(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return resp.Status
	}
	return string(body)
}

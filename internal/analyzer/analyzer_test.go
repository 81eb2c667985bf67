package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannvm/youtrack-analyzer/internal/models"
	"github.com/tuannvm/youtrack-analyzer/internal/youtrack"
)

type stubIssues struct {
	issue *models.Issue
	err   error
}

func (s *stubIssues) GetIssue(ctx context.Context, issueID string) (*models.Issue, error) {
	return s.issue, s.err
}

type stubWorkflows struct {
	rules []models.WorkflowRule
	err   error
}

func (s *stubWorkflows) GetProjectRules(ctx context.Context, projectID string) ([]models.WorkflowRule, error) {
	return s.rules, s.err
}

type stubLLM struct {
	lastPrompt string
	completion string
	err        error
	panicWith  interface{}
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	s.lastPrompt = prompt
	return s.completion, s.err
}

func TestAnalyzeEnrichedFlow(t *testing.T) {
	issues := &stubIssues{issue: &models.Issue{
		ID:        "DEMO-42",
		ProjectID: "DEMO",
		Summary:   "Cannot move card to In Progress",
		State:     "Open",
	}}
	workflows := &stubWorkflows{rules: []models.WorkflowRule{{
		ID:    "r1",
		Name:  "Require Assignee on Start Progress",
		Guard: "assignee == null",
	}}}
	model := &stubLLM{completion: `{"analysis":"the Require Assignee on Start Progress rule requires an assignee","suggestion":"Assign the issue to someone first","blockedByRules":["Require Assignee on Start Progress"]}`}

	a := New(issues, workflows, model, "https://yt.example.com")
	resp, err := a.Analyze(context.Background(), "cannot start progress", "DEMO-42", "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(model.lastPrompt, "Issue: DEMO-42"))
	assert.Contains(t, resp.Explanation, "requires an assignee")
	assert.Equal(t, []string{"Assign the issue to someone first"}, resp.SuggestedActions)
	require.Len(t, resp.WorkflowRules, 1)
	assert.Equal(t, "https://yt.example.com/admin/workflows/rules/r1", resp.WorkflowRules[0].RuleURL)
}

func TestAnalyzeValidation(t *testing.T) {
	a := New(&stubIssues{}, &stubWorkflows{}, &stubLLM{}, "")

	_, err := a.Analyze(context.Background(), "", "", "")
	require.Error(t, err)
	assert.True(t, youtrack.IsValidation(err))
	assert.Contains(t, err.Error(), "description required")

	_, err = a.Analyze(context.Background(), "   \t ", "", "")
	assert.True(t, youtrack.IsValidation(err))

	_, err = a.Analyze(context.Background(), strings.Repeat("x", 1001), "", "")
	require.Error(t, err)
	assert.True(t, youtrack.IsValidation(err))
	assert.Contains(t, err.Error(), "too long")
}

func TestAnalyzeDescriptionAtLimit(t *testing.T) {
	model := &stubLLM{completion: `{"explanation":"x","suggestion":"y","blockedByRules":[]}`}
	a := New(&stubIssues{}, &stubWorkflows{}, model, "")

	_, err := a.Analyze(context.Background(), strings.Repeat("x", 1000), "", "")
	assert.NoError(t, err)
}

func TestAnalyzeDescriptionLengthCountsRunes(t *testing.T) {
	model := &stubLLM{completion: `{"explanation":"x","suggestion":"y","blockedByRules":[]}`}
	a := New(&stubIssues{}, &stubWorkflows{}, model, "")

	// 1000 multi-byte runes must pass the limit check.
	_, err := a.Analyze(context.Background(), strings.Repeat("é", 1000), "", "")
	assert.NoError(t, err)

	_, err = a.Analyze(context.Background(), strings.Repeat("é", 1001), "", "")
	assert.Error(t, err)
}

func TestAnalyzeIssueNotFoundIsTerminal(t *testing.T) {
	issues := &stubIssues{err: &youtrack.NotFoundError{Resource: "issue DEMO-404"}}
	a := New(issues, &stubWorkflows{}, &stubLLM{}, "")

	_, err := a.Analyze(context.Background(), "boom", "DEMO-404", "")
	require.Error(t, err)
	assert.True(t, youtrack.IsNotFound(err))
}

func TestAnalyzeTransientIssueFailureDegrades(t *testing.T) {
	issues := &stubIssues{err: &youtrack.NetworkError{Message: "connection refused"}}
	model := &stubLLM{completion: `{"explanation":"x","suggestion":"y","blockedByRules":[]}`}
	a := New(issues, &stubWorkflows{}, model, "")

	resp, err := a.Analyze(context.Background(), "boom", "DEMO-42", "")
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.True(t, strings.HasPrefix(model.lastPrompt, "User reported: boom"))
	assert.Contains(t, model.lastPrompt, "Issue ID: DEMO-42")
}

func TestAnalyzeRuleFailureDegradesToBasicPrompt(t *testing.T) {
	issues := &stubIssues{issue: &models.Issue{ID: "DEMO-42", ProjectID: "DEMO", State: "Open"}}
	workflows := &stubWorkflows{err: errors.New("admin api down")}
	model := &stubLLM{completion: `{"explanation":"x","suggestion":"y","blockedByRules":[]}`}
	a := New(issues, workflows, model, "")

	_, err := a.Analyze(context.Background(), "boom", "DEMO-42", "")
	require.NoError(t, err)
	// No rules means the enriched prompt is off even with an issue in hand.
	assert.True(t, strings.HasPrefix(model.lastPrompt, "User reported:"))
}

func TestAnalyzeIssueProjectWinsOverExplicit(t *testing.T) {
	issues := &stubIssues{issue: &models.Issue{ID: "DEMO-42", ProjectID: "DEMO", State: "Open"}}
	var askedProject string
	workflows := &projectRecordingWorkflows{onProject: func(p string) { askedProject = p }}
	model := &stubLLM{completion: `{"explanation":"x","suggestion":"y","blockedByRules":[]}`}
	a := New(issues, workflows, model, "")

	_, err := a.Analyze(context.Background(), "boom", "DEMO-42", "OTHER")
	require.NoError(t, err)
	assert.Equal(t, "DEMO", askedProject)
}

func TestAnalyzeProjectOnlyRequest(t *testing.T) {
	workflows := &stubWorkflows{rules: []models.WorkflowRule{{ID: "r1", Name: "R"}}}
	model := &stubLLM{completion: `{"explanation":"x","suggestion":"y","blockedByRules":[]}`}
	a := New(&stubIssues{}, workflows, model, "")

	_, err := a.Analyze(context.Background(), "boom", "", "DEMO")
	require.NoError(t, err)
	// Rules without an issue still produce the basic prompt.
	assert.True(t, strings.HasPrefix(model.lastPrompt, "User reported:"))
}

func TestAnalyzeLLMFailure(t *testing.T) {
	model := &stubLLM{err: errors.New("provider 500")}
	a := New(&stubIssues{}, &stubWorkflows{}, model, "")

	_, err := a.Analyze(context.Background(), "boom", "", "")
	require.Error(t, err)
	var ue *youtrack.UnknownError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, ue.Message, "completion failed")
}

func TestAnalyzeRecoversFromPanic(t *testing.T) {
	model := &stubLLM{panicWith: "prompt template exploded"}
	a := New(&stubIssues{}, &stubWorkflows{}, model, "")

	resp, err := a.Analyze(context.Background(), "boom", "", "")
	require.Error(t, err)
	assert.Nil(t, resp)
	var ue *youtrack.UnknownError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, ue.Message, "prompt template exploded")
}

type projectRecordingWorkflows struct {
	onProject func(string)
}

func (w *projectRecordingWorkflows) GetProjectRules(ctx context.Context, projectID string) ([]models.WorkflowRule, error) {
	w.onProject(projectID)
	return nil, nil
}

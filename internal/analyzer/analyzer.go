// Package analyzer orchestrates workflow-failure analysis: it gathers issue
// and rule context, prompts the model, and reconciles the answer.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tuannvm/youtrack-analyzer/internal/llm"
	"github.com/tuannvm/youtrack-analyzer/internal/logging"
	"github.com/tuannvm/youtrack-analyzer/internal/models"
	"github.com/tuannvm/youtrack-analyzer/internal/youtrack"
)

const maxDescriptionLength = 1000

// IssueSource resolves the optional issue context of a request.
type IssueSource interface {
	GetIssue(ctx context.Context, issueID string) (*models.Issue, error)
}

// RuleSource resolves a project's aggregated workflow rules.
type RuleSource interface {
	GetProjectRules(ctx context.Context, projectID string) ([]models.WorkflowRule, error)
}

// Analyzer turns a user's error description into an analysis response.
type Analyzer struct {
	issues    IssueSource
	workflows RuleSource
	llm       llm.Client
	baseURL   string
}

// New builds an Analyzer. baseURL is the tracker base used for rule links.
func New(issues IssueSource, workflows RuleSource, llmClient llm.Client, baseURL string) *Analyzer {
	return &Analyzer{
		issues:    issues,
		workflows: workflows,
		llm:       llmClient,
		baseURL:   baseURL,
	}
}

// Analyze runs one analysis. Missing context degrades the prompt rather than
// failing the request; only an invalid description, a definitively missing
// issue, or a completion failure is terminal.
func (a *Analyzer) Analyze(ctx context.Context, description, issueID, projectID string) (resp *models.AnalysisResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("analysis panicked: %v", r)
			resp = nil
			err = &youtrack.UnknownError{Message: fmt.Sprintf("analysis failed: %v", r)}
		}
	}()

	if err := validateDescription(description); err != nil {
		return nil, err
	}

	issue, err := a.fetchIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	effectiveProject := projectID
	if issue != nil {
		// The issue's own project wins over whatever the caller passed.
		effectiveProject = issue.ProjectID
	}

	rules := a.fetchRules(ctx, effectiveProject)

	var prompt string
	if issue != nil && len(rules) > 0 {
		prompt = BuildEnrichedPrompt(issue, rules, description)
	} else {
		prompt = BuildBasicPrompt(description, issueID)
	}

	completion, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, &youtrack.UnknownError{Message: fmt.Sprintf("completion failed: %v", err)}
	}

	result := ParseResponse(completion, rules, a.baseURL)
	return &result, nil
}

// fetchIssue resolves the optional issue context. A missing issue id is not
// an error; a confirmed not-found is terminal; anything else degrades.
func (a *Analyzer) fetchIssue(ctx context.Context, issueID string) (*models.Issue, error) {
	if issueID == "" {
		return nil, nil
	}
	issue, err := a.issues.GetIssue(ctx, issueID)
	if err != nil {
		if youtrack.IsNotFound(err) {
			return nil, &youtrack.NotFoundError{Resource: "issue " + issueID}
		}
		logging.Warnf("could not fetch issue %s, continuing without it: %v", issueID, err)
		return nil, nil
	}
	return issue, nil
}

// fetchRules resolves project rules, degrading to none on any failure.
func (a *Analyzer) fetchRules(ctx context.Context, projectID string) []models.WorkflowRule {
	if projectID == "" {
		return nil
	}
	rules, err := a.workflows.GetProjectRules(ctx, projectID)
	if err != nil {
		logging.Warnf("could not fetch rules for project %s, continuing without them: %v", projectID, err)
		return nil
	}
	return rules
}

func validateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return &youtrack.ValidationError{Field: "errorMessage", Message: "description required"}
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return &youtrack.ValidationError{Field: "errorMessage", Message: "too long"}
	}
	return nil
}

// Package repository provides read access to tracker entities, with a
// remote implementation backed by the YouTrack API and caching decorators
// layered on top.
package repository

import (
	"context"
	"time"

	"github.com/tuannvm/youtrack-analyzer/internal/models"
	"github.com/tuannvm/youtrack-analyzer/internal/retry"
)

// IssueRepository reads issues.
type IssueRepository interface {
	GetIssue(ctx context.Context, issueID string) (*models.Issue, error)
	SearchIssues(ctx context.Context, query string, limit, offset int) ([]models.Issue, error)
}

// WorkflowRepository reads workflows and their rules.
type WorkflowRepository interface {
	GetProjectWorkflows(ctx context.Context, projectID string) ([]models.Workflow, error)
	GetWorkflowRules(ctx context.Context, workflowID string) ([]models.WorkflowRule, error)
	// GetProjectRules returns the union of rules across all workflows of the
	// project, in workflow order. Rules of workflows that fail to load are
	// omitted rather than failing the whole call.
	GetProjectRules(ctx context.Context, projectID string) ([]models.WorkflowRule, error)
}

// RetryPolicy controls how remote calls are retried.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy mirrors the retry package defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: retry.DefaultMaxAttempts, Delay: retry.DefaultDelay}
}

// apiClient is the slice of the YouTrack client the repositories need.
type apiClient interface {
	GetIssue(ctx context.Context, issueID string) (*models.Issue, error)
	SearchIssues(ctx context.Context, query string, limit, offset int) ([]models.Issue, error)
	GetProjectWorkflows(ctx context.Context, projectID string) ([]models.Workflow, error)
	GetWorkflowRules(ctx context.Context, workflowID string) ([]models.WorkflowRule, error)
}

package repository

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tuannvm/youtrack-analyzer/internal/logging"
	"github.com/tuannvm/youtrack-analyzer/internal/models"
	"github.com/tuannvm/youtrack-analyzer/internal/retry"
)

// YouTrackIssueRepository fetches issues from the remote API, retrying
// transient failures per its policy.
type YouTrackIssueRepository struct {
	client apiClient
	policy RetryPolicy
}

// NewYouTrackIssueRepository wraps client with the given retry policy.
func NewYouTrackIssueRepository(client apiClient, policy RetryPolicy) *YouTrackIssueRepository {
	return &YouTrackIssueRepository{client: client, policy: policy}
}

func (r *YouTrackIssueRepository) GetIssue(ctx context.Context, issueID string) (*models.Issue, error) {
	return retry.Do(ctx, r.policy.MaxAttempts, r.policy.Delay, func(ctx context.Context) (*models.Issue, error) {
		return r.client.GetIssue(ctx, issueID)
	})
}

func (r *YouTrackIssueRepository) SearchIssues(ctx context.Context, query string, limit, offset int) ([]models.Issue, error) {
	return retry.Do(ctx, r.policy.MaxAttempts, r.policy.Delay, func(ctx context.Context) ([]models.Issue, error) {
		return r.client.SearchIssues(ctx, query, limit, offset)
	})
}

// YouTrackWorkflowRepository fetches workflows and rules from the remote API.
type YouTrackWorkflowRepository struct {
	client apiClient
	policy RetryPolicy
}

// NewYouTrackWorkflowRepository wraps client with the given retry policy.
func NewYouTrackWorkflowRepository(client apiClient, policy RetryPolicy) *YouTrackWorkflowRepository {
	return &YouTrackWorkflowRepository{client: client, policy: policy}
}

func (r *YouTrackWorkflowRepository) GetProjectWorkflows(ctx context.Context, projectID string) ([]models.Workflow, error) {
	return retry.Do(ctx, r.policy.MaxAttempts, r.policy.Delay, func(ctx context.Context) ([]models.Workflow, error) {
		return r.client.GetProjectWorkflows(ctx, projectID)
	})
}

func (r *YouTrackWorkflowRepository) GetWorkflowRules(ctx context.Context, workflowID string) ([]models.WorkflowRule, error) {
	return retry.Do(ctx, r.policy.MaxAttempts, r.policy.Delay, func(ctx context.Context) ([]models.WorkflowRule, error) {
		return r.client.GetWorkflowRules(ctx, workflowID)
	})
}

// GetProjectRules fans out one rule fetch per workflow and concatenates the
// results in workflow order. A failed branch contributes nothing and never
// cancels its siblings; only the workflow listing itself is fatal.
func (r *YouTrackWorkflowRepository) GetProjectRules(ctx context.Context, projectID string) ([]models.WorkflowRule, error) {
	workflows, err := r.GetProjectWorkflows(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ruleSets := make([][]models.WorkflowRule, len(workflows))
	g, gctx := errgroup.WithContext(ctx)
	for i, wf := range workflows {
		g.Go(func() error {
			rules, err := r.GetWorkflowRules(gctx, wf.ID)
			if err != nil {
				logging.Warnf("failed to fetch rules for workflow %s (%s): %v", wf.ID, wf.Name, err)
				return nil
			}
			ruleSets[i] = rules
			return nil
		})
	}
	// Branches swallow their own errors, so Wait only reflects completion.
	_ = g.Wait()

	var all []models.WorkflowRule
	for _, rules := range ruleSets {
		all = append(all, rules...)
	}
	return all, nil
}

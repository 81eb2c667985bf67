package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tuannvm/youtrack-analyzer/internal/cache"
	"github.com/tuannvm/youtrack-analyzer/internal/logging"
	"github.com/tuannvm/youtrack-analyzer/internal/models"
)

// getOrLoad implements the cache-aside read path: consult the store, fall
// back to the loader on a miss, and write the result back best-effort. Any
// store failure degrades to a direct loader call; only loader errors
// propagate to the caller.
func getOrLoad[T any](ctx context.Context, store cache.Store, key string, ttl time.Duration, loader func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, found, err := store.Get(ctx, key)
	if err != nil {
		logging.Warnf("cache get failed for %s, falling back to source: %v", key, err)
	} else if found {
		var cached T
		if err := json.Unmarshal([]byte(raw), &cached); err != nil {
			// Undecodable entries count as misses and get overwritten below.
			logging.Warnf("cache entry for %s is corrupt, reloading: %v", key, err)
		} else {
			return cached, nil
		}
	}

	value, err := loader(ctx)
	if err != nil {
		return zero, err
	}

	if encoded, err := json.Marshal(value); err != nil {
		logging.Warnf("failed to encode %s for caching: %v", key, err)
	} else if err := store.Set(ctx, key, string(encoded), ttl); err != nil {
		logging.Warnf("cache set failed for %s: %v", key, err)
	}
	return value, nil
}

// CachedIssueRepository layers a TTL cache over an issue repository.
type CachedIssueRepository struct {
	delegate IssueRepository
	store    cache.Store
}

// NewCachedIssueRepository wraps delegate with store.
func NewCachedIssueRepository(delegate IssueRepository, store cache.Store) *CachedIssueRepository {
	return &CachedIssueRepository{delegate: delegate, store: store}
}

func (r *CachedIssueRepository) GetIssue(ctx context.Context, issueID string) (*models.Issue, error) {
	return getOrLoad(ctx, r.store, cache.IssueKey(issueID), cache.TTLIssue, func(ctx context.Context) (*models.Issue, error) {
		return r.delegate.GetIssue(ctx, issueID)
	})
}

// SearchIssues caches query results briefly: search output goes stale the
// moment any matching issue changes, so the TTL is the shortest in use.
func (r *CachedIssueRepository) SearchIssues(ctx context.Context, query string, limit, offset int) ([]models.Issue, error) {
	key := fmt.Sprintf("%s:%d:%d", cache.SearchKey(query), limit, offset)
	return getOrLoad(ctx, r.store, key, cache.TTLIssueSearch, func(ctx context.Context) ([]models.Issue, error) {
		return r.delegate.SearchIssues(ctx, query, limit, offset)
	})
}

// InvalidateIssue removes a single issue from the cache.
func (r *CachedIssueRepository) InvalidateIssue(ctx context.Context, issueID string) error {
	_, err := r.store.Delete(ctx, cache.IssueKey(issueID))
	return err
}

// CachedWorkflowRepository layers a TTL cache over a workflow repository.
type CachedWorkflowRepository struct {
	delegate WorkflowRepository
	store    cache.Store
}

// NewCachedWorkflowRepository wraps delegate with store.
func NewCachedWorkflowRepository(delegate WorkflowRepository, store cache.Store) *CachedWorkflowRepository {
	return &CachedWorkflowRepository{delegate: delegate, store: store}
}

func (r *CachedWorkflowRepository) GetProjectWorkflows(ctx context.Context, projectID string) ([]models.Workflow, error) {
	return getOrLoad(ctx, r.store, cache.WorkflowsKey(projectID), cache.TTLWorkflow, func(ctx context.Context) ([]models.Workflow, error) {
		return r.delegate.GetProjectWorkflows(ctx, projectID)
	})
}

func (r *CachedWorkflowRepository) GetWorkflowRules(ctx context.Context, workflowID string) ([]models.WorkflowRule, error) {
	return getOrLoad(ctx, r.store, cache.WorkflowRulesKey(workflowID), cache.TTLWorkflowRules, func(ctx context.Context) ([]models.WorkflowRule, error) {
		return r.delegate.GetWorkflowRules(ctx, workflowID)
	})
}

func (r *CachedWorkflowRepository) GetProjectRules(ctx context.Context, projectID string) ([]models.WorkflowRule, error) {
	return getOrLoad(ctx, r.store, cache.ProjectRulesKey(projectID), cache.TTLWorkflowRules, func(ctx context.Context) ([]models.WorkflowRule, error) {
		return r.delegate.GetProjectRules(ctx, projectID)
	})
}

// InvalidateProject removes a project's workflow list and aggregated rule
// set from the cache. Per-workflow rule entries are not addressable by
// project id and expire by TTL.
func (r *CachedWorkflowRepository) InvalidateProject(ctx context.Context, projectID string) (int, error) {
	return r.store.DeleteMatching(ctx, cache.ProjectRulesPattern(projectID))
}

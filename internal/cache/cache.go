// Package cache provides a TTL key-value store used by the cached
// repositories. Keys are namespaced strings, values are serialized JSON.
package cache

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"
)

// Per-entity time-to-live values. Workflows and their rules change rarely;
// issues change often; search results go stale almost immediately.
const (
	TTLIssue         = 5 * time.Minute
	TTLIssueSearch   = 1 * time.Minute
	TTLWorkflow      = 1 * time.Hour
	TTLWorkflowRules = 1 * time.Hour
)

// DefaultKeyPrefix namespaces every key so the store can be shared.
const DefaultKeyPrefix = "youtrack:analyzer:"

// Stats summarizes store usage for the stats endpoint.
type Stats struct {
	Keys       int   `json:"keys"`
	MemoryUsed int64 `json:"memoryUsed"`
}

// Store is the cache abstraction the repositories depend on. Implementations
// must treat a missing key as (found=false, nil error), not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) (int, error)
	DeleteMatching(ctx context.Context, pattern string) (int, error)
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// IssueKey builds the cache key for a single issue.
func IssueKey(issueID string) string {
	return "issue:" + issueID
}

// WorkflowsKey builds the cache key for a project's workflow list.
func WorkflowsKey(projectID string) string {
	return "workflow:" + projectID
}

// WorkflowRulesKey builds the cache key for a single workflow's rules.
func WorkflowRulesKey(workflowID string) string {
	return "workflow:rules:" + workflowID
}

// ProjectRulesKey builds the cache key for a project's aggregated rule set.
func ProjectRulesKey(projectID string) string {
	return "workflow:rules:project:" + projectID
}

// ProjectRulesPattern matches the project-scoped workflow keys: the workflow
// list and the aggregated rule set. Per-workflow rule keys carry no project
// id, so invalidation cannot reach them; they age out by TTL instead.
func ProjectRulesPattern(projectID string) string {
	return "workflow:*" + projectID + "*"
}

// SearchKey builds the cache key for an issue search query. The query is
// hashed so arbitrary user input cannot produce unbounded or invalid keys.
func SearchKey(query string) string {
	h := fnv.New32a()
	h.Write([]byte(query))
	return fmt.Sprintf("search:%08x", h.Sum32())
}

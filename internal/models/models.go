package models

import "time"

// RuleType classifies how a workflow rule is triggered.
type RuleType string

const (
	RuleTypeStateMachine RuleType = "STATE_MACHINE"
	RuleTypeOnChange     RuleType = "ON_CHANGE"
	RuleTypeOnSchedule   RuleType = "ON_SCHEDULE"
	RuleTypeAction       RuleType = "ACTION"
	RuleTypeCustomScript RuleType = "CUSTOM_SCRIPT"
)

// Issue is a read-only snapshot of a YouTrack issue, fetched on demand and
// never mutated by this service.
type Issue struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	State       string     `json:"state"`
	Assignee    string     `json:"assignee,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	Type        string     `json:"type,omitempty"`
	Reporter    string     `json:"reporter,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Created     time.Time  `json:"created"`
	Updated     time.Time  `json:"updated"`
	Resolved    *time.Time `json:"resolved,omitempty"`
}

// IsResolved reports whether the issue has been resolved.
func (i *Issue) IsResolved() bool { return i.Resolved != nil }

// IsAssigned reports whether the issue has an assignee.
func (i *Issue) IsAssigned() bool { return i.Assignee != "" }

// Workflow is a workflow attached to a YouTrack project.
type Workflow struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	IsEnabled      bool           `json:"isEnabled"`
	IsAutoAttached bool           `json:"isAutoAttached"`
	Rules          []WorkflowRule `json:"rules,omitempty"`
}

// WorkflowRule is a single named rule inside a workflow. The name is the
// only reliable cross-system matching key: guard and action hold opaque
// script text, not structured data.
type WorkflowRule struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         RuleType          `json:"type"`
	Guard        string            `json:"guard,omitempty"`
	Action       string            `json:"action,omitempty"`
	Message      string            `json:"message,omitempty"`
	Requirements map[string]string `json:"requirements,omitempty"`
	IsEnabled    bool              `json:"isEnabled"`
}

// AnalysisRequest is the body of POST /analyze.
type AnalysisRequest struct {
	ErrorMessage string `json:"errorMessage"`
	IssueID      string `json:"issueId,omitempty"`
	ProjectID    string `json:"projectId,omitempty"`
}

// AnalysisResponse is the result of one analysis, produced fresh per request.
type AnalysisResponse struct {
	Explanation      string             `json:"explanation"`
	WorkflowRules    []WorkflowRuleInfo `json:"workflowRules"`
	SuggestedActions []string           `json:"suggestedActions"`
}

// WorkflowRuleInfo describes a rule the analysis identified as blocking the
// user's action. RuleURL is derived from the tracker base URL and rule id,
// never stored.
type WorkflowRuleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	RuleURL     string `json:"ruleUrl,omitempty"`
}

package youtrack

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tuannvm/youtrack-analyzer/internal/models"
)

// Wire shapes of the YouTrack REST API. Timestamps are epoch milliseconds.

type issueDTO struct {
	ID          string          `json:"id"`
	IDReadable  string          `json:"idReadable"`
	Summary     string          `json:"summary"`
	Description string          `json:"description"`
	Created     int64           `json:"created"`
	Updated     int64           `json:"updated"`
	Resolved    *int64          `json:"resolved"`
	Reporter    *userDTO        `json:"reporter"`
	Project     *projectRefDTO  `json:"project"`
	Tags        []tagDTO        `json:"tags"`
	Fields      []issueFieldDTO `json:"fields"`
}

type userDTO struct {
	Login string `json:"login"`
}

type projectRefDTO struct {
	ID        string `json:"id"`
	ShortName string `json:"shortName"`
}

type tagDTO struct {
	Name string `json:"name"`
}

// issueFieldDTO keeps the value raw: single-value fields arrive as an
// object, multi-value fields as an array.
type issueFieldDTO struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type workflowDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	IsEnabled      bool      `json:"isEnabled"`
	IsAutoAttached bool      `json:"isAutoAttached"`
	Rules          []ruleDTO `json:"rules"`
}

type ruleDTO struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	RuleType     string                     `json:"ruleType"`
	Guard        string                     `json:"guard"`
	Title        string                     `json:"title"`
	Body         string                     `json:"body"`
	Script       string                     `json:"script"`
	Requirements map[string]json.RawMessage `json:"requirements"`
	IsEnabled    bool                       `json:"isEnabled"`
}

func (d issueDTO) toDomain() models.Issue {
	id := d.IDReadable
	if id == "" {
		id = d.ID
	}

	projectID := ""
	if d.Project != nil {
		projectID = d.Project.ID
	}
	if projectID == "" && strings.Contains(d.IDReadable, "-") {
		projectID = d.IDReadable[:strings.Index(d.IDReadable, "-")]
	}

	tags := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		tags = append(tags, t.Name)
	}

	reporter := ""
	if d.Reporter != nil {
		reporter = d.Reporter.Login
	}

	state := fieldValueName(d.Fields, "State")
	if state == "" {
		state = "Unknown"
	}

	var resolved *time.Time
	if d.Resolved != nil {
		t := time.UnixMilli(*d.Resolved)
		resolved = &t
	}

	return models.Issue{
		ID:          id,
		ProjectID:   projectID,
		Summary:     d.Summary,
		Description: d.Description,
		State:       state,
		Assignee:    fieldValueName(d.Fields, "Assignee"),
		Priority:    fieldValueName(d.Fields, "Priority"),
		Type:        fieldValueName(d.Fields, "Type"),
		Reporter:    reporter,
		Tags:        tags,
		Created:     time.UnixMilli(d.Created),
		Updated:     time.UnixMilli(d.Updated),
		Resolved:    resolved,
	}
}

func (d workflowDTO) toDomain() models.Workflow {
	rules := make([]models.WorkflowRule, 0, len(d.Rules))
	for _, r := range d.Rules {
		rules = append(rules, r.toDomain())
	}
	return models.Workflow{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		IsEnabled:      d.IsEnabled,
		IsAutoAttached: d.IsAutoAttached,
		Rules:          rules,
	}
}

func (d ruleDTO) toDomain() models.WorkflowRule {
	// Rule body text lives in "body" for most rule kinds and in "script"
	// for custom scripts.
	action := d.Body
	if action == "" {
		action = d.Script
	}

	var requirements map[string]string
	if len(d.Requirements) > 0 {
		requirements = make(map[string]string, len(d.Requirements))
		for key, raw := range d.Requirements {
			requirements[key] = rawToString(raw)
		}
	}

	return models.WorkflowRule{
		ID:           d.ID,
		Name:         d.Name,
		Type:         mapRuleType(d.RuleType),
		Guard:        d.Guard,
		Action:       action,
		Message:      d.Title,
		Requirements: requirements,
		IsEnabled:    d.IsEnabled,
	}
}

// fieldValueName extracts the named custom field's value name, tolerating
// both object and array value shapes.
func fieldValueName(fields []issueFieldDTO, name string) string {
	for _, f := range fields {
		if !strings.EqualFold(f.Name, name) || len(f.Value) == 0 {
			continue
		}
		var single struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(f.Value, &single); err == nil && single.Name != "" {
			return single.Name
		}
		var multi []struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(f.Value, &multi); err == nil && len(multi) > 0 {
			return multi[0].Name
		}
	}
	return ""
}

func mapRuleType(ruleType string) models.RuleType {
	switch strings.ToUpper(ruleType) {
	case "STATEMACHINE", "STATE_MACHINE":
		return models.RuleTypeStateMachine
	case "ONCHANGE", "ON_CHANGE":
		return models.RuleTypeOnChange
	case "ONSCHEDULE", "ON_SCHEDULE":
		return models.RuleTypeOnSchedule
	case "ACTION":
		return models.RuleTypeAction
	default:
		return models.RuleTypeCustomScript
	}
}

func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err == nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

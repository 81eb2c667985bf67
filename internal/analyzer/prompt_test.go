package analyzer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuannvm/youtrack-analyzer/internal/models"
)

func demoIssue() *models.Issue {
	return &models.Issue{
		ID:       "DEMO-42",
		Summary:  "Cannot move card to In Progress",
		State:    "Open",
		Priority: "Critical",
		Type:     "Bug",
	}
}

func TestBuildEnrichedPromptContents(t *testing.T) {
	rules := []models.WorkflowRule{{
		Name:    "Require Assignee on Start Progress",
		Type:    models.RuleTypeOnChange,
		Guard:   "assignee == null",
		Message: "An assignee is required",
		Requirements: map[string]string{
			"Assignee": "User",
			"State":    "enum",
		},
	}}

	prompt := BuildEnrichedPrompt(demoIssue(), rules, "drag to In Progress fails")

	assert.Contains(t, prompt, `Issue: DEMO-42 - "Cannot move card to In Progress"`)
	assert.Contains(t, prompt, "Current State: Open")
	assert.Contains(t, prompt, "Assignee: (not set)")
	assert.Contains(t, prompt, "Priority: Critical")
	assert.Contains(t, prompt, "Type: Bug")
	assert.Contains(t, prompt, "User Action: drag to In Progress fails")
	assert.Contains(t, prompt, "1. Require Assignee on Start Progress (ON_CHANGE)")
	assert.Contains(t, prompt, "   - Guard: assignee == null")
	assert.Contains(t, prompt, "   - Message: An assignee is required")
	// Requirement keys only, never the values.
	assert.Contains(t, prompt, "   - Requirements: Assignee, State")
	assert.NotContains(t, prompt, "enum")
	assert.Contains(t, prompt, `"blockedByRules"`)
}

func TestBuildEnrichedPromptOmitsEmptyFields(t *testing.T) {
	issue := &models.Issue{ID: "DEMO-1", Summary: "x", State: "Open", Assignee: "jdoe"}

	prompt := BuildEnrichedPrompt(issue, nil, "boom")

	assert.Contains(t, prompt, "Assignee: jdoe")
	assert.NotContains(t, prompt, "Priority:")
	assert.NotContains(t, prompt, "Type:")
}

func TestBuildEnrichedPromptTruncatesRules(t *testing.T) {
	rules := make([]models.WorkflowRule, 20)
	for i := range rules {
		rules[i] = models.WorkflowRule{Name: fmt.Sprintf("Rule %d", i+1)}
	}

	prompt := BuildEnrichedPrompt(demoIssue(), rules, "boom")

	assert.Contains(t, prompt, "15. Rule 15")
	assert.NotContains(t, prompt, "16. Rule 16")
}

func TestBuildEnrichedPromptDeterministic(t *testing.T) {
	rules := []models.WorkflowRule{{
		Name: "R",
		Requirements: map[string]string{
			"c": "3", "a": "1", "b": "2", "d": "4", "e": "5",
		},
	}}

	first := BuildEnrichedPrompt(demoIssue(), rules, "boom")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildEnrichedPrompt(demoIssue(), rules, "boom"))
	}
	assert.Contains(t, first, "Requirements: a, b, c, d, e")
}

func TestBuildBasicPrompt(t *testing.T) {
	prompt := BuildBasicPrompt("cannot transition", "DEMO-42")

	assert.True(t, strings.HasPrefix(prompt, "User reported: cannot transition\n"))
	assert.Contains(t, prompt, "Issue ID: DEMO-42")
	assert.Contains(t, prompt, "1. What likely went wrong")
	assert.Contains(t, prompt, "3. How to fix it")
}

func TestBuildBasicPromptWithoutIssue(t *testing.T) {
	prompt := BuildBasicPrompt("cannot transition", "")
	assert.NotContains(t, prompt, "Issue ID:")
}

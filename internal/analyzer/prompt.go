package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tuannvm/youtrack-analyzer/internal/models"
)

// maxPromptRules bounds the prompt size for projects with large rule sets.
const maxPromptRules = 15

// BuildEnrichedPrompt renders the full analysis prompt from an issue, its
// project's rules, and the user's error description. Output is deterministic
// for identical input.
func BuildEnrichedPrompt(issue *models.Issue, rules []models.WorkflowRule, description string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Issue: %s - %q\n", issue.ID, issue.Summary)
	fmt.Fprintf(&b, "Current State: %s\n", issue.State)
	assignee := issue.Assignee
	if assignee == "" {
		assignee = "(not set)"
	}
	fmt.Fprintf(&b, "Assignee: %s\n", assignee)
	if issue.Priority != "" {
		fmt.Fprintf(&b, "Priority: %s\n", issue.Priority)
	}
	if issue.Type != "" {
		fmt.Fprintf(&b, "Type: %s\n", issue.Type)
	}
	fmt.Fprintf(&b, "\nUser Action: %s\n", description)

	b.WriteString("\nProject Workflow Rules:\n")
	if len(rules) > maxPromptRules {
		rules = rules[:maxPromptRules]
	}
	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, rule.Name, rule.Type)
		if rule.Guard != "" {
			fmt.Fprintf(&b, "   - Guard: %s\n", rule.Guard)
		}
		if rule.Action != "" {
			fmt.Fprintf(&b, "   - Action: %s\n", rule.Action)
		}
		if rule.Message != "" {
			fmt.Fprintf(&b, "   - Message: %s\n", rule.Message)
		}
		if len(rule.Requirements) > 0 {
			keys := make([]string, 0, len(rule.Requirements))
			for key := range rule.Requirements {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			fmt.Fprintf(&b, "   - Requirements: %s\n", strings.Join(keys, ", "))
		}
	}

	b.WriteString("\nWhich rule(s) blocked this action? Respond with:\n")
	b.WriteString("{\n")
	b.WriteString("  \"explanation\": \"brief analysis of what happened\",\n")
	b.WriteString("  \"suggestion\": \"how to fix it\",\n")
	b.WriteString("  \"blockedByRules\": [\"rule name 1\", \"rule name 2\"]\n")
	b.WriteString("}\n")

	return b.String()
}

// BuildBasicPrompt renders the degraded prompt used when issue or rule
// context could not be fetched.
func BuildBasicPrompt(description, issueID string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User reported: %s\n", description)
	if issueID != "" {
		fmt.Fprintf(&b, "Issue ID: %s\n", issueID)
	}
	b.WriteString("\nAnalyze this workflow error and provide:\n")
	b.WriteString("1. What likely went wrong\n")
	b.WriteString("2. Which workflow rule might have caused it\n")
	b.WriteString("3. How to fix it\n")

	return b.String()
}

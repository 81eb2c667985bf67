package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tuannvm/youtrack-analyzer/internal/logging"
	"github.com/tuannvm/youtrack-analyzer/internal/models"
)

// genericSuggestion is the fallback action when the model gives no usable
// suggestion or its output cannot be parsed.
const genericSuggestion = "Check the workflow rules for your project"

// completionPayload tolerates the key synonyms models actually emit.
type completionPayload struct {
	Explanation     string   `json:"explanation"`
	Analysis        string   `json:"analysis"`
	Suggestion      string   `json:"suggestion"`
	SuggestedAction string   `json:"suggestedAction"`
	BlockedByRules  []string `json:"blockedByRules"`
}

// ParseResponse reconciles a raw model completion against the rules that
// were actually offered in the prompt. It never fails: unparseable output
// degrades to the raw text plus a generic suggestion.
func ParseResponse(raw string, available []models.WorkflowRule, baseURL string) models.AnalysisResponse {
	var payload completionPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		logging.Warnf("completion is not valid JSON, returning raw text: %v", err)
		return models.AnalysisResponse{
			Explanation:      strings.TrimSpace(raw),
			WorkflowRules:    []models.WorkflowRuleInfo{},
			SuggestedActions: []string{genericSuggestion},
		}
	}

	// Fields missing from a successfully parsed object stay empty; the
	// generic suggestion belongs to the parse-failure path only.
	explanation := payload.Explanation
	if explanation == "" {
		explanation = payload.Analysis
	}

	suggestion := payload.Suggestion
	if suggestion == "" {
		suggestion = payload.SuggestedAction
	}
	suggestions := []string{}
	if suggestion != "" {
		suggestions = append(suggestions, suggestion)
	}

	return models.AnalysisResponse{
		Explanation:      explanation,
		WorkflowRules:    matchRules(payload.BlockedByRules, available, baseURL),
		SuggestedActions: suggestions,
	}
}

// matchRules resolves the model's rule names against the known rules.
// Matching is case-insensitive substring containment in either direction;
// the first match wins and names that match nothing are dropped.
func matchRules(names []string, available []models.WorkflowRule, baseURL string) []models.WorkflowRuleInfo {
	matched := make([]models.WorkflowRuleInfo, 0, len(names))
	for _, name := range names {
		needle := strings.ToLower(strings.TrimSpace(name))
		if needle == "" {
			continue
		}
		found := false
		for _, rule := range available {
			haystack := strings.ToLower(rule.Name)
			if strings.Contains(haystack, needle) || strings.Contains(needle, haystack) {
				matched = append(matched, models.WorkflowRuleInfo{
					Name:        rule.Name,
					Description: ruleDescription(rule),
					RuleURL:     RuleURL(baseURL, rule.ID),
				})
				found = true
				break
			}
		}
		if !found {
			logging.Warnf("model named unknown rule %q, dropping it", name)
		}
	}
	return matched
}

// ruleDescription picks the most human-readable text a rule carries.
func ruleDescription(rule models.WorkflowRule) string {
	switch {
	case rule.Guard != "":
		return rule.Guard
	case rule.Message != "":
		return rule.Message
	case rule.Action != "":
		return rule.Action
	default:
		return ""
	}
}

// RuleURL builds a deep link into the tracker's workflow rule editor.
func RuleURL(baseURL, ruleID string) string {
	if baseURL == "" || ruleID == "" {
		return ""
	}
	return fmt.Sprintf("%s/admin/workflows/rules/%s", strings.TrimRight(baseURL, "/"), ruleID)
}

// extractJSON strips markdown code fences and surrounding prose so that a
// completion like "```json\n{...}\n```" still parses.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

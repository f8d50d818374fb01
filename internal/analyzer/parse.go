package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/mattsre/conflux/internal/models"
)

// extractJSON locates a JSON object substring in free text. The
// collaborator often wraps its JSON in prose or markdown fencing, so we
// take the span from the first '{' to the last '}'.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// parseAnalysis parses the overall-assessment response. On any parse
// failure it degrades to confidence 50 with tag "unknown" and the raw
// text preserved in the summary, rather than raising.
func parseAnalysis(text string) *models.AnalysisResult {
	degraded := &models.AnalysisResult{
		Confidence:           50,
		Summary:              text,
		ConflictTypes:        []string{"unknown"},
		Risk:                 models.RiskMedium,
		LowConfidenceReasons: []string{"collaborator response was not structured"},
	}

	raw, ok := extractJSON(text)
	if !ok {
		return degraded
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return degraded
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 100 {
		result.Confidence = 100
	}
	if result.Risk == "" {
		result.Risk = models.RiskMedium
	}
	if result.Summary == "" {
		result.Summary = text
	}
	return &result
}

var codeFenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\n(.*?)```")

// parseResolution extracts the resolved file content from a per-file
// response. Preferred form is a JSON object with resolved_content,
// strategy, and explanation; a fenced code block is accepted as a
// fallback. ok is false when neither yields content.
func parseResolution(text string) (content string, strategy models.Strategy, explanation string, ok bool) {
	if raw, found := extractJSON(text); found {
		var resp struct {
			ResolvedContent string `json:"resolved_content"`
			Strategy        string `json:"strategy"`
			Explanation     string `json:"explanation"`
		}
		if err := json.Unmarshal([]byte(raw), &resp); err == nil && resp.ResolvedContent != "" {
			return resp.ResolvedContent, normalizeStrategy(resp.Strategy), resp.Explanation, true
		}
	}

	if m := codeFenceRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		explanation = strings.TrimSpace(codeFenceRe.ReplaceAllString(text, ""))
		return m[1], "", explanation, true
	}

	return "", "", "", false
}

// normalizeStrategy maps a structured strategy field onto the fixed
// vocabulary; anything unrecognized is treated as unset so the keyword
// classifier can decide.
func normalizeStrategy(s string) models.Strategy {
	switch models.Strategy(strings.TrimSpace(strings.ToLower(s))) {
	case models.StrategySemanticMerge:
		return models.StrategySemanticMerge
	case models.StrategyTestGuided:
		return models.StrategyTestGuided
	case models.StrategyCombined:
		return models.StrategyCombined
	case models.StrategyPreferHead:
		return models.StrategyPreferHead
	case models.StrategyPreferBase:
		return models.StrategyPreferBase
	case models.StrategyIntelligentMerge:
		return models.StrategyIntelligentMerge
	default:
		return ""
	}
}

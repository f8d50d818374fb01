package analyzer

import (
	"fmt"
	"strings"

	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/models"
)

// buildAnalysisPrompt constructs the system and user prompts for the
// overall assessment.
func buildAnalysisPrompt(pr *githost.PullRequest, bundle *models.ContextBundle, files []models.ConflictedFile) (system string, user string) {
	system = `You analyze merge conflicts in a pull request and assess whether they can be resolved automatically. Return ONLY a JSON object with these fields:
- "confidence": integer 0-100, how confident you are that an automated resolution is safe
- "summary": 1-3 sentence natural-language assessment
- "conflict_types": array of short tags (e.g. "import-conflict", "logic-conflict", "formatting")
- "risk": one of "low", "medium", "high"
- "risk_factors": array of strings naming what contributes to the risk
- "low_confidence_reasons": array of strings (empty when confidence is high)
- "alternatives": array of {"description": string, "diff": string} with other plausible resolutions

Rules:
- Be conservative: overlapping logic changes or behavioral divergence lowers confidence
- Pure import/formatting conflicts with passing context can score high
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Pull request #%d: %s (head %s -> base %s)\n\n", pr.Number, pr.Title, pr.HeadRef, pr.BaseRef)

	if len(bundle.Issues) > 0 {
		sb.WriteString("Related tickets:\n")
		for _, issue := range bundle.Issues {
			fmt.Fprintf(&sb, "- %s [%s] %s\n", issue.Key, issue.Status, issue.Summary)
		}
		sb.WriteString("\n")
	}
	if len(bundle.RecentCommits) > 0 {
		sb.WriteString("Recent commits:\n")
		for _, c := range bundle.RecentCommits {
			fmt.Fprintf(&sb, "- %s %s\n", shortSHA(c.SHA), c.Message)
		}
		sb.WriteString("\n")
	}
	if bundle.CodePatterns.TotalFiles > 0 {
		fmt.Fprintf(&sb, "Change shape: %s, %d files\n", bundle.CodePatterns.ChangeSize, bundle.CodePatterns.TotalFiles)
	}
	if bundle.Coverage.Ratio > 0 {
		fmt.Fprintf(&sb, "Test coverage around change: %.0f%%\n", bundle.Coverage.Ratio*100)
	}
	if len(bundle.TeamPreferences) > 0 {
		sb.WriteString("Team preferences from past resolutions:\n")
		for _, p := range bundle.TeamPreferences {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}

	sb.WriteString("\nConflicted files:\n")
	for _, f := range files {
		fmt.Fprintf(&sb, "\n--- %s (%s) ---\n%s\n", f.Path, f.Category, f.Content)
	}

	user = sb.String()
	return
}

// buildResolutionPrompt constructs the system and user prompts for a
// single file's resolution.
func buildResolutionPrompt(file models.ConflictedFile, result *models.AnalysisResult, bundle *models.ContextBundle) (system string, user string) {
	system = `You resolve a single file's merge conflict. Return ONLY a JSON object with these fields:
- "resolved_content": the complete file content with all conflict markers removed
- "strategy": one of "semantic-merge", "test-guided", "combined-functionality", "prefer-head", "prefer-base", "intelligent-merge"
- "explanation": 1-3 sentences describing what you kept and why

Rules:
- The resolved content must contain the entire file, not a fragment
- Never leave <<<<<<<, =======, or >>>>>>> markers in the output
- Preserve both sides' intent when they do not genuinely conflict
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall assessment: %s (risk %s)\n\n", result.Summary, result.Risk)
	if len(bundle.TeamPreferences) > 0 {
		sb.WriteString("Team preferences:\n")
		for _, p := range bundle.TeamPreferences {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "File %s (%s) with conflict markers:\n\n%s\n", file.Path, file.Category, file.Content)

	user = sb.String()
	return
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

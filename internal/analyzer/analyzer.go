// Package analyzer turns conflicted files plus a context bundle into an
// overall assessment and per-file resolutions using the AI collaborator.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/models"
)

// Collaborator is the AI analysis collaborator: prompts in, free text
// out. Its output is not guaranteed to conform to any format.
type Collaborator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Analyzer produces analysis results and resolution records.
type Analyzer struct {
	ai         Collaborator
	classifier StrategyClassifier
}

// New creates an Analyzer. A nil classifier falls back to the keyword
// heuristic.
func New(ai Collaborator, classifier StrategyClassifier) *Analyzer {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	return &Analyzer{ai: ai, classifier: classifier}
}

// Analyze runs the overall assessment for a session. It never returns
// an error: a collaborator failure yields a synthesized result with
// confidence 0 and a parse-failure tag, and an unparsable response
// degrades to confidence 50 with the raw text preserved.
func (a *Analyzer) Analyze(ctx context.Context, pr *githost.PullRequest, bundle *models.ContextBundle, files []models.ConflictedFile) *models.AnalysisResult {
	system, user := buildAnalysisPrompt(pr, bundle, files)

	text, err := a.ai.Complete(ctx, system, user)
	if err != nil {
		return &models.AnalysisResult{
			Confidence:           0,
			Summary:              fmt.Sprintf("analysis unavailable: %v", err),
			ConflictTypes:        []string{models.TagParseFailure},
			Risk:                 models.RiskHigh,
			LowConfidenceReasons: []string{"AI collaborator call failed"},
		}
	}

	return parseAnalysis(text)
}

// Resolve produces the resolution record for a single conflicted file.
// A response with no extractable content is a hard failure for this
// file only.
func (a *Analyzer) Resolve(ctx context.Context, file models.ConflictedFile, result *models.AnalysisResult, bundle *models.ContextBundle) (*models.ResolutionRecord, error) {
	system, user := buildResolutionPrompt(file, result, bundle)

	text, err := a.ai.Complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", file.Path, err)
	}

	content, strategy, explanation, ok := parseResolution(text)
	if !ok {
		return nil, fmt.Errorf("resolve %s: no extractable content in response", file.Path)
	}
	if containsConflictMarkers(content) {
		return nil, fmt.Errorf("resolve %s: resolved content still contains conflict markers", file.Path)
	}

	if strategy == "" {
		strategy = a.classifier.Classify(explanation)
	}

	return &models.ResolutionRecord{
		Path:        file.Path,
		Content:     content,
		Strategy:    strategy,
		Explanation: explanation,
	}, nil
}

// ResolveAll resolves each conflicted file sequentially, in list order.
// The per-file step is deliberately not parallel: each prompt is large
// and the collaborator is rate limited. Per-file failures are collected
// rather than aborting the batch; the caller decides whether a partial
// set is usable.
func (a *Analyzer) ResolveAll(ctx context.Context, files []models.ConflictedFile, result *models.AnalysisResult, bundle *models.ContextBundle) ([]models.ResolutionRecord, []error) {
	var records []models.ResolutionRecord
	var errs []error
	for _, file := range files {
		rec, err := a.Resolve(ctx, file, result, bundle)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, *rec)
	}
	return records, errs
}

var conflictMarkers = []string{"<<<<<<<", "=======", ">>>>>>>"}

func containsConflictMarkers(content string) bool {
	for _, marker := range conflictMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

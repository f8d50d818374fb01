package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/models"
)

// fakeCollaborator returns canned responses in order, or a fixed error.
type fakeCollaborator struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeCollaborator) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, user)
	if f.err != nil {
		return "", f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func testPR() *githost.PullRequest {
	return &githost.PullRequest{
		Number:         42,
		Title:          "PROJ-101 add rate limiting",
		HeadRef:        "feature/rate-limit",
		BaseRef:        "main",
		MergeableState: "DIRTY",
	}
}

func testBundle() *models.ContextBundle {
	return &models.ContextBundle{SourceFailures: map[string]string{}}
}

func testFile(path string) models.ConflictedFile {
	return models.ConflictedFile{
		Path:    path,
		Content: "<<<<<<< head\na\n=======\nb\n>>>>>>> base\n",
	}
}

// --- Analyze ---

func TestAnalyze_StructuredResponse(t *testing.T) {
	ai := &fakeCollaborator{responses: []string{`Here is my assessment:
{"confidence": 92, "summary": "trivial import conflict", "conflict_types": ["import-vs-logic"], "risk": "low"}`}}
	a := New(ai, nil)

	result := a.Analyze(context.Background(), testPR(), testBundle(), []models.ConflictedFile{testFile("a.go")})

	assert.Equal(t, 92, result.Confidence)
	assert.Equal(t, "trivial import conflict", result.Summary)
	assert.Equal(t, models.RiskLow, result.Risk)
}

func TestAnalyze_UnparsableResponseDegrades(t *testing.T) {
	ai := &fakeCollaborator{responses: []string{"I think you should merge both sides carefully."}}
	a := New(ai, nil)

	result := a.Analyze(context.Background(), testPR(), testBundle(), []models.ConflictedFile{testFile("a.go")})

	assert.Equal(t, 50, result.Confidence)
	assert.Contains(t, result.Summary, "merge both sides")
	assert.Equal(t, []string{"unknown"}, result.ConflictTypes)
}

func TestAnalyze_CallFailureSynthesizesResult(t *testing.T) {
	ai := &fakeCollaborator{err: errors.New("rate limited")}
	a := New(ai, nil)

	result := a.Analyze(context.Background(), testPR(), testBundle(), []models.ConflictedFile{testFile("a.go")})

	assert.Equal(t, 0, result.Confidence)
	assert.Contains(t, result.ConflictTypes, models.TagParseFailure)
	assert.Equal(t, models.RiskHigh, result.Risk)
}

func TestAnalyze_ConfidenceClamped(t *testing.T) {
	ai := &fakeCollaborator{responses: []string{`{"confidence": 140, "summary": "x"}`}}
	a := New(ai, nil)

	result := a.Analyze(context.Background(), testPR(), testBundle(), nil)
	assert.Equal(t, 100, result.Confidence)
}

// --- Resolve ---

func TestResolve_JSONResponse(t *testing.T) {
	ai := &fakeCollaborator{responses: []string{
		`{"resolved_content": "package main\n\nfunc main() {}\n", "strategy": "semantic-merge", "explanation": "kept both changes"}`,
	}}
	a := New(ai, nil)

	rec, err := a.Resolve(context.Background(), testFile("main.go"), &models.AnalysisResult{}, testBundle())
	require.NoError(t, err)

	assert.Equal(t, "main.go", rec.Path)
	assert.Equal(t, models.StrategySemanticMerge, rec.Strategy)
	assert.Equal(t, "kept both changes", rec.Explanation)
	assert.NotContains(t, rec.Content, "<<<<<<<")
}

func TestResolve_CodeFenceFallback(t *testing.T) {
	ai := &fakeCollaborator{responses: []string{
		"Resolved by unifying the two versions.\n```go\npackage main\n\nfunc a() {}\nfunc b() {}\n```",
	}}
	a := New(ai, nil)

	rec, err := a.Resolve(context.Background(), testFile("main.go"), &models.AnalysisResult{}, testBundle())
	require.NoError(t, err)

	assert.Contains(t, rec.Content, "func a()")
	// No structured strategy field: the keyword classifier decides.
	assert.Equal(t, models.StrategyIntelligentMerge, rec.Strategy)
}

func TestResolve_RemainingMarkersRejected(t *testing.T) {
	ai := &fakeCollaborator{responses: []string{
		`{"resolved_content": "a\n<<<<<<< head\nb\n", "strategy": "prefer-head"}`,
	}}
	a := New(ai, nil)

	_, err := a.Resolve(context.Background(), testFile("main.go"), &models.AnalysisResult{}, testBundle())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict markers")
}

func TestResolve_NoExtractableContent(t *testing.T) {
	ai := &fakeCollaborator{responses: []string{"I cannot resolve this conflict."}}
	a := New(ai, nil)

	_, err := a.Resolve(context.Background(), testFile("main.go"), &models.AnalysisResult{}, testBundle())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extractable content")
}

// --- ResolveAll ---

func TestResolveAll_CollectsPerFileFailures(t *testing.T) {
	ai := &fakeCollaborator{responses: []string{
		`{"resolved_content": "ok one\n", "strategy": "prefer-head"}`,
		"no usable content here",
		`{"resolved_content": "ok three\n", "strategy": "prefer-base"}`,
	}}
	a := New(ai, nil)

	files := []models.ConflictedFile{testFile("a.go"), testFile("b.go"), testFile("c.go")}
	records, errs := a.ResolveAll(context.Background(), files, &models.AnalysisResult{}, testBundle())

	assert.Len(t, records, 2)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "b.go")
}

func TestResolveAll_Sequential(t *testing.T) {
	ai := &fakeCollaborator{responses: []string{`{"resolved_content": "x\n", "strategy": "prefer-head"}`}}
	a := New(ai, nil)

	files := []models.ConflictedFile{testFile("a.go"), testFile("b.go")}
	_, errs := a.ResolveAll(context.Background(), files, &models.AnalysisResult{}, testBundle())

	assert.Empty(t, errs)
	assert.Equal(t, 2, ai.calls)
}

// --- strategy classification ---

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		name        string
		explanation string
		want        models.Strategy
	}{
		{"semantic", "performed a semantic merge of the two handlers", models.StrategySemanticMerge},
		{"test guided", "used the failing test to pick the right side", models.StrategyTestGuided},
		{"combined", "combined both implementations into one", models.StrategyCombined},
		{"prefer head", "kept the incoming head version", models.StrategyPreferHead},
		{"prefer base", "kept the existing base version", models.StrategyPreferBase},
		{"default", "merged the changes", models.StrategyIntelligentMerge},
	}

	c := KeywordClassifier{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.explanation))
		})
	}
}

func TestNormalizeStrategy_UnknownIsUnset(t *testing.T) {
	assert.Equal(t, models.Strategy(""), normalizeStrategy("yolo-merge"))
	assert.Equal(t, models.StrategyTestGuided, normalizeStrategy("  Test-Guided "))
}

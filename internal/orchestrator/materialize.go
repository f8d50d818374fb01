package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/models"
)

// maxConflictedFiles bounds materialization; a PR conflicting on more
// files than this is beyond automated resolution anyway.
const maxConflictedFiles = 20

// materializeConflicts rebuilds the conflicted view of each changed
// file. The host API exposes no merge-preview content, so we read both
// sides and synthesize standard conflict markers for files where head
// and base diverge.
func (o *Orchestrator) materializeConflicts(ctx context.Context, owner, repo string, pr *githost.PullRequest) ([]models.ConflictedFile, error) {
	changed, err := o.host.ListChangedFiles(ctx, owner, repo, pr.Number)
	if err != nil {
		return nil, fmt.Errorf("list changed files: %w", err)
	}

	var files []models.ConflictedFile
	for _, cf := range changed {
		if len(files) >= maxConflictedFiles {
			break
		}

		headContent, _, err := o.host.FileContent(ctx, owner, repo, pr.HeadRef, cf.Path)
		if err != nil {
			continue // deleted on head
		}
		baseContent, _, err := o.host.FileContent(ctx, owner, repo, pr.BaseRef, cf.Path)
		if err != nil {
			continue // added on head, cannot conflict
		}
		if headContent == baseContent {
			continue
		}

		marked := fmt.Sprintf("<<<<<<< %s\n%s=======\n%s>>>>>>> %s\n",
			pr.HeadRef, ensureTrailingNewline(headContent),
			ensureTrailingNewline(baseContent), pr.BaseRef)

		files = append(files, models.ConflictedFile{
			Path:     cf.Path,
			Content:  marked,
			Category: categorize(headContent, baseContent),
		})
	}
	return files, nil
}

// categorize infers a coarse conflict category from where the two sides
// diverge.
func categorize(head, base string) string {
	headLines := diffLines(head, base)
	baseLines := diffLines(base, head)

	allImports := len(headLines)+len(baseLines) > 0
	for _, line := range append(headLines, baseLines...) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "import") &&
			!strings.HasPrefix(trimmed, "from ") &&
			!strings.HasPrefix(trimmed, "require") &&
			!strings.HasPrefix(trimmed, "use ") &&
			!strings.HasPrefix(trimmed, "#include") &&
			!strings.HasPrefix(trimmed, "\"") {
			allImports = false
			break
		}
	}
	if allImports {
		return "import-vs-logic"
	}
	return "logic"
}

// diffLines returns lines of a that do not appear in b. Crude, but only
// used for categorization.
func diffLines(a, b string) []string {
	inB := make(map[string]bool)
	for _, line := range strings.Split(b, "\n") {
		inB[line] = true
	}
	var out []string
	for _, line := range strings.Split(a, "\n") {
		if !inB[line] {
			out = append(out, line)
		}
	}
	return out
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

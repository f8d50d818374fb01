package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsre/conflux/internal/githost"
)

func TestMaterializeConflicts(t *testing.T) {
	host := newDirtyHost()
	host.changed = []githost.ChangedFile{
		{Path: "retry.go"},   // diverges on both sides
		{Path: "same.go"},    // identical content, not a conflict
		{Path: "deleted.go"}, // gone on head
		{Path: "added.go"},   // only exists on head
	}
	host.blobs["feature/backoff"]["same.go"] = blob{content: "same\n", sha: "s1"}
	host.blobs["main"]["same.go"] = blob{content: "same\n", sha: "s1"}
	host.blobs["main"]["deleted.go"] = blob{content: "old\n", sha: "s2"}
	host.blobs["feature/backoff"]["added.go"] = blob{content: "new\n", sha: "s3"}

	o := &Orchestrator{host: host}
	files, err := o.materializeConflicts(context.Background(), "acme", "api", host.pr)
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "retry.go", files[0].Path)
	assert.Contains(t, files[0].Content, "<<<<<<< feature/backoff")
	assert.Contains(t, files[0].Content, "=======")
	assert.Contains(t, files[0].Content, ">>>>>>> main")
}

func TestCategorize(t *testing.T) {
	head := "package a\n\nimport \"fmt\"\nimport \"os\"\n"
	base := "package a\n\nimport \"fmt\"\nimport \"io\"\n"
	assert.Equal(t, "import-vs-logic", categorize(head, base))

	head = "func a() { return 1 }\n"
	base = "func a() { return 2 }\n"
	assert.Equal(t, "logic", categorize(head, base))
}

func TestEnsureTrailingNewline(t *testing.T) {
	assert.Equal(t, "x\n", ensureTrailingNewline("x"))
	assert.Equal(t, "x\n", ensureTrailingNewline("x\n"))
	assert.Equal(t, "", ensureTrailingNewline(""))
}

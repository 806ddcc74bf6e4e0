package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.jsonl")
	lines := []jsonlLine{
		{PK: "a", CreatedAt: "2025-01-15T10:30:00.000000000Z", UpdatedAt: "2025-01-15T10:30:00.000000000Z", Data: map[string]any{"title": "<Dune>"}},
		{PK: "b", CreatedAt: "2025-01-15T10:31:00.000000000Z", UpdatedAt: "2025-01-15T10:31:00.000000000Z", Data: map[string]any{"title": "Emma"}},
	}
	require.NoError(t, writeJSONL(path, lines))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<Dune>", "HTML characters are written unescaped")

	got, err := readJSONL(path)
	require.NoError(t, err)
	assert.Equal(t, lines, got)
}

func TestReadJSONLSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.jsonl")
	content := `{"pk":"a","created_at":"x","updated_at":"x","data":{"title":"ok"}}
not json at all

{"created_at":"x","data":{"title":"no pk"}}
{"pk":"b","created_at":"x","updated_at":"x","data":{"title":"ok too"}}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := readJSONL(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].PK)
	assert.Equal(t, "b", got[1].PK)
}

func TestReadJSONLMissingFile(t *testing.T) {
	got, err := readJSONL(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteJSONLLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeJSONL(filepath.Join(dir, "x.jsonl"), nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x.jsonl", entries[0].Name())
}

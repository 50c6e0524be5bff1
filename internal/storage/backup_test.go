package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdecho/crowdecho/internal/types"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain words", input: "go generics", want: "go_generics"},
		{name: "mixed case", input: "Go Generics", want: "go_generics"},
		{name: "punctuation collapses", input: "vim vs. emacs?!", want: "vim_vs_emacs"},
		{name: "leading and trailing junk", input: "  ///query///  ", want: "query"},
		{name: "empty input", input: "", want: "untitled"},
		{name: "only punctuation", input: "???", want: "untitled"},
		{name: "long input capped", input: strings.Repeat("a", 80), want: strings.Repeat("a", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestFileBackupSaveSnapshot(t *testing.T) {
	dir := t.TempDir()
	backup := NewFileBackup(filepath.Join(dir, "backups"))

	snap := &types.RunSnapshot{
		RunID:       "run-abc",
		Queries:     []string{"go generics"},
		UniqueCount: 0,
	}
	path, err := backup.SaveSnapshot(snap)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "run_run_abc_"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got types.RunSnapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-abc", got.RunID)
}

func TestFileBackupSaveQueryItems(t *testing.T) {
	backup := NewFileBackup(t.TempDir())

	items := []types.Comment{{Author: "ada", Text: "nice talk"}}
	path, err := backup.SaveQueryItems("vim vs. emacs?!", items)
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "comments_vim_vs_emacs_")

	// Two writes for the same query in the same second must not collide.
	other, err := backup.SaveQueryItems("vim vs. emacs?!", items)
	require.NoError(t, err)
	assert.NotEqual(t, path, other)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var payload struct {
		Query string          `json:"query"`
		Count int             `json:"count"`
		Items []types.Comment `json:"items"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "vim vs. emacs?!", payload.Query)
	assert.Equal(t, 1, payload.Count)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, "ada", payload.Items[0].Author)
}

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/crowdecho/crowdecho/internal/types"
)

// FileBackup writes run data as JSON files alongside the database, so a
// run's results survive even when the database is unavailable. Every
// write goes to a fresh file; backups are never overwritten.
type FileBackup struct {
	dir string
}

// NewFileBackup creates a backup writer rooted at dir. The directory is
// created on first write.
func NewFileBackup(dir string) *FileBackup {
	return &FileBackup{dir: dir}
}

// SaveSnapshot writes a full run snapshot and returns the file path.
func (b *FileBackup) SaveSnapshot(snapshot *types.RunSnapshot) (string, error) {
	if snapshot == nil {
		return "", fmt.Errorf("snapshot is nil")
	}
	name := fmt.Sprintf("run_%s_%s.json",
		SanitizeFilename(snapshot.RunID), time.Now().Format("20060102_150405"))
	return b.write(name, snapshot)
}

// SaveQueryItems writes one query's raw items as an intermediate backup
// batch, tagged with a short batch ID so concurrent queries writing in
// the same second cannot collide.
func (b *FileBackup) SaveQueryItems(query string, items []types.Comment) (string, error) {
	batch := uuid.NewString()[:8]
	name := fmt.Sprintf("comments_%s_%s_%s.json",
		SanitizeFilename(query), time.Now().Format("20060102_150405"), batch)
	payload := struct {
		Query   string          `json:"query"`
		Count   int             `json:"count"`
		SavedAt time.Time       `json:"saved_at"`
		Items   []types.Comment `json:"items"`
	}{Query: query, Count: len(items), SavedAt: time.Now(), Items: items}
	return b.write(name, payload)
}

func (b *FileBackup) write(name string, v interface{}) (string, error) {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup: %w", err)
	}

	path := filepath.Join(b.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	return path, nil
}

// SanitizeFilename reduces arbitrary text (typically a query) to a safe
// filename component: letters and digits survive, everything else
// collapses to single underscores, capped at 50 characters.
func SanitizeFilename(text string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && sb.Len() > 0 {
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}
	s := strings.Trim(sb.String(), "_")
	if s == "" {
		s = "untitled"
	}
	if len(s) > 50 {
		s = strings.Trim(s[:50], "_")
	}
	return s
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autumn", DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, filepath.Join(dir, "autumn", DefaultDBName), cfg.DBPath)
	assert.Equal(t, 5*time.Second, cfg.UndoWindow())
	assert.Equal(t, "ctrl+z", cfg.Keys.Undo)

	again, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadOrCreateFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	content := `
storage = "file"
tasks_path = "data/list.json"
undo_seconds = 8
categories = ["chores"]

[keys]
quit = "Q"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, StorageFile, cfg.Storage)
	assert.Equal(t, filepath.Join(dir, "data", "list.json"), cfg.TasksPath)
	assert.Equal(t, 8*time.Second, cfg.UndoWindow())
	assert.Equal(t, []string{"chores"}, cfg.Categories)
	assert.Equal(t, "Q", cfg.Keys.Quit)
	assert.Equal(t, "a", cfg.Keys.Add)
	assert.Equal(t, FormatJSON, cfg.ExportFormat)
}

func TestLoadOrCreateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad storage", `storage = "redis"`},
		{"bad filter", `default_filter = "archived"`},
		{"bad format", `export_format = "csv"`},
		{"negative undo", `undo_seconds = -1`},
		{"empty category", `categories = ["work", ""]`},
		{"not toml", `storage = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultConfigFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := LoadOrCreate(path)
			assert.Error(t, err)
		})
	}
}

func TestAbsolutePathsKept(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "elsewhere", "todo.db")
	path := filepath.Join(dir, DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`db_path = "`+filepath.ToSlash(db)+`"`), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(db), filepath.ToSlash(cfg.DBPath))
}

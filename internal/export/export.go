// Package export writes the task list as a standalone document.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"autumn/internal/storage"
	"autumn/internal/task"
)

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

func ParseFormat(v string) (Format, error) {
	switch Format(v) {
	case JSON, "":
		return JSON, nil
	case YAML:
		return YAML, nil
	}
	return "", fmt.Errorf("unknown export format %q", v)
}

// Filename names an export after the calendar date of now,
// e.g. autumn-tasks-2026-10-14.json.
func Filename(now time.Time, f Format) string {
	return fmt.Sprintf("autumn-tasks-%s.%s", now.Format("2006-01-02"), f)
}

// Encode writes tasks to w in format f.
func Encode(w io.Writer, tasks []task.Task, f Format) error {
	switch f {
	case YAML:
		if tasks == nil {
			tasks = []task.Task{}
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		data, err := storage.EncodeTasks(tasks, true)
		if err != nil {
			return err
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	}
}

// Write stores an export of tasks in dir and returns its path.
func Write(dir string, tasks []task.Task, now time.Time, f Format) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, Filename(now, f))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export: %w", err)
	}
	if err := Encode(out, tasks, f); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	return path, nil
}

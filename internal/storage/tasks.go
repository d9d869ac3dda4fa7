package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"autumn/internal/task"
)

const (
	TasksKey = "autumnTodoList"
	ThemeKey = "theme"
)

// KVTasks keeps the task list as one JSON value in the key-value store.
type KVTasks struct {
	kv  *Store
	key string
}

func NewKVTasks(kv *Store, key string) *KVTasks {
	if key == "" {
		key = TasksKey
	}
	return &KVTasks{kv: kv, key: key}
}

func (k *KVTasks) Load() ([]task.Task, error) {
	value, ok, err := k.kv.Get(k.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", k.key, err)
	}
	if !ok {
		return nil, nil
	}
	return DecodeTasks([]byte(value))
}

func (k *KVTasks) Save(tasks []task.Task) error {
	data, err := EncodeTasks(tasks, false)
	if err != nil {
		return err
	}
	if err := k.kv.Set(k.key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", k.key, err)
	}
	return nil
}

// FileTasks keeps the task list in a JSON file.
type FileTasks struct {
	path string
}

func NewFileTasks(path string) *FileTasks {
	return &FileTasks{path: path}
}

func (f *FileTasks) Path() string { return f.path }

func (f *FileTasks) Load() ([]task.Task, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	return DecodeTasks(data)
}

// Save writes through a temporary file so a failed write leaves the
// previous list in place.
func (f *FileTasks) Save(tasks []task.Task) error {
	data, err := EncodeTasks(tasks, true)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create task dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write task file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write task file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write task file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("write task file: %w", err)
	}
	return nil
}

// Prefs reads and writes small string preferences such as the theme.
type Prefs struct {
	kv *Store
}

func NewPrefs(kv *Store) *Prefs {
	return &Prefs{kv: kv}
}

func (p *Prefs) Get(key, fallback string) string {
	if p == nil || p.kv == nil {
		return fallback
	}
	v, ok, err := p.kv.Get(key)
	if err != nil || !ok || v == "" {
		return fallback
	}
	return v
}

func (p *Prefs) Set(key, value string) error {
	if p == nil || p.kv == nil {
		return nil
	}
	return p.kv.Set(key, value)
}

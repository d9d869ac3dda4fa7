package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"autumn/internal/task"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "todo.db"
	DefaultTasksFileName  = "tasks.json"
	DefaultLogName        = "autumn.log"
	appDirName            = "autumn"

	StorageSQLite = "sqlite"
	StorageFile   = "file"

	FormatJSON = "json"
	FormatYAML = "yaml"
)

type Keymap struct {
	Quit        string `toml:"quit"`
	Add         string `toml:"add"`
	Up          string `toml:"up"`
	Down        string `toml:"down"`
	Toggle      string `toml:"toggle"`
	Delete      string `toml:"delete"`
	Undo        string `toml:"undo"`
	Confirm     string `toml:"confirm"`
	Cancel      string `toml:"cancel"`
	Edit        string `toml:"edit"`
	Notes       string `toml:"notes"`
	MoveUp      string `toml:"move_up"`
	MoveDown    string `toml:"move_down"`
	CompleteAll string `toml:"complete_all"`
	DeleteAll   string `toml:"delete_all"`
	Search      string `toml:"search"`
	Filter      string `toml:"filter"`
	Export      string `toml:"export"`
	Theme       string `toml:"theme"`
	Help        string `toml:"help"`
}

type Config struct {
	Storage       string   `toml:"storage"`
	DBPath        string   `toml:"db_path"`
	TasksPath     string   `toml:"tasks_path"`
	ExportDir     string   `toml:"export_dir"`
	ExportFormat  string   `toml:"export_format"`
	DefaultFilter string   `toml:"default_filter"`
	UndoSeconds   int      `toml:"undo_seconds"`
	Categories    []string `toml:"categories"`
	LogPath       string   `toml:"log_path"`
	LogLevel      string   `toml:"log_level"`
	Keys          Keymap   `toml:"keys"`
}

// ResolveConfigPath returns the config file under the user config dir,
// falling back to the working directory.
func ResolveConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, appDirName, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first
// when the file does not exist. Relative data paths are resolved against
// the config file's directory.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		cfg.resolvePaths(filepath.Dir(path))
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects values the program cannot act on.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageSQLite, StorageFile:
	default:
		return fmt.Errorf("storage must be %q or %q, got %q", StorageSQLite, StorageFile, c.Storage)
	}
	switch c.ExportFormat {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("export_format must be %q or %q, got %q", FormatJSON, FormatYAML, c.ExportFormat)
	}
	if !task.Filter(c.DefaultFilter).Valid() {
		return fmt.Errorf("default_filter must be all, active or completed, got %q", c.DefaultFilter)
	}
	if c.UndoSeconds <= 0 {
		return fmt.Errorf("undo_seconds must be positive, got %d", c.UndoSeconds)
	}
	for _, cat := range c.Categories {
		if cat == "" {
			return errors.New("categories must not contain empty names")
		}
	}
	return nil
}

func (c Config) UndoWindow() time.Duration {
	return time.Duration(c.UndoSeconds) * time.Second
}

func (c *Config) fillDefaults() {
	def := defaultConfig()
	if c.Storage == "" {
		c.Storage = def.Storage
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.TasksPath == "" {
		c.TasksPath = def.TasksPath
	}
	if c.ExportDir == "" {
		c.ExportDir = def.ExportDir
	}
	if c.ExportFormat == "" {
		c.ExportFormat = def.ExportFormat
	}
	if c.DefaultFilter == "" {
		c.DefaultFilter = def.DefaultFilter
	}
	if c.UndoSeconds == 0 {
		c.UndoSeconds = def.UndoSeconds
	}
	if c.Categories == nil {
		c.Categories = def.Categories
	}
	if c.LogPath == "" {
		c.LogPath = def.LogPath
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	c.Keys.fillDefaults(def.Keys)
}

func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.DBPath, &c.TasksPath, &c.LogPath} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

func (k *Keymap) fillDefaults(def Keymap) {
	setDefault(&k.Quit, def.Quit)
	setDefault(&k.Add, def.Add)
	setDefault(&k.Up, def.Up)
	setDefault(&k.Down, def.Down)
	setDefault(&k.Toggle, def.Toggle)
	setDefault(&k.Delete, def.Delete)
	setDefault(&k.Undo, def.Undo)
	setDefault(&k.Confirm, def.Confirm)
	setDefault(&k.Cancel, def.Cancel)
	setDefault(&k.Edit, def.Edit)
	setDefault(&k.Notes, def.Notes)
	setDefault(&k.MoveUp, def.MoveUp)
	setDefault(&k.MoveDown, def.MoveDown)
	setDefault(&k.CompleteAll, def.CompleteAll)
	setDefault(&k.DeleteAll, def.DeleteAll)
	setDefault(&k.Search, def.Search)
	setDefault(&k.Filter, def.Filter)
	setDefault(&k.Export, def.Export)
	setDefault(&k.Theme, def.Theme)
	setDefault(&k.Help, def.Help)
}

func setDefault(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

// Default returns the configuration written on first launch, with data
// paths still relative.
func Default() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Storage:       StorageSQLite,
		DBPath:        DefaultDBName,
		TasksPath:     DefaultTasksFileName,
		ExportDir:     ".",
		ExportFormat:  FormatJSON,
		DefaultFilter: string(task.FilterAll),
		UndoSeconds:   int(task.DefaultUndoWindow / time.Second),
		Categories:    task.DefaultCategories(),
		LogPath:       DefaultLogName,
		LogLevel:      "info",
		Keys: Keymap{
			Quit:        "q",
			Add:         "a",
			Up:          "k",
			Down:        "j",
			Toggle:      " ",
			Delete:      "d",
			Undo:        "ctrl+z",
			Confirm:     "enter",
			Cancel:      "esc",
			Edit:        "e",
			Notes:       "n",
			MoveUp:      "K",
			MoveDown:    "J",
			CompleteAll: "C",
			DeleteAll:   "D",
			Search:      "/",
			Filter:      "f",
			Export:      "x",
			Theme:       "t",
			Help:        "?",
		},
	}
}

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"autumn/internal/config"
	"autumn/internal/export"
	"autumn/internal/logging"
	"autumn/internal/storage"
	"autumn/internal/task"
	"autumn/internal/ui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("todo", flag.ExitOnError)
	configPath := fs.String("config", config.ResolveConfigPath(), "path to config.toml")
	exportOnly := fs.Bool("export", false, "write an export of all tasks and exit")
	fs.Parse(args)

	cfg, err := config.LoadOrCreate(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logFile, err := logging.Open(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer logFile.Close()

	persister, prefs, closer, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closer.Close()

	timers := ui.NewTimers()
	store := task.NewStore(persister,
		task.WithLogger(logger),
		task.WithTimers(timers),
		task.WithUndoWindow(cfg.UndoWindow()),
		task.WithCategories(cfg.Categories),
		task.WithFilter(task.Filter(cfg.DefaultFilter)),
	)

	if *exportOnly {
		if err := runExport(cfg, store, logger); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		return nil
	}

	if err := ui.Run(store, timers, cfg, prefs, logger); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func openStorage(cfg config.Config) (task.Persister, *storage.Prefs, io.Closer, error) {
	if cfg.Storage == config.StorageFile {
		return storage.NewFileTasks(cfg.TasksPath), storage.NewPrefs(nil), io.NopCloser(nil), nil
	}
	kv, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return storage.NewKVTasks(kv, storage.TasksKey), storage.NewPrefs(kv), kv, nil
}

func runExport(cfg config.Config, store *task.Store, logger *log.Logger) error {
	format, err := export.ParseFormat(cfg.ExportFormat)
	if err != nil {
		return err
	}
	path, err := export.Write(cfg.ExportDir, store.Tasks(), time.Now(), format)
	if err != nil {
		return err
	}
	logger.Info("exported tasks", "path", path, "count", store.Len())
	fmt.Println(path)
	return nil
}

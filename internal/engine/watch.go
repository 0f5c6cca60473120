package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vitruv-tools/oclsharp/pkg/checker"
)

// watchDebounce coalesces editor save bursts into one re-check.
const watchDebounce = 100 * time.Millisecond

// Watch re-runs the full check whenever the constraint file or any
// model file changes, invoking onReport with each new report. It blocks
// until the context is cancelled. A reload failure keeps the previous
// model and is logged, never fatal.
func (e *Engine) Watch(ctx context.Context, onReport func(*checker.Report)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch parent directories: editors replace files on save, which
	// drops file-level watches.
	tracked := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, path := range e.watchedFiles() {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		tracked[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !tracked[abs] {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			name := filepath.Base(event.Name)
			debounce = time.AfterFunc(watchDebounce, func() {
				e.logger.Info("change detected", "file", name)
				if err := e.Load(); err != nil {
					e.logger.Error("reload failed, keeping previous model", "error", err)
					return
				}
				report, err := e.Check()
				if err != nil {
					e.logger.Error("check failed", "error", err)
					return
				}
				onReport(report)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watch error", "error", err)
		}
	}
}

func (e *Engine) watchedFiles() []string {
	files := []string{e.cfg.ConstraintFile}
	files = append(files, e.cfg.MetamodelFiles...)
	files = append(files, e.cfg.InstanceFiles...)
	return files
}

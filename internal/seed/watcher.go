package seed

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/sitedir/internal/logger"
)

// DefaultDebounce groups the burst of events an editor produces on save.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-imports the seed file whenever it changes on disk.
type Watcher struct {
	importer *Importer
	logger   logger.Logger
	debounce time.Duration

	// applied is signalled after every re-import. Tests only.
	applied chan Report
}

func NewWatcher(im *Importer, log logger.Logger) *Watcher {
	return &Watcher{importer: im, logger: log, debounce: DefaultDebounce}
}

// Run watches until ctx is done. The parent directory is watched rather
// than the file so that editors replacing the file by rename are followed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create seed watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	path, err := filepath.Abs(w.importer.loader.Path())
	if err != nil {
		return fmt.Errorf("resolve seed path: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w.logger.Info("watching seed file", logger.String("file", path))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !isContentChange(ev) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("seed watcher error", logger.Error(err))

		case <-timer.C:
			w.logger.Info("seed file changed, re-importing", logger.String("file", path))
			report, err := w.importer.Import(ctx)
			if err != nil {
				w.logger.Error("seed re-import failed", logger.Error(err))
				continue
			}
			if report.Err != nil {
				w.logger.Warn("seed re-import had failures", logger.Error(report.Err))
			}
			if w.applied != nil {
				w.applied <- report
			}
		}
	}
}

func isContentChange(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

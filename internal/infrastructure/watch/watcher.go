// Package watch triggers callbacks when local dataset files change.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Watcher reports changes to a fixed set of files. Parent directories are
// watched rather than the files themselves so editors that replace a file
// by rename are still seen.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration
	logger   logging.Logger
}

// New starts watching the directories containing paths.
func New(paths []string, debounce time.Duration, log logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create file watcher")
	}

	w := &Watcher{fsw: fsw, files: make(map[string]struct{}), debounce: debounce, logger: log.Named("watch")}
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid watch path").WithDetail(p)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for d := range dirs {
		if err := fsw.Add(d); err != nil {
			_ = fsw.Close()
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to watch directory").WithDetail(d)
		}
	}
	return w, nil
}

// Run delivers debounced batches of changed files to onChange until ctx is
// done, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) {
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			abs, _ := filepath.Abs(ev.Name)
			pending[abs] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", logging.Err(err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})
			w.logger.Info("dataset files changed", logging.Strings("files", changed))
			onChange(changed)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long Watch waits for writes to stop before
// reloading.
const DefaultSettle = 100 * time.Millisecond

// Watch calls onChange with the reloaded manifest every time the file at
// path is written. It watches the parent directory so editors that replace
// the file are seen. Parse errors are passed to onChange and watching
// continues. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, settle time.Duration, onChange func(*Manifest, error)) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch manifest: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch manifest: %w", err)
	}
	defer w.Close() //nolint:errcheck

	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Debug("watching manifest", "path", abs)

	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("manifest event", "file", event.Name, "event", event.Op)
			timer.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("manifest watcher", "err", err)
		case <-timer.C:
			m, err := Load(abs)
			onChange(m, err)
		}
	}
}

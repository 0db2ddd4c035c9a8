package descfile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aledsdavies/argbind/pkgs/params"
)

// settle is how long Watch waits after the last change before reloading.
// Editors often write a file in several steps.
const settle = 50 * time.Millisecond

// Watch loads the descriptor at path and calls fn with the result, then
// again after every change to the file, until ctx is done. Load failures
// are passed to fn and do not stop the watch. fn runs on the calling
// goroutine.
//
// The parent directory is watched so that files replaced by rename are
// still seen.
func Watch(ctx context.Context, path string, fn func([]*params.ParameterSet, error)) error {
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	fn(Load(path))

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
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fn(nil, fmt.Errorf("watch %s: %w", path, err))
		case <-timer.C:
			fn(Load(path))
		}
	}
}

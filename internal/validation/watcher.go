package validation

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/osse101/mobilesync/internal/logger"
)

// Watch reloads the registry whenever a schema file in its directory
// changes. It blocks until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(r.dir); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, SchemaFileSuffix) || ev.Op == fsnotify.Chmod {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn(LogMsgWatcherError, "error", err)
		case <-pending:
			pending = nil
			logger.Info(LogMsgSchemaReload, "dir", r.dir)
			if err := r.Load(); err != nil {
				logger.Warn(LogMsgSchemaReloadFail, "error", err)
			}
		}
	}
}

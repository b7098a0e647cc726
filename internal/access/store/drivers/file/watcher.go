package file

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Credentials snapshot whenever the users file changes on
// disk, e.g. when another process registers a user.
type Watcher struct {
	creds   *Credentials
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}

	// Reloaded, if set, is signalled after every reload attempt. Tests use it
	// to wait for the watcher instead of sleeping.
	Reloaded chan error
}

// NewWatcher watches the directory holding the users file. The directory is
// watched rather than the file so atomic rename-over writes are seen.
func NewWatcher(creds *Credentials, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create users file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(creds.Path())); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch users directory: %w", err)
	}

	return &Watcher{
		creds:   creds,
		logger:  logger,
		watcher: w,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins processing events in the background. Call Stop to shut it
// down.
func (w *Watcher) Start() {
	go w.run()
	w.logger.Info("users file watcher started", "path", w.creds.Path())
}

// Stop closes the watcher and blocks until the event loop has exited.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
	<-w.doneCh
	w.logger.Info("users file watcher stopped")
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	target := w.creds.Path()
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			err := w.creds.Reload()
			if err != nil {
				logReloadError(w.logger, target, err)
			} else {
				w.logger.Debug("users file reloaded", "path", target)
			}
			if w.Reloaded != nil {
				select {
				case w.Reloaded <- err:
				default:
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("users file watcher error", "error", err)
		}
	}
}

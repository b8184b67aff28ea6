// Package watcher runs an extraction for every video dropped into a directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/mgpai22/sublens/internal/logging"
	"github.com/mgpai22/sublens/internal/video"
)

// LockFileName is created in the watched directory while a watcher owns it.
const LockFileName = ".sublens.lock"

// ErrAlreadyWatching is returned when another process watches the directory.
var ErrAlreadyWatching = errors.New("directory is already being watched")

// EventHandler processes one new video file.
type EventHandler func(ctx context.Context, filePath string) error

type Watcher struct {
	inputDir      string
	handler       EventHandler
	logger        *logging.Logger
	watcher       *fsnotify.Watcher
	lock          *flock.Flock
	maxConcurrent int
	semaphore     chan struct{}
	// wait after a create event so the writer can finish
	settle time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
	wg       sync.WaitGroup
}

// New locks inputDir and starts listening for file events. At most
// maxConcurrent videos are processed at once.
func New(inputDir string, handler EventHandler, logger *logging.Logger, maxConcurrent int) (*Watcher, error) {
	if err := os.MkdirAll(inputDir, 0755); err != nil {
		return nil, fmt.Errorf("create input directory: %w", err)
	}

	lock := flock.New(filepath.Join(inputDir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyWatching, inputDir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(inputDir); err != nil {
		fsw.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}

	return &Watcher{
		inputDir:      inputDir,
		handler:       handler,
		logger:        logging.OrNop(logger),
		watcher:       fsw,
		lock:          lock,
		maxConcurrent: maxConcurrent,
		semaphore:     make(chan struct{}, maxConcurrent),
		settle:        500 * time.Millisecond,
		inFlight:      make(map[string]bool),
	}, nil
}

// Start blocks until ctx is cancelled, then waits for running handlers.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Infow("watching for videos", "dir", w.inputDir, "max_concurrent", w.maxConcurrent)

	for {
		select {
		case <-ctx.Done():
			w.logger.Infow("waiting for running extractions")
			w.wg.Wait()
			w.logger.Infow("watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !video.IsVideoFile(event.Name) {
				w.logger.Debugw("ignoring non-video file", "path", event.Name)
				continue
			}
			w.dispatch(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Errorw("watcher error", "error", err)
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, path string) {
	w.mu.Lock()
	if w.inFlight[path] {
		w.mu.Unlock()
		return
	}
	w.inFlight[path] = true
	w.mu.Unlock()

	w.logger.Infow("new video detected", "path", path)
	w.wg.Go(func() {
		defer func() {
			w.mu.Lock()
			delete(w.inFlight, path)
			w.mu.Unlock()
		}()

		select {
		case <-time.After(w.settle):
		case <-ctx.Done():
			return
		}

		// renamed away before we got to it
		if _, err := os.Stat(path); err != nil {
			return
		}

		select {
		case w.semaphore <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-w.semaphore }()

		if err := w.handler(ctx, path); err != nil {
			w.logger.Errorw("failed to process video", "path", path, "error", err)
		}
	})
}

// Stop closes the file watcher and releases the directory lock.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	if uerr := w.lock.Unlock(); uerr != nil && err == nil {
		err = uerr
	}
	return err
}

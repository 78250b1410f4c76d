package evolve

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/lazypower/instinct/internal/logging"
)

// ErrStopped is returned by Watch when the engine is stopped.
var ErrStopped = errors.New("engine stopped")

// Watch runs a pass now and again whenever the observation log settles after
// a write. The log's directory is watched so the log may be created later.
// onReport, if set, receives every completed pass. Watch returns ctx.Err()
// on cancellation or ErrStopped after Stop.
func (e *Engine) Watch(ctx context.Context, debounce time.Duration, onReport func(*Report)) error {
	log := logging.OrNop(e.Logger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(e.Log.Path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	pass := func() {
		report, err := e.Run(ctx, RunOptions{})
		if err != nil {
			if ctx.Err() == nil {
				log.Error("evolve: watched pass", zap.Error(err))
			}
			return
		}
		if onReport != nil {
			onReport(report)
		}
	}

	stop := e.stopped()
	pass()

	// The timer only fires after a Reset from an event.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return ErrStopped
		case event, ok := <-watcher.Events:
			if !ok {
				return ErrStopped
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug("evolve: observation log changed", zap.String("op", event.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return ErrStopped
			}
			log.Warn("evolve: watcher error", zap.Error(err))
		case <-timer.C:
			pass()
		}
	}
}

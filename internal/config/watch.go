package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// reloadDelay collapses the burst of events editors produce for one save.
const reloadDelay = 100 * time.Millisecond

// Watcher reloads a config file when it changes. Each successful reload is
// sent on Events after ApplyEnv and Validate; failures go to Errors.
// Flag overrides are not re-applied.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	Events  chan Config
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Watch starts watching path. The parent directory is watched so that
// editors replacing the file by rename are still seen.
func Watch(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &Watcher{
		watcher: w,
		path:    path,
		Events:  make(chan Config, 1),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher and closes Events and Errors.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.Events)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			timer.Reset(reloadDelay)
		case <-timer.C:
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendErr(err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	c, err := Load(w.path)
	if err == nil {
		err = c.ApplyEnv()
	}
	if err == nil {
		err = c.Validate()
	}
	if err != nil {
		w.sendErr(err)
		return
	}
	select {
	case w.Events <- c:
	case <-w.closeCh:
	}
}

func (w *Watcher) sendErr(err error) {
	select {
	case w.Errors <- err:
	default:
		// Unread error pending, drop
	}
}

// Follow watches path until ctx is done, calling apply with each valid reload.
// Reload errors are logged and the previous settings stay in effect.
func Follow(ctx context.Context, path string, logger *log.Logger, apply func(Config)) error {
	w, err := Watch(path)
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-w.Events:
				logger.Info("config reloaded", "path", path)
				apply(c)
			case err := <-w.Errors:
				logger.Warn("config reload failed", "path", path, "err", err)
			}
		}
	}()
	return nil
}

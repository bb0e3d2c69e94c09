package config

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow absorbs the burst of write events a single editor save
// commonly produces.
const debounceWindow = 50 * time.Millisecond

// Watch starts an fsnotify watch on path's parent directory and invokes
// onReload with a freshly loaded, freshly validated Config each time path
// settles after a write. A reload that fails validation is logged and
// discarded; the caller's previous config stays live. The returned closer
// stops the watch goroutine.
func Watch(path string, logger *slog.Logger, onReload func(*Config, []CompiledRule)) (io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	done := make(chan struct{})
	go watchLoop(w, path, logger, onReload, done)

	return &watchCloser{w: w, done: done}, nil
}

type watchCloser struct {
	w *fsnotify.Watcher
	done chan struct{}
}

func (c *watchCloser) Close() error {
	err := c.w.Close()
	<-c.done
	return err
}

func watchLoop(w *fsnotify.Watcher, path string, logger *slog.Logger, onReload func(*Config, []CompiledRule), done chan struct{}) {
	defer close(done)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			cfg, compiled, err := Load(path)
			if err != nil {
				logger.Warn("config: reload failed, keeping previous config", "path", path, "error", err)
				continue
			}
			onReload(cfg, compiled)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("config: watcher error", "error", watchErr)
		}
	}
}

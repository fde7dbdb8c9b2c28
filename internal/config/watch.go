package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/opencode-ai/hostbridge/internal/logging"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

// reloadDebounce collapses the burst of events editors produce on save.
const reloadDebounce = 100 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*types.Config)
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// Watch starts watching path. onChange receives the reloaded configuration
// (built-in defaults plus the file); a file that fails to parse is logged and
// skipped. The parent directory is watched so that atomic renames are seen.
func Watch(path string, onChange func(*types.Config)) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(absPath)); err != nil {
		w.Close()
		return nil, err
	}

	cw := &Watcher{
		watcher:  w,
		path:     absPath,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go cw.run()

	logging.Debug().Str("path", absPath).Msg("config watcher started")
	return cw, nil
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			reload = timer.C
		case <-reload:
			reload = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		logging.Warn().Err(err).Str("path", w.path).Msg("config reload failed")
		return
	}
	logging.Info().Str("path", w.path).Msg("config reloaded")
	w.onChange(cfg)
}

// Stop stops the watcher and waits for it to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		err = w.watcher.Close()
	})
	return err
}

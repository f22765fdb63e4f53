package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/freenet-go/nodelog/util"
)

// Tunables is the subset of Config that may be hot-reloaded without a
// restart: the knobs that already have safe-from-any-thread mutators on a
// running rotate.Hook.
type Tunables struct {
	MaxListBytes    int64 `yaml:"max_list_bytes"`
	MaxArchiveBytes int64 `yaml:"max_archive_bytes"`
	FlushDelayMS    int   `yaml:"flush_delay_ms"`
}

// TunablesWatcher reloads Tunables from a YAML file whenever it changes on
// disk and hands the new values to a callback.
type TunablesWatcher struct {
	path     string
	fsw      *fsnotify.Watcher
	callback func(Tunables)
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	done    chan struct{}
	running bool
}

// WatchTunables watches the directory containing path (editors often
// rewrite a config file by create-then-rename, which a direct file watch
// misses) and calls onChange with the freshly parsed Tunables after each
// write, debounced by 200ms to collapse bursts of filesystem events from a
// single save.
func WatchTunables(path string, onChange func(Tunables)) (*TunablesWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &TunablesWatcher{
		path:     path,
		fsw:      fsw,
		callback: onChange,
		debounce: 200 * time.Millisecond,
		done:     make(chan struct{}),
	}
	w.running = true
	go w.run()
	return w, nil
}

func (w *TunablesWatcher) run() {
	target := filepath.Base(w.path)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			util.Warn("config watch error for %s: %v", w.path, err)
		}
	}
}

func (w *TunablesWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *TunablesWatcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		util.Warn("could not reread config %s: %v", w.path, err)
		return
	}
	var t Tunables
	if err := yaml.Unmarshal(data, &t); err != nil {
		util.Warn("could not parse reloaded config %s: %v", w.path, err)
		return
	}
	w.callback(t)
}

// Stop stops watching and releases the underlying fsnotify watcher.
func (w *TunablesWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	w.fsw.Close()
}

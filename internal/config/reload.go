package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// Reloader watches the config file and hands every valid new version to a
// callback. Invalid versions are logged and ignored.
type Reloader struct {
	watcher  *fsnotify.Watcher
	path     string
	onReload func(*Config)
	log      io.Writer
}

// NewReloader creates a file watcher for path.
func NewReloader(path string, onReload func(*Config)) (*Reloader, error) {
	if path == "" {
		return nil, fmt.Errorf("no config file to watch")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}
	return &Reloader{watcher: watcher, path: path, onReload: onReload, log: os.Stderr}, nil
}

// SetLog redirects reload messages, which are otherwise written to stderr.
func (r *Reloader) SetLog(w io.Writer) {
	r.log = w
}

// Run watches for file changes and reloads the config. Blocks until ctx is
// cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer func() { _ = r.watcher.Close() }()

	// Wait 500ms after the last write before reloading.
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(r.log, "config: watcher error: %v\n", err)
		}
	}
}

func (r *Reloader) reload() {
	cfg, err := Load(r.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(r.log, "config: hot-reload failed: %v\n", err)
		return
	}
	r.onReload(cfg)
	fmt.Fprintf(r.log, "config: hot-reload: %d sources\n", len(cfg.Sources))
}

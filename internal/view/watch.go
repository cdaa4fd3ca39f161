package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// reloadDebounce coalesces bursts of editor writes into one reload.
const reloadDebounce = 200 * time.Millisecond

// NewFromDir parses templates from dir on disk.  Use Watch to pick up
// edits without restarting the server.
func NewFromDir(dir string, logger hclog.Logger) (*Renderer, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("template directory: %w", err)
	}
	return NewFromFS(os.DirFS(dir), logger)
}

// Watch re-parses the templates whenever an .html file in dir changes.
// It returns once the watcher is running; the watch loop ends with ctx.
func (r *Renderer) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	r.log.Info("watching templates", "dir", dir)

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !relevant(event) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					if err := r.Reload(); err != nil {
						r.log.Error("template reload failed", "error", err)
						return
					}
					r.log.Info("templates reloaded", "trigger", filepath.Base(event.Name))
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.Warn("file watcher error", "error", err)
			}
		}
	}()
	return nil
}

func relevant(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".html") {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

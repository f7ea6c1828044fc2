package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SecretsWatcher signals on Changes whenever the secrets file is written,
// created or replaced. The parent directory is watched so editors that
// rename over the file are still seen.
type SecretsWatcher struct {
	Path    string
	Changes <-chan struct{}

	changes chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

func NewSecretsWatcher(path string) (*SecretsWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	ch := make(chan struct{}, 1)
	w := &SecretsWatcher{
		Path:    path,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}
	go w.loop()
	return w, nil
}

func (w *SecretsWatcher) Stop() {
	w.watcher.Close()
	<-w.done
}

func (w *SecretsWatcher) loop() {
	defer close(w.done)

	const debounce = 250 * time.Millisecond
	var pending time.Time
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	name := filepath.Clean(w.Path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}
		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= debounce {
				pending = time.Time{}
				select {
				case w.changes <- struct{}{}:
				default:
				}
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

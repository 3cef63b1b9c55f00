package configstore

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// WatchConfigFile watches Static.ConfigFilePath (if set) and reloads it
// into the Store whenever it changes on disk. This is the loader's own
// hot-reload path — distinct from, and not racing with, the Reconciler's
// route-table hot-update path (spec §4.D): a file edit here only ever
// changes what Services() returns, which the Reconciler then picks up on
// its own next 5s pass like any other config change.
//
// WatchConfigFile blocks until ctx-like done is closed; callers run it in
// its own goroutine. A no-op if no config file was configured.
func WatchConfigFile(store *Store, done <-chan struct{}) error {
	path := store.Static().ConfigFilePath
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := store.LoadConfigFile(); err != nil {
				log.Printf("configstore: reload %s: %v", path, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("configstore: watch %s: %v", path, err)
		}
	}
}

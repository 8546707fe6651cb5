package cache

import (
	"os"
	"path/filepath"
	"sync"

	"dreamui/backend/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher invokes a callback whenever a JSON file in one of its directories changes
type Watcher struct {
	fs   *fsnotify.Watcher
	log  *logger.Logger
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Watch starts watching dirs, creating them when missing. onChange receives the
// path of the file that was created, written, removed or renamed.
func Watch(dirs []string, onChange func(path string), log *logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fw.Close()
			return nil, err
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}

	w := &Watcher{fs: fw, log: log.WithComponent("cache.watch"), done: make(chan struct{})}
	w.wg.Add(1)
	go w.loop(onChange)
	return w, nil
}

func (w *Watcher) loop(onChange func(string)) {
	defer w.wg.Done()
	const mask = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(mask) || filepath.Ext(ev.Name) != ".json" {
				continue
			}
			if base := filepath.Base(ev.Name); len(base) > 0 && base[0] == '.' {
				continue
			}
			w.log.Debug("Data file changed", "path", ev.Name, "op", ev.Op.String())
			onChange(ev.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.LogError(err, "File watcher error")
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

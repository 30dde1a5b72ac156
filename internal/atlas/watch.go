package atlas

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"skel-runtime/internal/logging"
	"skel-runtime/internal/texture"
)

// Change describes a source update applied by a Watcher.
type Change struct {
	Name    string
	Path    string
	Removed bool
	Err     error
}

// Watcher keeps an Atlas in sync with the images of one directory. Sources
// are named like PackDir names them.
type Watcher struct {
	dir     string
	atlas   *Atlas
	fs      *fsnotify.Watcher
	changes chan Change
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Watch loads every image already in dir into a and then follows the
// directory for creates, writes, removes and renames.
func Watch(dir string, a *Atlas) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{
		dir:     dir,
		atlas:   a,
		fs:      fsw,
		changes: make(chan Change, 64),
		done:    make(chan struct{}),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !texture.Supported(e.Name()) {
			continue
		}
		w.load(filepath.Join(dir, e.Name()), false)
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Changes delivers applied updates. Updates are dropped when nobody reads.
func (w *Watcher) Changes() <-chan Change { return w.changes }

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !texture.Supported(e.Name) {
				continue
			}
			switch {
			case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				name := sourceName(e.Name)
				if w.atlas.Remove(name) {
					logging.Debug("atlas source removed", "name", name)
					w.notify(Change{Name: name, Path: e.Name, Removed: true})
				}
			case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w.load(e.Name, true)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Error("atlas watcher", "dir", w.dir, "err", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) load(path string, notify bool) {
	name := sourceName(path)
	img, err := texture.Load(path)
	if err != nil {
		// A file being written may not decode yet; the next write event
		// retries.
		logging.Debug("atlas source not loaded", "path", path, "err", err)
		if notify {
			w.notify(Change{Name: name, Path: path, Err: err})
		}
		return
	}
	w.atlas.Add(name, img)
	if notify {
		logging.Debug("atlas source updated", "name", name)
		w.notify(Change{Name: name, Path: path})
	}
}

func (w *Watcher) notify(c Change) {
	select {
	case w.changes <- c:
	default:
	}
}

// Close stops watching and closes Changes. A second call returns an error.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errors.New("atlas: watcher already closed")
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	close(w.changes)
	return err
}

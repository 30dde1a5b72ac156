// Package library keeps decoded models by name for the tools and the
// preview server.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"skel-runtime/internal/batch"
	"skel-runtime/internal/logging"
	"skel-runtime/internal/skel"
	"skel-runtime/internal/skeleton"
)

// Library maps model names to decoded data. It is safe for concurrent use.
type Library struct {
	mu     sync.RWMutex
	models map[string]*skeleton.Data
}

func New() *Library {
	return &Library{models: make(map[string]*skeleton.Data)}
}

// Add registers data under name, replacing any previous model.
func (l *Library) Add(name string, data *skeleton.Data) {
	l.mu.Lock()
	l.models[name] = data
	l.mu.Unlock()
}

// Get returns the model called name.
func (l *Library) Get(name string) (*skeleton.Data, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.models[name]
	return d, ok
}

// Remove drops name and reports whether it was present.
func (l *Library) Remove(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.models[name]; !ok {
		return false
	}
	delete(l.models, name)
	return true
}

// Names returns the registered names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	names := make([]string, 0, len(l.models))
	for n := range l.models {
		names = append(names, n)
	}
	l.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.models)
}

// Load is a decode running in the background.
type Load struct {
	Name string
	Path string

	section atomic.Int32
	done    chan struct{}
	data    *skeleton.Data
	err     error
}

// Section returns the last section the decoder reported.
func (ld *Load) Section() skel.Section { return skel.Section(ld.section.Load()) }

// Done is closed when the decode has finished.
func (ld *Load) Done() <-chan struct{} { return ld.done }

// Wait blocks until the decode has finished.
func (ld *Load) Wait() (*skeleton.Data, error) {
	<-ld.done
	return ld.data, ld.err
}

// LoadAsync decodes path on a new goroutine. On success the model is added
// to the library under name. WithProgress in opts is replaced by the
// load's own progress tracking.
func (l *Library) LoadAsync(name, path string, opts ...skel.Option) *Load {
	ld := &Load{Name: name, Path: path, done: make(chan struct{})}
	opts = append(opts, skel.WithName(name), skel.WithProgress(func(s skel.Section) {
		ld.section.Store(int32(s))
	}))
	go func() {
		defer close(ld.done)
		ld.data, ld.err = skel.Parse(path, opts...)
		if ld.err != nil {
			logging.Warn("model not loaded", "name", name, "path", path, "err", ld.err)
			return
		}
		l.Add(name, ld.data)
		logging.Debug("model loaded", "name", name, "bones", len(ld.data.Bones), "animations", len(ld.data.Animations))
	}()
	return ld
}

// Ext is the skeleton file extension LoadDir picks up.
const Ext = ".skel"

// LoadDir decodes every skeleton file in dir on a pool of workers. Models
// are named by file stem. Files that fail to decode are skipped; their
// errors are joined into the returned error.
func (l *Library) LoadDir(dir string, workers int, opts ...skel.Option) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("library: read %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), Ext) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}

	errs := make([]error, len(paths))
	var loaded atomic.Int64
	batch.Each(workers, len(paths), "load", func(i int) {
		name := strings.TrimSuffix(filepath.Base(paths[i]), filepath.Ext(paths[i]))
		if _, errs[i] = l.LoadAsync(name, paths[i], opts...).Wait(); errs[i] == nil {
			loaded.Add(1)
		}
	})
	return int(loaded.Load()), errors.Join(errs...)
}

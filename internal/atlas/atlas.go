package atlas

import (
	"image"
	"sort"
	"sync"
	"sync/atomic"
)

// Atlas collects source images and repacks them lazily. Add and Remove only
// mark it dirty; the next Packed call rebuilds. Every rebuild produces a new
// immutable *Packed, so snapshots already handed out stay valid.
type Atlas struct {
	opts Options

	mu         sync.Mutex
	sources    map[string]image.Image
	dirty      bool
	generation uint64

	current atomic.Pointer[Packed]
}

func New(opts Options) *Atlas {
	return &Atlas{opts: opts, sources: make(map[string]image.Image), dirty: true}
}

// Add inserts or replaces a source image.
func (a *Atlas) Add(name string, img image.Image) {
	a.mu.Lock()
	a.sources[name] = img
	a.dirty = true
	a.mu.Unlock()
}

// Remove drops a source. It reports whether the source existed.
func (a *Atlas) Remove(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.sources[name]; !ok {
		return false
	}
	delete(a.sources, name)
	a.dirty = true
	return true
}

// Len returns the number of sources.
func (a *Atlas) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sources)
}

// Dirty reports whether sources changed since the last rebuild.
func (a *Atlas) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// Generation counts successful rebuilds.
func (a *Atlas) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation
}

// Current returns the last built snapshot without rebuilding, or nil.
func (a *Atlas) Current() *Packed { return a.current.Load() }

// Packed returns an up-to-date snapshot, repacking first if dirty. On a
// packing error the previous snapshot stays current and the atlas stays
// dirty.
func (a *Atlas) Packed() (*Packed, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p := a.current.Load(); p != nil && !a.dirty {
		return p, nil
	}

	names := make([]string, 0, len(a.sources))
	for n := range a.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	srcs := make([]Source, len(names))
	for i, n := range names {
		srcs[i] = Source{Name: n, Image: a.sources[n]}
	}

	p, err := Pack(srcs, a.opts)
	if err != nil {
		return nil, err
	}
	a.current.Store(p)
	a.dirty = false
	a.generation++
	return p, nil
}

// FindRegion looks name up in the current snapshot, rebuilding if needed.
func (a *Atlas) FindRegion(name string) (Region, bool) {
	p, err := a.Packed()
	if err != nil {
		return Region{}, false
	}
	return p.FindRegion(name)
}

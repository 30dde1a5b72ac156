package texture

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Index maps lowercase image stems to filesystem paths. When several files
// share a stem the format earlier in Extensions wins (PNG over JPEG).
type Index struct {
	entries map[string]string // stem.lower() → full path
}

// BuildIndex walks dirs recursively for supported images. Missing
// directories are ignored.
func BuildIndex(dirs ...string) *Index {
	idx := &Index{entries: make(map[string]string)}
	for _, dir := range dirs {
		filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || !Supported(path) {
				return nil
			}
			idx.add(path)
			return nil
		})
	}
	return idx
}

func (idx *Index) add(path string) {
	stem := Stem(path)
	existing, exists := idx.entries[stem]
	if !exists || rank(path) < rank(existing) {
		idx.entries[stem] = path
	}
}

// Stem is the lowercase file name of name without directory or extension.
// Backslash separators are accepted.
func Stem(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ResolvePath returns the filesystem path for an image name, or ("", false).
func (idx *Index) ResolvePath(name string) (string, bool) {
	path, ok := idx.entries[Stem(name)]
	return path, ok
}

// Names returns the indexed stems in sorted order.
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.entries))
	for n := range idx.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of indexed images.
func (idx *Index) Len() int {
	return len(idx.entries)
}

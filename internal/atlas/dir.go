package atlas

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"skel-runtime/internal/texture"
)

// PackDir packs every supported image under dirs, named by file name
// without extension. Images that fail to decode are reported together and
// left out.
func PackDir(opts Options, dirs ...string) (*Packed, error) {
	idx := texture.BuildIndex(dirs...)
	cache := texture.NewCache(idx)

	var sources []Source
	var errs []error
	for _, stem := range idx.Names() {
		path, _ := idx.ResolvePath(stem)
		name := sourceName(path)
		img, err := cache.Get(stem)
		if err != nil {
			errs = append(errs, fmt.Errorf("atlas: source %s: %w", name, err))
			continue
		}
		sources = append(sources, Source{Name: name, Image: img})
	}
	packed, err := Pack(sources, opts)
	if err != nil {
		return nil, err
	}
	return packed, errors.Join(errs...)
}

func sourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

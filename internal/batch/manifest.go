package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ManifestEntry represents one rendered frame in the output manifest.
type ManifestEntry struct {
	Name      string  `json:"name"`
	Animation string  `json:"animation,omitempty"`
	Time      float32 `json:"time"`
	Image     string  `json:"image,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// WriteManifest writes the results as a JSON array. Image paths use forward
// slashes; failed jobs carry their error instead.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		e := ManifestEntry{Name: r.Name, Animation: r.Animation, Time: r.Time}
		if r.Success {
			e.Image = filepath.ToSlash(r.Output)
		} else {
			e.Error = r.Error
		}
		entries[i] = e
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

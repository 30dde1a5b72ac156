package export

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"skel-runtime/internal/atlas"
	"skel-runtime/internal/skeleton"
)

// Paths returns the document, atlas image and region table file names of
// the bundle called name in dir.
func Paths(dir, name string) (doc, image, table string) {
	base := filepath.Join(dir, name)
	return base + ".yaml", base + ".atlas.png", base + ".atlas.txt"
}

// Marshal encodes data as a YAML document.
func Marshal(data *skeleton.Data) ([]byte, error) {
	doc, err := FromData(data)
	if err != nil {
		return nil, err
	}
	var buffer bytes.Buffer
	enc := yaml.NewEncoder(&buffer)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to marshal yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrapf(err, "Failed to close yaml encoder")
	}
	return buffer.Bytes(), nil
}

// Unmarshal decodes a YAML document and rebuilds its graph.
func Unmarshal(b []byte) (*skeleton.Data, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to unmarshal yaml")
	}
	return doc.ToData()
}

// Write stores data as <name>.yaml in dir and, when packed is not nil, its
// atlas as <name>.atlas.png and <name>.atlas.txt.
func Write(dir string, data *skeleton.Data, packed *atlas.Packed) error {
	b, err := Marshal(data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "export: create %s", dir)
	}
	docPath, imgPath, tablePath := Paths(dir, data.Name)
	if err := os.WriteFile(docPath, b, 0644); err != nil {
		return errors.Wrapf(err, "export: write %s", docPath)
	}
	if packed == nil {
		return nil
	}
	if err := packed.WriteImage(imgPath); err != nil {
		return err
	}
	return packed.SaveTable(tablePath)
}

// Read loads a YAML document written by Write.
func Read(path string) (*skeleton.Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "export: read %s", path)
	}
	data, err := Unmarshal(b)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return data, nil
}

// ReadBundle loads the document and atlas called name from dir and binds
// them. The atlas is restored as written, without packing again.
func ReadBundle(dir, name string) (*skeleton.Data, *atlas.Packed, error) {
	docPath, imgPath, tablePath := Paths(dir, name)
	data, err := Read(docPath)
	if err != nil {
		return nil, nil, err
	}
	packed, err := atlas.Load(tablePath, imgPath)
	if err != nil {
		return nil, nil, err
	}
	if err := data.BindAtlas(packed); err != nil {
		return nil, nil, errors.Wrapf(err, "export: bind %s", name)
	}
	return data, packed, nil
}

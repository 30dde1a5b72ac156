package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all configurable paths and settings of the tools.
type Config struct {
	Paths  Paths  `toml:"paths"`
	Atlas  Atlas  `toml:"atlas"`
	Render Render `toml:"render"`
	Decode Decode `toml:"decode"`
	Log    Log    `toml:"log"`
	Server Server `toml:"server"`

	// dir is the directory of the loaded file; relative paths resolve
	// against it.
	dir string
}

type Paths struct {
	Models string `toml:"models"`
	Images string `toml:"images"`
	Output string `toml:"output"`
}

type Atlas struct {
	Padding     int    `toml:"padding"`
	MaxSize     int    `toml:"max_size"`
	ImageFormat string `toml:"image_format"`
}

type Render struct {
	Size        int `toml:"size"`
	Supersample int `toml:"supersample"`
	WebPQuality int `toml:"webp_quality"`
	FPS         int `toml:"fps"`
	Workers     int `toml:"workers"`
	Margin      int `toml:"margin"`
}

type Decode struct {
	Scale float32 `toml:"scale"`
}

type Log struct {
	Level string `toml:"level"`
}

type Server struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Paths:  Paths{Models: "models", Images: "images", Output: "out"},
		Atlas:  Atlas{Padding: 2, MaxSize: 4096, ImageFormat: "png"},
		Render: Render{Size: 512, Supersample: 2, WebPQuality: 90, FPS: 30, Workers: runtime.NumCPU(), Margin: 16},
		Decode: Decode{Scale: 1},
		Log:    Log{Level: "info"},
		Server: Server{Addr: ":8080"},
	}
}

// Load reads a TOML config file over the defaults. Keys absent from the
// file keep their default; unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return Config{}, fmt.Errorf("config: parse %s:%d:%d: %w", path, row, col, err)
		}
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Models      string
	Images      string
	Output      string
	Size        int
	Supersample int
	Quality     int
	Workers     int
	Scale       float64
	LogLevel    string
	Addr        string
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.Models != "" {
		c.Paths.Models = flags.Models
	}
	if flags.Images != "" {
		c.Paths.Images = flags.Images
	}
	if flags.Output != "" {
		c.Paths.Output = flags.Output
	}
	if flags.Size > 0 {
		c.Render.Size = flags.Size
	}
	if flags.Supersample > 0 {
		c.Render.Supersample = flags.Supersample
	}
	if flags.Quality > 0 {
		c.Render.WebPQuality = flags.Quality
	}
	if flags.Workers > 0 {
		c.Render.Workers = flags.Workers
	}
	if flags.Scale > 0 {
		c.Decode.Scale = float32(flags.Scale)
	}
	if flags.LogLevel != "" {
		c.Log.Level = flags.LogLevel
	}
	if flags.Addr != "" {
		c.Server.Addr = flags.Addr
	}

	// Resolve relative paths against the config file
	if c.dir != "" {
		for _, p := range []*string{&c.Paths.Models, &c.Paths.Images, &c.Paths.Output} {
			if *p != "" && !filepath.IsAbs(*p) {
				*p = filepath.Join(c.dir, *p)
			}
		}
	}

	def := Default()
	if c.Atlas.Padding < 0 {
		c.Atlas.Padding = def.Atlas.Padding
	}
	if c.Atlas.MaxSize <= 0 {
		c.Atlas.MaxSize = def.Atlas.MaxSize
	}
	if c.Atlas.ImageFormat == "" {
		c.Atlas.ImageFormat = def.Atlas.ImageFormat
	}
	if c.Render.Size <= 0 {
		c.Render.Size = def.Render.Size
	}
	if c.Render.Supersample <= 0 {
		c.Render.Supersample = def.Render.Supersample
	}
	if c.Render.WebPQuality <= 0 {
		c.Render.WebPQuality = def.Render.WebPQuality
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = def.Render.FPS
	}
	if c.Render.Workers <= 0 {
		c.Render.Workers = def.Render.Workers
	}
	if c.Render.Margin < 0 {
		c.Render.Margin = def.Render.Margin
	}
	if c.Decode.Scale <= 0 {
		c.Decode.Scale = def.Decode.Scale
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
}

// Validate reports settings no tool can work with.
func (c Config) Validate() error {
	switch c.Atlas.ImageFormat {
	case "png", "webp":
	default:
		return fmt.Errorf("config: atlas.image_format %q: want png or webp", c.Atlas.ImageFormat)
	}
	if c.Render.WebPQuality > 100 {
		return fmt.Errorf("config: render.webp_quality %d out of range", c.Render.WebPQuality)
	}
	if c.Atlas.MaxSize&(c.Atlas.MaxSize-1) != 0 {
		return fmt.Errorf("config: atlas.max_size %d is not a power of two", c.Atlas.MaxSize)
	}
	return nil
}

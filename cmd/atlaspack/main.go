package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"skel-runtime/internal/atlas"
	"skel-runtime/internal/config"
	"skel-runtime/internal/logging"
)

func main() {
	configFile := flag.String("config", "", "Path to config.toml file")
	images := flag.String("images", "", "Directory of images to pack (default: images)")
	out := flag.String("out", "", "Output base path; writes <out>.atlas.<format> and <out>.atlas.txt (default: <output>/atlas)")
	padding := flag.Int("padding", -1, "Padding around every image (default: 2)")
	maxSize := flag.Int("max", 0, "Largest canvas side (default: 4096)")
	format := flag.String("format", "", "Canvas image format: png or webp")
	watch := flag.Bool("watch", false, "Keep running and repack when the image directory changes")
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{Images: *images})
	if *padding >= 0 {
		cfg.Atlas.Padding = *padding
	}
	if *maxSize > 0 {
		cfg.Atlas.MaxSize = *maxSize
	}
	if *format != "" {
		cfg.Atlas.ImageFormat = *format
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.SetLevel(cfg.Log.Level)

	base := *out
	if base == "" {
		base = filepath.Join(cfg.Paths.Output, "atlas")
	}
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	imagePath := base + ".atlas." + cfg.Atlas.ImageFormat
	tablePath := base + ".atlas.txt"
	opts := atlas.Options{Padding: cfg.Atlas.Padding, MaxSize: cfg.Atlas.MaxSize}

	if !*watch {
		packed, err := atlas.PackDir(opts, cfg.Paths.Images)
		if packed == nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		if err := write(packed, imagePath, tablePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	a := atlas.New(opts)
	w, err := atlas.Watch(cfg.Paths.Images, a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error watching %s: %v\n", cfg.Paths.Images, err)
		os.Exit(1)
	}
	defer w.Close()

	repack := func() {
		packed, err := a.Packed()
		if err != nil {
			logging.Error("repack", "err", err)
			return
		}
		if err := write(packed, imagePath, tablePath); err != nil {
			logging.Error("write atlas", "err", err)
		}
	}
	repack()
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", cfg.Paths.Images)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	for {
		select {
		case c, ok := <-w.Changes():
			if !ok {
				return
			}
			if c.Err != nil {
				continue
			}
			logging.Info("source changed", "name", c.Name, "removed", c.Removed)
			repack()
		case <-stop:
			return
		}
	}
}

func write(packed *atlas.Packed, imagePath, tablePath string) error {
	if err := packed.WriteImage(imagePath); err != nil {
		return err
	}
	if err := packed.SaveTable(tablePath); err != nil {
		return err
	}
	fmt.Printf("Atlas: %d regions on %dx%d → %s, %s\n", packed.Len(), packed.Size, packed.Size, imagePath, tablePath)
	return nil
}

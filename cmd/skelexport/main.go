package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"skel-runtime/internal/atlas"
	"skel-runtime/internal/config"
	"skel-runtime/internal/export"
	"skel-runtime/internal/skel"
)

func main() {
	configFile := flag.String("config", "", "Path to config.toml file")
	images := flag.String("images", "", "Directory of region images to pack (default: images)")
	outputDir := flag.String("output", "", "Output directory (default: out)")
	scale := flag.Float64("scale", 0, "Decode scale (default: 1)")
	noAtlas := flag.Bool("noatlas", false, "Write only the YAML document")
	check := flag.Bool("check", false, "Read every written bundle back and bind it")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: skelexport [flags] file.skel...")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{Images: *images, Output: *outputDir, Scale: *scale})

	var packed *atlas.Packed
	if !*noAtlas {
		var err error
		packed, err = atlas.PackDir(atlas.Options{Padding: cfg.Atlas.Padding, MaxSize: cfg.Atlas.MaxSize}, cfg.Paths.Images)
		if packed == nil {
			fmt.Fprintf(os.Stderr, "Error packing %s: %v\n", cfg.Paths.Images, err)
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	failed := 0
	for _, path := range flag.Args() {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		data, err := skel.Parse(path, skel.WithName(name), skel.WithScale(cfg.Decode.Scale))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		if err := export.Write(cfg.Paths.Output, data, packed); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		doc, _, _ := export.Paths(cfg.Paths.Output, name)
		fmt.Printf("OK  %s -> %s\n", path, doc)

		if *check {
			if packed != nil {
				_, _, err = export.ReadBundle(cfg.Paths.Output, name)
			} else {
				_, err = export.Read(doc)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: read back: %v\n", doc, err)
				failed++
			}
		}
	}
	if failed > 0 {
		fmt.Printf("Failed: %d/%d\n", failed, flag.NArg())
		os.Exit(1)
	}
}

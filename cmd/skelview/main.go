package main

import (
	"flag"
	"fmt"
	"os"

	"skel-runtime/internal/atlas"
	"skel-runtime/internal/batch"
	"skel-runtime/internal/config"
	"skel-runtime/internal/library"
	"skel-runtime/internal/logging"
	"skel-runtime/internal/raster"
	"skel-runtime/internal/skel"
	"skel-runtime/internal/viewer"
)

func main() {
	configFile := flag.String("config", "", "Path to config.toml file")
	models := flag.String("models", "", "Directory of .skel files (default: models)")
	images := flag.String("images", "", "Directory of region images to pack (default: images)")
	addr := flag.String("addr", "", "Listen address (default: :8080)")
	size := flag.Int("size", 0, "Default frame size (default: 512)")
	logLevel := flag.String("log", "", "Log level: debug, info, warn, error")
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
	cfg.Resolve(config.Flags{Models: *models, Images: *images, Addr: *addr, Size: *size, LogLevel: *logLevel})
	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	packed, err := atlas.PackDir(atlas.Options{Padding: cfg.Atlas.Padding, MaxSize: cfg.Atlas.MaxSize}, cfg.Paths.Images)
	if packed == nil {
		logging.Fatal("pack atlas", "dir", cfg.Paths.Images, "err", err)
	}
	if err != nil {
		logging.Warn("atlas sources skipped", "err", err)
	}

	lib := library.New()
	if _, err := lib.LoadDir(cfg.Paths.Models, cfg.Render.Workers, skel.WithScale(cfg.Decode.Scale)); err != nil {
		logging.Warn("models skipped", "err", err)
	}
	for _, name := range lib.Names() {
		data, _ := lib.Get(name)
		if err := data.BindAtlas(packed); err != nil {
			logging.Warn("model not bound", "model", name, "err", err)
			lib.Remove(name)
		}
	}

	render := batch.Config{
		Atlas: packed,
		Render: raster.Options{
			Size:        cfg.Render.Size,
			Supersample: cfg.Render.Supersample,
			Margin:      cfg.Render.Margin,
		},
	}
	s := viewer.New(lib, render, cfg.Render.FPS)
	if err := s.ListenAndServe(cfg.Server.Addr); err != nil {
		logging.Fatal("server", "err", err)
	}
}

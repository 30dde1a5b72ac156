package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"skel-runtime/internal/atlas"
	"skel-runtime/internal/batch"
	"skel-runtime/internal/config"
	"skel-runtime/internal/library"
	"skel-runtime/internal/logging"
	"skel-runtime/internal/raster"
	"skel-runtime/internal/skel"
	"skel-runtime/internal/skeleton"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.toml file")
	models := flag.String("models", "", "Directory of .skel files (default: models)")
	images := flag.String("images", "", "Directory of region images to pack (default: images)")
	atlasFile := flag.String("atlas", "", "Use this atlas description instead of packing -images")
	outputDir := flag.String("output", "", "Output directory (default: out)")
	animName := flag.String("anim", "", "Animation to render; \"all\" renders every animation, empty the setup pose")
	at := flag.Float64("time", -1, "Render a single frame at this time instead of the whole animation")
	skin := flag.String("skin", "", "Skin to activate")
	fps := flag.Int("fps", 0, "Frames per second for animation sequences (default: 30)")
	size := flag.Int("size", 0, "Output image size (default: 512)")
	supersample := flag.Int("supersample", 0, "Supersampling factor (default: 2)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	scale := flag.Float64("scale", 0, "Decode scale (default: 1)")
	logLevel := flag.String("log", "", "Log level: debug, info, warn, error")
	testN := flag.Int("test", 0, "Render only the first N models for testing")

	flag.Parse()

	// Load config
	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		Models:      *models,
		Images:      *images,
		Output:      *outputDir,
		Size:        *size,
		Supersample: *supersample,
		Workers:     *workers,
		Scale:       *scale,
		LogLevel:    *logLevel,
	})
	if *fps > 0 {
		cfg.Render.FPS = *fps
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Atlas
	pages, err := loadAtlas(cfg, *atlasFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading atlas: %v\n", err)
		os.Exit(1)
	}

	// Models
	lib := library.New()
	n, err := lib.LoadDir(cfg.Paths.Models, cfg.Render.Workers, skel.WithScale(cfg.Decode.Scale))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	fmt.Printf("Models: %d loaded from %s\n", n, cfg.Paths.Models)

	names := lib.Names()
	if *testN > 0 && *testN < len(names) {
		names = names[:*testN]
	}

	var jobs []batch.Job
	for _, name := range names {
		data, _ := lib.Get(name)
		if err := data.BindAtlas(pages); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", name, err)
			continue
		}
		js, err := modelJobs(name, data, *animName, *skin, float32(*at), cfg.Render.FPS)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", name, err)
			continue
		}
		jobs = append(jobs, js...)
	}

	if len(jobs) == 0 {
		fmt.Println("No frames to render.")
		os.Exit(0)
	}

	// Print summary
	fmt.Printf("Skeleton renderer → WebP\n")
	fmt.Printf("Frames: %d, Workers: %d\n", len(jobs), cfg.Render.Workers)
	fmt.Printf("Output: %s\n", cfg.Paths.Output)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	// Run batch
	batchCfg := batch.Config{
		OutputDir: cfg.Paths.Output,
		Atlas:     pages,
		Render: raster.Options{
			Size:        cfg.Render.Size,
			Supersample: cfg.Render.Supersample,
			Margin:      cfg.Render.Margin,
		},
		Scale:   cfg.Decode.Scale,
		Workers: cfg.Render.Workers,
	}

	results := batch.Run(batchCfg, jobs)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var errors []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Rendered: %d/%d\n", success, len(jobs))

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := min(len(errors), 20)
		for _, e := range errors[:limit] {
			fmt.Printf("  %s %s@%.3f: %s\n", e.Name, e.Animation, e.Time, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.Paths.Output, "manifest.json")
	os.MkdirAll(cfg.Paths.Output, 0755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func loadAtlas(cfg config.Config, description string) (batch.Pages, error) {
	if description != "" {
		d, err := atlas.LoadDescription(description)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Atlas: %s\n", description)
		return d, nil
	}
	packed, err := atlas.PackDir(atlas.Options{Padding: cfg.Atlas.Padding, MaxSize: cfg.Atlas.MaxSize}, cfg.Paths.Images)
	if packed == nil {
		return nil, err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	fmt.Printf("Atlas: %d regions packed on %dx%d\n", packed.Len(), packed.Size, packed.Size)
	return packed, nil
}

// modelJobs turns the -anim/-time selection into jobs for one model.
func modelJobs(name string, data *skeleton.Data, animName, skin string, at float32, fps int) ([]batch.Job, error) {
	if animName == "" {
		return []batch.Job{{Name: name, Data: data, Skin: skin}}, nil
	}
	var anims []string
	if animName == "all" {
		for _, a := range data.Animations {
			anims = append(anims, a.Name)
		}
	} else {
		anims = []string{animName}
	}

	var jobs []batch.Job
	for _, a := range anims {
		if at >= 0 {
			if data.FindAnimation(a) == nil {
				return nil, fmt.Errorf("animation %q: %w", a, skeleton.ErrNotFound)
			}
			jobs = append(jobs, batch.Job{
				Name: name, Data: data, Skin: skin, Animation: a, Time: at,
				Output: filepath.Join(name, fmt.Sprintf("%s_%.3f.webp", a, at)),
			})
			continue
		}
		js, err := batch.AnimationJobs(name, data, a, fps, skin)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, js...)
	}
	return jobs, nil
}

package batch

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"

	"skel-runtime/internal/anim"
	"skel-runtime/internal/postprocess"
	"skel-runtime/internal/raster"
	"skel-runtime/internal/skel"
	"skel-runtime/internal/skeleton"
)

// Pages is an atlas that can both bind attachments and supply page images.
// *atlas.Packed and *atlas.Description implement it.
type Pages interface {
	skeleton.RegionSource
	PageImages() []*image.NRGBA
}

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir string
	Atlas     Pages // nil renders flat tints
	Render    raster.Options
	Scale     float32
	Workers   int
}

// Job renders one frame. Data, when set, is used instead of decoding Path;
// it must already be bound if an atlas is in use.
type Job struct {
	Name      string
	Path      string
	Data      *skeleton.Data
	Skin      string
	Animation string
	Time      float32
	Loop      bool
	Frame     *raster.Bounds
	Output    string // relative to Config.OutputDir; default <Name>.webp
}

// Result holds the outcome of processing one job.
type Result struct {
	Name      string
	Animation string
	Time      float32
	Output    string
	Success   bool
	Error     string
}

// Run processes all jobs using a worker pool. Results are in job order.
func Run(cfg Config, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	Each(cfg.Workers, len(jobs), "render", func(i int) {
		results[i] = processJob(cfg, jobs[i])
	})
	return results
}

func processJob(cfg Config, job Job) Result {
	res := Result{Name: job.Name, Animation: job.Animation, Time: job.Time, Output: job.Output}
	if res.Output == "" {
		res.Output = job.Name + ".webp"
	}

	data := job.Data
	if data == nil {
		var err error
		data, err = Decode(cfg, job.Name, job.Path)
		if err != nil {
			res.Error = err.Error()
			return res
		}
	}

	inst := data.Instantiate()
	if job.Skin != "" {
		if err := inst.SetSkin(job.Skin); err != nil {
			res.Error = err.Error()
			return res
		}
	}
	if err := anim.PoseAt(inst, job.Animation, job.Time, job.Loop); err != nil {
		res.Error = err.Error()
		return res
	}

	img := RenderInstance(cfg, inst, job.Frame)

	outPath := filepath.Join(cfg.OutputDir, res.Output)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		res.Error = err.Error()
		return res
	}
	if err := writeWebP(outPath, img); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	return res
}

// Decode parses a skeleton file with the batch scale and binds it to the
// batch atlas, if any.
func Decode(cfg Config, name, path string) (*skeleton.Data, error) {
	opts := []skel.Option{skel.WithName(name)}
	if cfg.Scale > 0 {
		opts = append(opts, skel.WithScale(cfg.Scale))
	}
	data, err := skel.Parse(path, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Atlas != nil {
		if err := data.BindAtlas(cfg.Atlas); err != nil {
			return nil, fmt.Errorf("batch: %s: %w", name, err)
		}
	}
	return data, nil
}

// RenderInstance rasterizes a posed instance and downsamples the
// supersampled result.
func RenderInstance(cfg Config, inst *skeleton.Instance, frame *raster.Bounds) *image.NRGBA {
	var pages []*image.NRGBA
	if cfg.Atlas != nil {
		pages = cfg.Atlas.PageImages()
	}
	opts := cfg.Render
	if frame != nil {
		opts.Frame = frame
	}
	img := raster.Render(inst.DrawList(), pages, opts)

	// Post-processing: supersample downsample
	if opts.Supersample > 1 {
		img = postprocess.Downsample(img, img.Bounds().Dx()/opts.Supersample)
	}
	return img
}

// EncodeWebP writes img as lossless WebP.
func EncodeWebP(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("WebP encode: %w", err)
	}
	return nil
}

func writeWebP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := EncodeWebP(f, img); err != nil {
		return err
	}
	return f.Close()
}

// AnimationJobs expands one animation into a job per frame at fps, all
// sharing the bounds of the whole animation so frames line up. data must
// already be bound if an atlas is in use.
func AnimationJobs(name string, data *skeleton.Data, animName string, fps int, skin string) ([]Job, error) {
	a := data.FindAnimation(animName)
	if a == nil {
		return nil, fmt.Errorf("batch: animation %q: %w", animName, skeleton.ErrNotFound)
	}
	if fps <= 0 {
		fps = 30
	}
	n := max(int(math.Ceil(float64(a.Duration)*float64(fps))), 1)

	inst := data.Instantiate()
	if skin != "" {
		if err := inst.SetSkin(skin); err != nil {
			return nil, err
		}
	}

	jobs := make([]Job, n)
	var frame raster.Bounds
	haveFrame := false
	for i := range jobs {
		t := float32(i) / float32(fps)
		if err := anim.PoseAt(inst, animName, t, false); err != nil {
			return nil, err
		}
		if b, ok := raster.Fit(inst.DrawList()); ok {
			if haveFrame {
				frame = frame.Union(b)
			} else {
				frame, haveFrame = b, true
			}
		}
		jobs[i] = Job{
			Name:      name,
			Data:      data,
			Skin:      skin,
			Animation: animName,
			Time:      t,
			Output:    filepath.Join(name, fmt.Sprintf("%s_%04d.webp", animName, i)),
		}
	}
	if haveFrame {
		for i := range jobs {
			jobs[i].Frame = &frame
		}
	}
	return jobs, nil
}

// Command gsrender renders trained 3D Gaussian Splatting models.
//
// A model directory holds point_cloud/iteration_30000/point_cloud.ply
// (optionally .zst or .gz compressed) and cameras.json. Every camera is
// rendered to <model>/test_out/<img_name>.<format>.
//
//	gsrender -model ./models/garden -resolution 1920x1080 -bench 10
//	gsrender -models-dir ./models -format png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/gsplat"
	"github.com/gogpu/gsplat/imageio"
	"github.com/gogpu/gsplat/internal/shaders"
	"github.com/gogpu/gsplat/plyio"
)

// config holds the parsed command line.
type config struct {
	model       string
	modelsDir   string
	resolution  plyio.Resolution
	bench       int
	format      imageio.Format
	maxRendered int
	maxTiles    int
	background  [3]float32
	workers     int
	focal       gsplat.FocalMode
	emitSPIRV   string
	verbose     bool
}

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "gsrender:", err)
		os.Exit(2)
	}
	if cfg.verbose {
		gsplat.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	if err := run(context.Background(), cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "gsrender:", err)
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (*config, error) {
	cfg := &config{}
	var (
		resolution = fs.String("resolution", "", "render size WIDTHxHEIGHT (e.g. 1920x1080); default is each camera's size")
		format     = fs.String("format", "ppm", "output format: ppm, png, jpg, bmp or tiff")
		background = fs.String("bg", "0,0,0", "background color as linear r,g,b in [0,1]")
		focal      = fs.String("focal", "native", "focal handling for -resolution: native or rescale")
	)
	fs.StringVar(&cfg.model, "model", "", "path to a single model directory")
	fs.StringVar(&cfg.modelsDir, "models-dir", "./models", "directory containing model directories")
	fs.IntVar(&cfg.bench, "bench", -1, "timed renders per camera after warm-up; -1 means 10 with -model and 0 otherwise")
	fs.IntVar(&cfg.maxRendered, "max-rendered", 1<<27, "maximum (Gaussian, tile) instances per frame")
	fs.IntVar(&cfg.maxTiles, "max-tiles", 1<<20, "maximum tiles per frame")
	fs.IntVar(&cfg.workers, "workers", 0, "worker goroutines; 0 means GOMAXPROCS")
	fs.StringVar(&cfg.emitSPIRV, "emit-spirv", "", "write the compiled compute kernels as SPIR-V into this directory and exit")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if *resolution != "" {
		if cfg.resolution, err = plyio.ParseResolution(*resolution); err != nil {
			return nil, err
		}
	}
	if cfg.format, err = imageio.ParseFormat(*format); err != nil {
		return nil, err
	}
	if cfg.background, err = parseBackground(*background); err != nil {
		return nil, err
	}
	switch *focal {
	case "native":
		cfg.focal = gsplat.FocalNative
	case "rescale":
		cfg.focal = gsplat.FocalRescale
	default:
		return nil, fmt.Errorf("unknown focal mode %q", *focal)
	}
	if cfg.bench < 0 {
		cfg.bench = 0
		if cfg.model != "" {
			cfg.bench = 10
		}
	}
	return cfg, nil
}

func parseBackground(s string) ([3]float32, error) {
	var bg [3]float32
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return bg, fmt.Errorf("background must be r,g,b, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil || v < 0 || v > 1 {
			return bg, fmt.Errorf("background channel %q must be a number in [0,1]", p)
		}
		bg[i] = float32(v)
	}
	return bg, nil
}

func run(ctx context.Context, cfg *config, out io.Writer) error {
	p := message.NewPrinter(language.English)

	if cfg.emitSPIRV != "" {
		return emitSPIRV(cfg.emitSPIRV, p, out)
	}
	if cfg.model != "" {
		return renderModel(ctx, cfg, cfg.model, p, out)
	}

	entries, err := os.ReadDir(cfg.modelsDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := renderModel(ctx, cfg, filepath.Join(cfg.modelsDir, e.Name()), p, out); err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
	}
	return nil
}

// findScene returns the first existing point cloud of a model directory.
func findScene(model string) (string, error) {
	base := filepath.Join(model, "point_cloud", "iteration_30000", "point_cloud.ply")
	for _, path := range []string{base, base + ".zst", base + ".gz"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no point cloud at %s", base)
}

func renderModel(ctx context.Context, cfg *config, model string, p *message.Printer, out io.Writer) error {
	scenePath, err := findScene(model)
	if err != nil {
		return err
	}
	p.Fprintln(out, scenePath)
	scene, err := plyio.LoadScene(scenePath)
	if err != nil {
		return err
	}
	p.Fprintf(out, "num_vertex = %d\n", scene.Len())

	cameraPath := filepath.Join(model, "cameras.json")
	p.Fprintln(out, cameraPath)
	cams, err := plyio.LoadCameras(cameraPath, cfg.resolution)
	if err != nil {
		return err
	}

	imageDir := filepath.Join(model, "test_out")
	if err := os.MkdirAll(imageDir, 0o750); err != nil {
		return err
	}

	r, err := gsplat.NewRasterizer(scene,
		gsplat.WithCapacity(cfg.maxRendered, cfg.maxTiles),
		gsplat.WithBackground(cfg.background[0], cfg.background[1], cfg.background[2]),
		gsplat.WithWorkers(cfg.workers),
		gsplat.WithFocalMode(cfg.focal),
	)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close()
	}()

	for i := range cams {
		cam := &cams[i]
		p.Fprintf(out, "image name = %s\n", cam.ImageName)

		img, err := r.Render(ctx, cam) // warm up
		if errors.Is(err, gsplat.ErrCapacityExceeded) {
			p.Fprintf(out, "skipping %s: %v\n", cam.ImageName, err)
			continue
		}
		if err != nil {
			return err
		}

		if cfg.bench > 0 {
			start := time.Now()
			for range cfg.bench {
				if err := r.RenderInto(ctx, cam, img); err != nil {
					return err
				}
			}
			elapsed := time.Since(start)
			perFrame := elapsed / time.Duration(cfg.bench)
			st := r.Stats()
			p.Fprintf(out, "elapsed time = %.3f ms\n", float64(perFrame.Microseconds())/1000)
			p.Fprintf(out, "fps = %.2f\n", float64(cfg.bench)/elapsed.Seconds())
			p.Fprintf(out, "instances = %d, visible = %d, active tiles = %d/%d\n",
				st.Rendered, st.Visible, st.ActiveTiles, st.Tiles)
		}

		path := filepath.Join(imageDir, cam.ImageName+cfg.format.Ext())
		if err := imageio.Save(path, img); err != nil {
			return err
		}
	}
	return nil
}

func emitSPIRV(dir string, p *message.Printer, out io.Writer) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	for _, name := range shaders.Names() {
		spirv, err := shaders.Compile(name)
		if err != nil {
			return err
		}
		layout, err := shaders.Layout(name)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, name+".spv")
		if err := os.WriteFile(path, spirv, 0o600); err != nil {
			return err
		}
		p.Fprintf(out, "%s: %d bytes (entry point %s)\n", path, len(spirv), shaders.EntryPoint(name))
		for _, b := range layout {
			p.Fprintf(out, "  @binding(%d) %s usage=%d\n", b.Entry.Binding, b.Name, uint64(b.Usage()))
		}
	}
	return nil
}

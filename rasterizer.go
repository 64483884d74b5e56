package gsplat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gsplat/internal/composite"
	"github.com/gogpu/gsplat/internal/parallel"
	"github.com/gogpu/gsplat/internal/preprocess"
	"github.com/gogpu/gsplat/internal/ranges"
	"github.com/gogpu/gsplat/internal/sorter"
	"github.com/gogpu/gsplat/internal/splat"
	"github.com/gogpu/gsplat/internal/tile"
)

// chunksPerWorker is how many work items each stage is split into per
// worker, so that uneven chunks can be stolen by idle workers.
const chunksPerWorker = 4

// FrameStats describes the most recent successful frame.
type FrameStats struct {
	// Rendered is the number of (Gaussian, tile) instances.
	Rendered uint64

	// Visible is the number of Gaussians with at least one instance.
	Visible int

	// Tiles is the size of the tile grid; ActiveTiles counts the tiles
	// with a non-empty range.
	Tiles, ActiveTiles int

	// KeyBits is the number of significant sort key bits.
	KeyBits int

	// Blended and Saturated are the compositor counters.
	Blended, Saturated uint64

	// Stage timings.
	Preprocess, Sort, Ranges, Composite, Total time.Duration
}

// Rasterizer renders a Scene with the tile-based sort-and-blend pipeline.
// All buffers are sized from the capacity options in NewRasterizer and
// reused by every frame.
//
// Frames are serialized: concurrent Render calls on one Rasterizer wait
// for each other. Use one Rasterizer per goroutine for parallel frames.
type Rasterizer struct {
	mu sync.Mutex

	opts  Options
	scene *Scene

	pool       *parallel.WorkerPool
	preprocess *preprocess.Preprocessor
	sorter     *sorter.Sorter
	ranges     *ranges.Extractor
	compositor *composite.Compositor

	splats     []splat.Splat
	keys       []uint64
	values     []uint32
	sortedKeys []uint64
	sortedVals []uint32
	tileRanges []splat.Range

	stats  FrameStats
	closed bool
}

// NewRasterizer allocates the buffers for rendering scene. The Rasterizer
// owns a worker pool; call Close to release it.
func NewRasterizer(scene *Scene, opts ...Option) (*Rasterizer, error) {
	if scene == nil {
		return nil, fmt.Errorf("%w: nil scene", ErrInvalidScene)
	}
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	workers := o.workers()
	chunks := workers * chunksPerWorker
	pool := parallel.NewWorkerPool(workers)

	r := &Rasterizer{
		opts:       o,
		scene:      scene,
		pool:       pool,
		preprocess: preprocess.New(pool, chunks),
		sorter:     sorter.New(pool, chunks, o.MaxRendered),
		ranges:     ranges.New(pool, chunks),
		compositor: composite.New(pool, chunks),
		splats:     make([]splat.Splat, scene.Len()),
		keys:       make([]uint64, o.MaxRendered),
		values:     make([]uint32, o.MaxRendered),
		sortedKeys: make([]uint64, o.MaxRendered),
		sortedVals: make([]uint32, o.MaxRendered),
		tileRanges: make([]splat.Range, o.MaxTiles),
	}

	Logger().Info("gsplat: rasterizer created",
		"gaussians", scene.Len(),
		"maxRendered", o.MaxRendered,
		"maxTiles", o.MaxTiles,
		"workers", workers,
		"bufferBytes", r.BufferBytes())

	return r, nil
}

// Options returns the configuration the rasterizer was built with.
func (r *Rasterizer) Options() Options {
	return r.opts
}

// BufferBytes returns the size of all preallocated frame buffers.
func (r *Rasterizer) BufferBytes() int {
	const (
		splatBytes = 4*10 + 4 + 4
		rangeBytes = 8
	)
	return len(r.splats)*splatBytes +
		(len(r.keys)+len(r.sortedKeys))*8 +
		(len(r.values)+len(r.sortedVals))*4 +
		len(r.tileRanges)*rangeBytes +
		r.sorter.ScratchBytes()
}

// Render renders cam into a new image.
func (r *Rasterizer) Render(ctx context.Context, cam *Camera) (*Image, error) {
	if cam == nil {
		return nil, fmt.Errorf("%w: nil camera", ErrInvalidCamera)
	}
	if err := cam.Validate(); err != nil {
		return nil, err
	}
	img := NewImage(cam.Width, cam.Height)
	if err := r.RenderInto(ctx, cam, img); err != nil {
		return nil, err
	}
	return img, nil
}

// RenderInto renders cam into img, which must already have the camera's
// size. On error img is left untouched. ctx is checked between stages;
// a running stage is never interrupted, and once compositing starts the
// frame runs to completion.
func (r *Rasterizer) RenderInto(ctx context.Context, cam *Camera, img *Image) error {
	if cam == nil {
		return fmt.Errorf("%w: nil camera", ErrInvalidCamera)
	}
	if err := cam.Validate(); err != nil {
		return err
	}
	if img == nil || !img.fits(cam.Width, cam.Height) {
		return fmt.Errorf("gsplat: image does not match camera size %dx%d", cam.Width, cam.Height)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log := Logger()
	o := &r.opts
	grid := tile.NewGrid(cam.Width, cam.Height, o.TileWidth, o.TileHeight)
	if grid.Count() > o.MaxTiles {
		err := &CapacityError{Resource: ResourceTiles, Required: uint64(grid.Count()), Capacity: uint64(o.MaxTiles)}
		log.Warn("gsplat: frame rejected", "camera", cam.ID, "err", err)
		return err
	}

	start := time.Now()
	view := cam.view(o.FocalMode)
	params := preprocess.Params{
		Grid:           grid,
		FootprintSigma: o.FootprintSigma,
		LowPass:        o.LowPass,
		SHDegree:       o.SHDegree,
	}
	res := r.preprocess.Run(&r.scene.in, &view, &params, &preprocess.Output{
		Splats: r.splats,
		Keys:   r.keys,
		Values: r.values,
	})
	tPre := time.Now()

	if res.Required >= uint64(o.MaxRendered) {
		err := &CapacityError{Resource: ResourceInstances, Required: res.Required, Capacity: uint64(o.MaxRendered)}
		log.Warn("gsplat: frame rejected", "camera", cam.ID, "err", err)
		return err
	}
	n := int(res.Required)
	if err := ctx.Err(); err != nil {
		return err
	}

	bits := splat.KeyBits(grid.Count())
	r.sorter.Sort(r.keys, r.values, r.sortedKeys, r.sortedVals, n, bits)
	tSort := time.Now()

	table := r.tileRanges[:grid.Count()]
	active := r.ranges.Identify(r.sortedKeys, n, table)
	tRanges := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}

	cnt := r.compositor.Render(&composite.Frame{
		Grid:   grid,
		Splats: r.splats,
		Values: r.sortedVals[:n],
		Ranges: table,
		Pix:    img.Pix,
	}, &composite.Params{
		Background:       o.Background,
		TransmittanceMin: o.TransmittanceMin,
		AlphaMin:         o.AlphaMin,
		AlphaMax:         o.AlphaMax,
	})
	end := time.Now()

	r.stats = FrameStats{
		Rendered:    res.Required,
		Visible:     res.Visible,
		Tiles:       grid.Count(),
		ActiveTiles: active,
		KeyBits:     bits,
		Blended:     cnt.Blended,
		Saturated:   cnt.Saturated,
		Preprocess:  tPre.Sub(start),
		Sort:        tSort.Sub(tPre),
		Ranges:      tRanges.Sub(tSort),
		Composite:   end.Sub(tRanges),
		Total:       end.Sub(start),
	}

	log.Debug("gsplat: frame rendered",
		"camera", cam.ID,
		"size", fmt.Sprintf("%dx%d", cam.Width, cam.Height),
		"rendered", n,
		"visible", res.Visible,
		"activeTiles", active,
		"total", r.stats.Total)

	return nil
}

// Stats returns the statistics of the last successful frame.
func (r *Rasterizer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Close stops the worker pool. Render returns ErrClosed afterwards.
// Close is idempotent.
func (r *Rasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.pool.Close()
	return nil
}

// Package composite blends the sorted splats of each tile into pixels,
// front to back.
package composite

import (
	"math"
	"sync/atomic"

	"github.com/gogpu/gsplat/internal/parallel"
	"github.com/gogpu/gsplat/internal/splat"
	"github.com/gogpu/gsplat/internal/tile"
)

// Params controls the blending approximations.
type Params struct {
	// Background is the linear RGB color behind all splats.
	Background [3]float32

	// TransmittanceMin stops a pixel's loop once its transmittance falls
	// below this value.
	TransmittanceMin float32

	// AlphaMin skips splat contributions whose alpha is below this value.
	AlphaMin float32

	// AlphaMax caps the alpha of a single splat contribution.
	AlphaMax float32
}

// Frame is everything the compositor reads and writes for one image.
type Frame struct {
	Grid tile.Grid

	// Splats is indexed by the sorted values.
	Splats []splat.Splat

	// Values holds the sorted splat indices; Ranges index into it.
	Values []uint32

	// Ranges holds one entry per tile of Grid.
	Ranges []splat.Range

	// Pix receives Grid.Width×Grid.Height interleaved RGB bytes, row-major.
	Pix []uint8
}

// Counters reports per-frame blending work.
type Counters struct {
	// Blended is the number of (pixel, splat) contributions accumulated.
	Blended uint64

	// Saturated is the number of pixels that stopped early because their
	// transmittance fell below the threshold.
	Saturated uint64
}

// Compositor renders frames on a worker pool, parallel over tiles.
type Compositor struct {
	pool      *parallel.WorkerPool
	chunks    int
	blended   atomic.Uint64
	saturated atomic.Uint64
}

// New returns a Compositor that splits the tiles of a frame into at most
// chunks work items.
func New(pool *parallel.WorkerPool, chunks int) *Compositor {
	return &Compositor{pool: pool, chunks: max(chunks, 1)}
}

// Render writes every pixel of f.Pix.
func (c *Compositor) Render(f *Frame, p *Params) Counters {
	c.blended.Store(0)
	c.saturated.Store(0)

	c.pool.For(f.Grid.Count(), c.chunks, func(_, lo, hi int) {
		var cnt Counters
		for id := lo; id < hi; id++ {
			renderTile(f, p, uint32(id), &cnt) //nolint:gosec // tile count bounded by MaxTiles
		}
		c.blended.Add(cnt.Blended)
		c.saturated.Add(cnt.Saturated)
	})

	return Counters{
		Blended:   c.blended.Load(),
		Saturated: c.saturated.Load(),
	}
}

func renderTile(f *Frame, p *Params, id uint32, cnt *Counters) {
	x0, y0, x1, y1 := f.Grid.Bounds(id)
	r := f.Ranges[id]
	values := f.Values[r.Start:r.End]
	stride := f.Grid.Width * 3

	for py := y0; py < y1; py++ {
		row := f.Pix[py*stride:]
		for px := x0; px < x1; px++ {
			rgb := Pixel(f.Splats, values, float32(px), float32(py), p, cnt)
			o := px * 3
			row[o] = ToByte(rgb[0])
			row[o+1] = ToByte(rgb[1])
			row[o+2] = ToByte(rgb[2])
		}
	}
}

// Pixel blends the splats named by values, in order, at pixel position
// (x, y) and returns the linear color including the background.
func Pixel(splats []splat.Splat, values []uint32, x, y float32, p *Params, cnt *Counters) [3]float32 {
	var col [3]float32
	t := float32(1)

	for _, v := range values {
		s := &splats[v]
		dx := s.X - x
		dy := s.Y - y
		power := -0.5*(s.ConicA*dx*dx+s.ConicC*dy*dy) - s.ConicB*dx*dy
		if power > 0 {
			continue
		}

		alpha := min(p.AlphaMax, s.Opacity*float32(math.Exp(float64(power))))
		if alpha < p.AlphaMin {
			continue
		}

		w := t * alpha
		col[0] += w * s.R
		col[1] += w * s.G
		col[2] += w * s.B
		t *= 1 - alpha
		cnt.Blended++

		if t < p.TransmittanceMin {
			cnt.Saturated++
			break
		}
	}

	col[0] += t * p.Background[0]
	col[1] += t * p.Background[1]
	col[2] += t * p.Background[2]
	return col
}

// ToByte clamps a linear channel value to [0, 1] and scales it to
// [0, 255], truncating the fraction.
func ToByte(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}

// Package preprocess projects Gaussians to screen space and emits one
// (tile, depth) sort key per tile each projected footprint overlaps.
//
// Gaussians are processed independently and in parallel. The only state
// shared between workers is the slot counter: each visible Gaussian
// reserves a contiguous block of output slots with a single atomic add
// and then fills that block without further synchronization.
package preprocess

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/gsplat/internal/parallel"
	"github.com/gogpu/gsplat/internal/splat"
	"github.com/gogpu/gsplat/internal/tile"
)

// guardBand limits how far outside the view frustum the Jacobian of the
// perspective projection is evaluated, in units of tan(fov/2).
const guardBand = 1.3

// minEigenvalueGap floors the eigenvalue discriminant when computing the
// footprint radius.
const minEigenvalueGap = 0.1

// Input is the scene data read by the preprocessor. Slices are flat
// arrays of N records: 3 position floats, 48 SH floats, 1 opacity and
// 6 covariance floats (xx, xy, xz, yy, yz, zz) per Gaussian.
type Input struct {
	Positions   []float32
	SHs         []float32
	Opacities   []float32
	Covariances []float32
}

// Count returns the number of Gaussians in the input.
func (in *Input) Count() int {
	return len(in.Opacities)
}

// View holds the camera parameters resolved for one frame.
type View struct {
	// Rotation and Translation map world points to view space:
	// t = Rotation·p + Translation. View space looks down +z.
	Rotation    mgl32.Mat3
	Translation mgl32.Vec3

	// Center is the camera position in world space.
	Center mgl32.Vec3

	// Fx, Fy are focal lengths and Cx, Cy the principal point, in pixels.
	Fx, Fy float32
	Cx, Cy float32

	// TanFovX, TanFovY are tan(fov/2) of the rendered image.
	TanFovX, TanFovY float32

	Near, Far float32
}

// Params are the per-rasterizer tuning knobs.
type Params struct {
	Grid tile.Grid

	// FootprintSigma is the footprint radius in standard deviations.
	FootprintSigma float32

	// LowPass is added to the diagonal of every 2D covariance so that each
	// splat covers at least about one pixel.
	LowPass float32

	// SHDegree is the spherical-harmonics degree used for color, 0..3.
	SHDegree int
}

// Output is the set of preallocated buffers written by Run.
// Keys and Values have the instance capacity as their length; Splats has
// one entry per Gaussian.
type Output struct {
	Splats []splat.Splat
	Keys   []uint64
	Values []uint32
}

// Result summarizes one preprocessing pass.
type Result struct {
	// Required is the total number of tile instances the frame needs.
	// When Required exceeds the output capacity nothing past capacity
	// was written and the frame must not proceed.
	Required uint64

	// Visible is the number of Gaussians that emitted at least one instance.
	Visible int
}

// Preprocessor runs the projection stage on a worker pool.
type Preprocessor struct {
	pool    *parallel.WorkerPool
	chunks  int
	counter atomic.Uint64
	visible atomic.Int64
}

// New returns a Preprocessor that splits the Gaussians into the given
// number of chunks per pass.
func New(pool *parallel.WorkerPool, chunks int) *Preprocessor {
	return &Preprocessor{pool: pool, chunks: max(chunks, 1)}
}

// Run projects every Gaussian of in and fills out. The slot counter is
// reset at the start of each call.
func (p *Preprocessor) Run(in *Input, view *View, params *Params, out *Output) Result {
	p.counter.Store(0)
	p.visible.Store(0)

	capacity := uint64(len(out.Keys))

	p.pool.For(in.Count(), p.chunks, func(_, lo, hi int) {
		var visible int64
		for i := lo; i < hi; i++ {
			s := &out.Splats[i]
			if !project(in, i, view, params, s) {
				*s = splat.Splat{}
				continue
			}

			rect := params.Grid.Footprint(s.X, s.Y, int(s.Radius))
			count := uint64(rect.Area())
			if count == 0 {
				*s = splat.Splat{}
				continue
			}
			s.Tiles = uint32(count) //nolint:gosec // bounded by grid size
			visible++

			start := p.counter.Add(count) - count
			if start+count > capacity {
				continue
			}
			emit(out, start, uint32(i), s.Depth, rect, params.Grid) //nolint:gosec // Gaussian count fits uint32
		}
		p.visible.Add(visible)
	})

	return Result{
		Required: p.counter.Load(),
		Visible:  int(p.visible.Load()),
	}
}

// emit writes one key/value pair per tile of rect, in row-major tile order,
// starting at slot.
func emit(out *Output, slot uint64, value uint32, depth float32, rect tile.Rect, grid tile.Grid) {
	for ty := rect.MinY; ty < rect.MaxY; ty++ {
		for tx := rect.MinX; tx < rect.MaxX; tx++ {
			out.Keys[slot] = splat.Key{Tile: grid.ID(tx, ty), Depth: depth}.Pack()
			out.Values[slot] = value
			slot++
		}
	}
}

// project computes the screen-space splat of Gaussian i. It reports false
// when the Gaussian is culled by the depth range or has a degenerate
// footprint.
func project(in *Input, i int, view *View, params *Params, s *splat.Splat) bool {
	pos := mgl32.Vec3{in.Positions[3*i], in.Positions[3*i+1], in.Positions[3*i+2]}
	t := view.Rotation.Mul3x1(pos).Add(view.Translation)
	if t.Z() < view.Near || t.Z() > view.Far {
		return false
	}

	a, b, c, ok := projectCovariance(in.Covariances[6*i:6*i+6], t, view)
	if !ok {
		return false
	}
	a += params.LowPass
	c += params.LowPass

	det := a*c - b*b
	if det == 0 || math.IsNaN(float64(det)) {
		return false
	}
	invDet := 1 / det

	mid := 0.5 * (a + c)
	lambda := mid + sqrt32(max(minEigenvalueGap, mid*mid-det))
	// Out-of-range float to int conversion is platform dependent, so
	// non-finite and oversized radii are culled before converting.
	rf := math.Ceil(float64(params.FootprintSigma * sqrt32(lambda)))
	if !(rf > 0 && rf <= math.MaxInt32) {
		return false
	}
	radius := int32(rf)

	invZ := 1 / t.Z()
	dir := pos.Sub(view.Center)
	if l := dir.Len(); l > 0 {
		dir = dir.Mul(1 / l)
	}
	r, g, bl := EvalSH(params.SHDegree, in.SHs[CoeffsPerGaussian*i:CoeffsPerGaussian*(i+1)], dir)

	*s = splat.Splat{
		X:       view.Fx*t.X()*invZ + view.Cx,
		Y:       view.Fy*t.Y()*invZ + view.Cy,
		ConicA:  c * invDet,
		ConicB:  -b * invDet,
		ConicC:  a * invDet,
		Opacity: in.Opacities[i],
		R:       r,
		G:       g,
		B:       bl,
		Depth:   t.Z(),
		Radius:  radius,
	}
	return true
}

// projectCovariance propagates a 3D covariance through the view rotation
// and the local affine approximation of the perspective projection at t.
// It returns the upper triangle (a, b, c) of the 2D covariance.
func projectCovariance(cov []float32, t mgl32.Vec3, view *View) (a, b, c float32, ok bool) {
	tz := t.Z()
	limX := guardBand * view.TanFovX
	limY := guardBand * view.TanFovY
	tx := clamp32(t.X()/tz, -limX, limX) * tz
	ty := clamp32(t.Y()/tz, -limY, limY) * tz

	// Column-major, third row zero.
	j := mgl32.Mat3{
		view.Fx / tz, 0, 0,
		0, view.Fy / tz, 0,
		-(view.Fx * tx) / (tz * tz), -(view.Fy * ty) / (tz * tz), 0,
	}
	sigma := mgl32.Mat3{
		cov[0], cov[1], cov[2],
		cov[1], cov[3], cov[4],
		cov[2], cov[4], cov[5],
	}

	m := j.Mul3(view.Rotation)
	cov2 := m.Mul3(sigma).Mul3(m.Transpose())

	a, b, c = cov2.At(0, 0), cov2.At(0, 1), cov2.At(1, 1)
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) || math.IsNaN(float64(c)) {
		return 0, 0, 0, false
	}
	return a, b, c, true
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func clamp32(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}

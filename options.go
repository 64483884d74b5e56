package gsplat

import (
	"fmt"
	"math"
	"runtime"

	"github.com/gogpu/gsplat/internal/tile"
)

// Default capacity bounds. Real scenes should size these explicitly with
// WithCapacity; the driver in cmd/gsrender uses 1<<27 and 1<<20.
const (
	DefaultMaxRendered = 1 << 22
	DefaultMaxTiles    = 1 << 16
)

// FocalMode selects how focal lengths react when a camera is rendered at
// a resolution different from the one it was calibrated for.
type FocalMode int

const (
	// FocalNative keeps fx and fy unchanged and only moves the principal
	// point to the centre of the requested image. Content is cropped or
	// letterboxed instead of scaled.
	FocalNative FocalMode = iota

	// FocalRescale scales fx and fy by the ratio of requested to native
	// width and height, so the field of view is preserved.
	FocalRescale
)

// String returns the mode name.
func (m FocalMode) String() string {
	switch m {
	case FocalNative:
		return "native"
	case FocalRescale:
		return "rescale"
	default:
		return fmt.Sprintf("FocalMode(%d)", int(m))
	}
}

// Options holds the rasterizer configuration. Obtain defaults from
// DefaultOptions and adjust them with Option functions.
type Options struct {
	// TileWidth, TileHeight is the tile size in pixels.
	TileWidth, TileHeight int

	// MaxRendered bounds the number of (Gaussian, tile) instances per frame.
	// A frame fails once its instance count reaches MaxRendered.
	MaxRendered int

	// MaxTiles bounds the number of tiles per frame.
	MaxTiles int

	// Background is the linear RGB color behind all splats.
	Background [3]float32

	// TransmittanceMin ends a pixel's blending loop once its transmittance
	// drops below this value.
	TransmittanceMin float32

	// FootprintSigma is the splat footprint radius in standard deviations.
	FootprintSigma float32

	// LowPass is added to the diagonal of every projected covariance.
	LowPass float32

	// AlphaMin skips contributions below this alpha; AlphaMax caps alpha.
	AlphaMin, AlphaMax float32

	// SHDegree is the spherical-harmonics degree used for color, 0..3.
	SHDegree int

	// Workers is the number of worker goroutines; 0 means GOMAXPROCS.
	Workers int

	// FocalMode selects focal handling for resolution overrides.
	FocalMode FocalMode
}

// DefaultOptions returns the default rasterizer configuration.
func DefaultOptions() Options {
	return Options{
		TileWidth:        tile.DefaultWidth,
		TileHeight:       tile.DefaultHeight,
		MaxRendered:      DefaultMaxRendered,
		MaxTiles:         DefaultMaxTiles,
		TransmittanceMin: 1e-4,
		FootprintSigma:   3,
		LowPass:          0.3,
		AlphaMin:         1.0 / 255,
		AlphaMax:         0.99,
		SHDegree:         3,
		FocalMode:        FocalNative,
	}
}

// Option configures a Rasterizer during creation.
//
// Example:
//
//	r, err := gsplat.NewRasterizer(scene,
//	    gsplat.WithCapacity(1<<24, 1<<16),
//	    gsplat.WithBackground(1, 1, 1),
//	)
type Option func(*Options)

// WithTileSize sets the tile size in pixels.
func WithTileSize(width, height int) Option {
	return func(o *Options) {
		o.TileWidth = width
		o.TileHeight = height
	}
}

// WithCapacity sets the per-frame instance and tile bounds. All buffers
// are sized from these once, at construction.
func WithCapacity(maxRendered, maxTiles int) Option {
	return func(o *Options) {
		o.MaxRendered = maxRendered
		o.MaxTiles = maxTiles
	}
}

// WithBackground sets the linear RGB background color.
func WithBackground(r, g, b float32) Option {
	return func(o *Options) {
		o.Background = [3]float32{r, g, b}
	}
}

// WithTransmittanceMin sets the early-termination threshold.
func WithTransmittanceMin(t float32) Option {
	return func(o *Options) {
		o.TransmittanceMin = t
	}
}

// WithFootprintSigma sets the footprint radius in standard deviations.
func WithFootprintSigma(sigma float32) Option {
	return func(o *Options) {
		o.FootprintSigma = sigma
	}
}

// WithLowPass sets the screen-space covariance dilation.
func WithLowPass(v float32) Option {
	return func(o *Options) {
		o.LowPass = v
	}
}

// WithAlphaRange sets the minimum contributing alpha and the alpha cap.
func WithAlphaRange(minAlpha, maxAlpha float32) Option {
	return func(o *Options) {
		o.AlphaMin = minAlpha
		o.AlphaMax = maxAlpha
	}
}

// WithSHDegree sets the spherical-harmonics degree used for color.
func WithSHDegree(degree int) Option {
	return func(o *Options) {
		o.SHDegree = degree
	}
}

// WithWorkers sets the number of worker goroutines. Zero or negative
// means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

// WithFocalMode selects focal handling for resolution overrides.
func WithFocalMode(m FocalMode) Option {
	return func(o *Options) {
		o.FocalMode = m
	}
}

// workers returns the effective worker count.
func (o *Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

// validate reports the first out-of-range field.
func (o *Options) validate() error {
	switch {
	case o.TileWidth <= 0 || o.TileHeight <= 0:
		return fmt.Errorf("%w: tile size %dx%d", ErrInvalidOptions, o.TileWidth, o.TileHeight)
	case o.MaxRendered <= 0 || o.MaxRendered > math.MaxUint32:
		return fmt.Errorf("%w: MaxRendered %d", ErrInvalidOptions, o.MaxRendered)
	case o.MaxTiles <= 0 || o.MaxTiles > math.MaxUint32:
		return fmt.Errorf("%w: MaxTiles %d", ErrInvalidOptions, o.MaxTiles)
	case !finite(o.TransmittanceMin) || o.TransmittanceMin < 0 || o.TransmittanceMin >= 1:
		return fmt.Errorf("%w: TransmittanceMin %g", ErrInvalidOptions, o.TransmittanceMin)
	case !finite(o.FootprintSigma) || o.FootprintSigma <= 0:
		return fmt.Errorf("%w: FootprintSigma %g", ErrInvalidOptions, o.FootprintSigma)
	case !finite(o.LowPass) || o.LowPass < 0:
		return fmt.Errorf("%w: LowPass %g", ErrInvalidOptions, o.LowPass)
	case !finite(o.AlphaMin) || !finite(o.AlphaMax) || o.AlphaMin < 0 || o.AlphaMax > 1 || o.AlphaMin > o.AlphaMax:
		return fmt.Errorf("%w: alpha range [%g, %g]", ErrInvalidOptions, o.AlphaMin, o.AlphaMax)
	case o.SHDegree < 0 || o.SHDegree > 3:
		return fmt.Errorf("%w: SHDegree %d", ErrInvalidOptions, o.SHDegree)
	case o.FocalMode != FocalNative && o.FocalMode != FocalRescale:
		return fmt.Errorf("%w: %v", ErrInvalidOptions, o.FocalMode)
	}
	for _, c := range o.Background {
		if !finite(c) {
			return fmt.Errorf("%w: background %v", ErrInvalidOptions, o.Background)
		}
	}
	return nil
}

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

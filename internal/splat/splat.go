package splat

// Splat is the screen-space record of one projected Gaussian.
//
// Every tile instance of a Gaussian shares the same Splat; the value
// paired with a sort key is the Gaussian index into the Splat buffer.
type Splat struct {
	// X, Y is the projected 2D mean in pixel coordinates.
	X, Y float32

	// ConicA, ConicB, ConicC hold the inverse 2D covariance
	// [[A B] [B C]] used to evaluate the falloff at a pixel.
	ConicA, ConicB, ConicC float32

	// Opacity is the Gaussian's base opacity in [0, 1].
	Opacity float32

	// R, G, B is the view-dependent linear color.
	R, G, B float32

	// Depth is the view-space z of the mean.
	Depth float32

	// Radius is the footprint radius in pixels. Zero marks a culled Gaussian.
	Radius int32

	// Tiles is the number of tile instances emitted for this Gaussian.
	Tiles uint32
}

// Visible reports whether the Gaussian survived culling.
func (s *Splat) Visible() bool {
	return s.Radius > 0 && s.Tiles > 0
}

// Range is the half-open interval [Start, End) of sorted instances that
// belong to one tile. An empty tile has Start == End.
type Range struct {
	Start, End uint32
}

// Len returns the number of instances in the range.
func (r Range) Len() int {
	return int(r.End - r.Start)
}

// Empty reports whether the range holds no instances.
func (r Range) Empty() bool {
	return r.End <= r.Start
}

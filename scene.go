package gsplat

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/gsplat/internal/preprocess"
)

// Per-Gaussian record sizes of the flat attribute arrays.
const (
	PositionFloats   = 3
	SHFloats         = preprocess.CoeffsPerGaussian
	OpacityFloats    = 1
	CovarianceFloats = 6
)

// Gaussian is one scene primitive in unpacked form.
type Gaussian struct {
	// Position is the world-space mean.
	Position [3]float32

	// SH holds 16 RGB spherical-harmonics coefficients, coefficient k of
	// channel c at index 3*k+c.
	SH [SHFloats]float32

	// Opacity is in [0, 1].
	Opacity float32

	// Covariance is the upper triangle of the symmetric 3×3 world-space
	// covariance: xx, xy, xz, yy, yz, zz.
	Covariance [CovarianceFloats]float32
}

// Scene is an immutable set of Gaussians stored as flat attribute arrays.
// A Scene is safe to share between rasterizers and goroutines.
type Scene struct {
	in preprocess.Input
}

// NewScene validates flat attribute arrays for N Gaussians and wraps them
// in a Scene. N is len(opacities); the other arrays must hold exactly
// 3N, 48N and 6N floats. The slices are retained, not copied, and must
// not be modified afterwards. N = 0 is a valid empty scene.
func NewScene(positions, shs, opacities, covariances []float32) (*Scene, error) {
	n := len(opacities)
	switch {
	case len(positions) != n*PositionFloats:
		return nil, fmt.Errorf("%w: %d position floats for %d Gaussians", ErrInvalidScene, len(positions), n)
	case len(shs) != n*SHFloats:
		return nil, fmt.Errorf("%w: %d SH floats for %d Gaussians", ErrInvalidScene, len(shs), n)
	case len(covariances) != n*CovarianceFloats:
		return nil, fmt.Errorf("%w: %d covariance floats for %d Gaussians", ErrInvalidScene, len(covariances), n)
	case uint64(n) > math.MaxUint32:
		return nil, fmt.Errorf("%w: %d Gaussians", ErrInvalidScene, n)
	}

	for i, o := range opacities {
		if !(o >= 0 && o <= 1) {
			return nil, fmt.Errorf("%w: Gaussian %d opacity %g outside [0, 1]", ErrInvalidScene, i, o)
		}
	}
	for _, arr := range []struct {
		name   string
		values []float32
		stride int
	}{
		{"position", positions, PositionFloats},
		{"SH", shs, SHFloats},
		{"covariance", covariances, CovarianceFloats},
	} {
		for j, v := range arr.values {
			if !finite(v) {
				return nil, fmt.Errorf("%w: Gaussian %d has non-finite %s", ErrInvalidScene, j/arr.stride, arr.name)
			}
		}
	}

	return &Scene{in: preprocess.Input{
		Positions:   positions,
		SHs:         shs,
		Opacities:   opacities,
		Covariances: covariances,
	}}, nil
}

// NewSceneFromGaussians packs gs into flat arrays and validates them.
func NewSceneFromGaussians(gs []Gaussian) (*Scene, error) {
	n := len(gs)
	positions := make([]float32, 0, n*PositionFloats)
	shs := make([]float32, 0, n*SHFloats)
	opacities := make([]float32, 0, n)
	covariances := make([]float32, 0, n*CovarianceFloats)

	for i := range gs {
		g := &gs[i]
		positions = append(positions, g.Position[:]...)
		shs = append(shs, g.SH[:]...)
		opacities = append(opacities, g.Opacity)
		covariances = append(covariances, g.Covariance[:]...)
	}
	return NewScene(positions, shs, opacities, covariances)
}

// Len returns the number of Gaussians.
func (s *Scene) Len() int {
	return s.in.Count()
}

// Gaussian returns a copy of Gaussian i.
func (s *Scene) Gaussian(i int) Gaussian {
	var g Gaussian
	copy(g.Position[:], s.in.Positions[i*PositionFloats:])
	copy(g.SH[:], s.in.SHs[i*SHFloats:])
	g.Opacity = s.in.Opacities[i]
	copy(g.Covariance[:], s.in.Covariances[i*CovarianceFloats:])
	return g
}

// SolidColorSH returns coefficients that evaluate to the linear color
// (r, g, b) from every direction.
func SolidColorSH(r, g, b float32) [SHFloats]float32 {
	var sh [SHFloats]float32
	sh[0] = preprocess.DCFromRGB(r)
	sh[1] = preprocess.DCFromRGB(g)
	sh[2] = preprocess.DCFromRGB(b)
	return sh
}

// IsotropicCovariance returns the covariance of a sphere with standard
// deviation sigma.
func IsotropicCovariance(sigma float32) [CovarianceFloats]float32 {
	v := sigma * sigma
	return [CovarianceFloats]float32{v, 0, 0, v, 0, v}
}

// CovarianceFromScaleRotation builds R·S·Sᵀ·Rᵀ from per-axis standard
// deviations and a rotation quaternion (w, x, y, z). The quaternion is
// normalized first.
func CovarianceFromScaleRotation(scale [3]float32, rot [4]float32) [CovarianceFloats]float32 {
	q := mgl32.Quat{W: rot[0], V: mgl32.Vec3{rot[1], rot[2], rot[3]}}
	if q.Len() == 0 {
		q = mgl32.QuatIdent()
	}
	r := q.Normalize().Mat4().Mat3()
	m := r.Mul3(mgl32.Diag3(mgl32.Vec3(scale)))
	sigma := m.Mul3(m.Transpose())

	return [CovarianceFloats]float32{
		sigma.At(0, 0), sigma.At(0, 1), sigma.At(0, 2),
		sigma.At(1, 1), sigma.At(1, 2),
		sigma.At(2, 2),
	}
}

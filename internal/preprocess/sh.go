package preprocess

import "github.com/go-gl/mathgl/mgl32"

// Real spherical-harmonics basis constants up to degree 3.
const (
	shC0 = 0.28209479177387814
	shC1 = 0.4886025119029199
)

var (
	shC2 = [5]float32{
		1.0925484305920792,
		-1.0925484305920792,
		0.31539156525252005,
		-1.0925484305920792,
		0.5462742152960396,
	}
	shC3 = [7]float32{
		-0.5900435899266435,
		2.890611442640554,
		-0.4570457994644658,
		0.3731763325901154,
		-0.4570457994644658,
		1.445305721320277,
		-0.5900435899266435,
	}
)

// CoeffsPerGaussian is the number of SH floats stored per Gaussian:
// 16 coefficients (degree 3) times RGB, coefficient-major.
const CoeffsPerGaussian = 48

// MaxSHDegree is the highest supported SH degree.
const MaxSHDegree = 3

// EvalSH evaluates view-dependent RGB from the coefficients of one
// Gaussian. sh holds 16 RGB triples, coefficient k channel c at 3*k+c.
// dir is the unit direction from the camera to the Gaussian. The result
// is offset by 0.5 and clamped below at zero.
func EvalSH(degree int, sh []float32, dir mgl32.Vec3) (r, g, b float32) {
	coeff := func(k int) mgl32.Vec3 {
		return mgl32.Vec3{sh[3*k], sh[3*k+1], sh[3*k+2]}
	}

	res := coeff(0).Mul(shC0)
	if degree > 0 {
		x, y, z := dir.X(), dir.Y(), dir.Z()
		res = res.
			Sub(coeff(1).Mul(shC1 * y)).
			Add(coeff(2).Mul(shC1 * z)).
			Sub(coeff(3).Mul(shC1 * x))

		if degree > 1 {
			xx, yy, zz := x*x, y*y, z*z
			xy, yz, xz := x*y, y*z, x*z
			res = res.
				Add(coeff(4).Mul(shC2[0] * xy)).
				Add(coeff(5).Mul(shC2[1] * yz)).
				Add(coeff(6).Mul(shC2[2] * (2*zz - xx - yy))).
				Add(coeff(7).Mul(shC2[3] * xz)).
				Add(coeff(8).Mul(shC2[4] * (xx - yy)))

			if degree > 2 {
				res = res.
					Add(coeff(9).Mul(shC3[0] * y * (3*xx - yy))).
					Add(coeff(10).Mul(shC3[1] * xy * z)).
					Add(coeff(11).Mul(shC3[2] * y * (4*zz - xx - yy))).
					Add(coeff(12).Mul(shC3[3] * z * (2*zz - 3*xx - 3*yy))).
					Add(coeff(13).Mul(shC3[4] * x * (4*zz - xx - yy))).
					Add(coeff(14).Mul(shC3[5] * z * (xx - yy))).
					Add(coeff(15).Mul(shC3[6] * x * (xx - 3*yy)))
			}
		}
	}

	return max(res.X()+0.5, 0), max(res.Y()+0.5, 0), max(res.Z()+0.5, 0)
}

// DCFromRGB returns the degree-0 coefficient that makes EvalSH yield the
// given channel value for every view direction.
func DCFromRGB(v float32) float32 {
	return (v - 0.5) / shC0
}

package gsplat

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/gsplat/internal/preprocess"
)

// Default clip planes applied by NewCamera.
const (
	DefaultNear = 0.01
	DefaultFar  = 100.0
)

// Camera is a pinhole camera. View space looks down +z with +x right
// and +y down, matching image rows.
type Camera struct {
	ID        int
	ImageName string

	// Width, Height is the rendered image size in pixels.
	Width, Height int

	// NativeWidth, NativeHeight is the size the focal lengths were
	// calibrated for. Zero means Width, Height.
	NativeWidth, NativeHeight int

	// Fx, Fy are focal lengths in pixels at the native resolution.
	Fx, Fy float32

	// Position is the camera centre in world space.
	Position [3]float32

	// Rotation is the camera-to-world rotation, row-major: its columns are
	// the camera axes expressed in world space.
	Rotation [3][3]float32

	Near, Far float32
}

// NewCamera returns a camera with the default clip planes.
func NewCamera(id int, imageName string, width, height int, fx, fy float32, position [3]float32, rotation [3][3]float32) Camera {
	return Camera{
		ID:           id,
		ImageName:    imageName,
		Width:        width,
		Height:       height,
		NativeWidth:  width,
		NativeHeight: height,
		Fx:           fx,
		Fy:           fy,
		Position:     position,
		Rotation:     rotation,
		Near:         DefaultNear,
		Far:          DefaultFar,
	}
}

// WithResolution returns a copy of c rendered at width×height. The native
// size is kept so that FocalRescale can scale the focal lengths.
func (c Camera) WithResolution(width, height int) Camera {
	if c.NativeWidth == 0 {
		c.NativeWidth = c.Width
	}
	if c.NativeHeight == 0 {
		c.NativeHeight = c.Height
	}
	c.Width = width
	c.Height = height
	return c
}

// Validate reports whether the camera can be rendered.
func (c *Camera) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidCamera, c.Width, c.Height)
	case c.NativeWidth < 0 || c.NativeHeight < 0:
		return fmt.Errorf("%w: native size %dx%d", ErrInvalidCamera, c.NativeWidth, c.NativeHeight)
	case !finite(c.Fx) || !finite(c.Fy) || c.Fx <= 0 || c.Fy <= 0:
		return fmt.Errorf("%w: focal length (%g, %g)", ErrInvalidCamera, c.Fx, c.Fy)
	case !finite(c.Near) || !finite(c.Far) || c.Near <= 0:
		return fmt.Errorf("%w: near plane %g", ErrInvalidCamera, c.Near)
	case c.Near >= c.Far:
		return fmt.Errorf("%w: near %g >= far %g", ErrInvalidCamera, c.Near, c.Far)
	}
	for _, v := range c.Position {
		if !finite(v) {
			return fmt.Errorf("%w: position %v", ErrInvalidCamera, c.Position)
		}
	}
	for _, row := range c.Rotation {
		for _, v := range row {
			if !finite(v) {
				return fmt.Errorf("%w: rotation %v", ErrInvalidCamera, c.Rotation)
			}
		}
	}
	return nil
}

// Focal returns the focal lengths used to render at the current size.
func (c *Camera) Focal(mode FocalMode) (fx, fy float32) {
	fx, fy = c.Fx, c.Fy
	if mode == FocalRescale {
		if c.NativeWidth > 0 {
			fx *= float32(c.Width) / float32(c.NativeWidth)
		}
		if c.NativeHeight > 0 {
			fy *= float32(c.Height) / float32(c.NativeHeight)
		}
	}
	return fx, fy
}

// view resolves the world-to-view transform and intrinsics. The principal
// point is the image centre.
func (c *Camera) view(mode FocalMode) preprocess.View {
	r := c.Rotation
	camToWorld := mgl32.Mat3FromRows(
		mgl32.Vec3(r[0]),
		mgl32.Vec3(r[1]),
		mgl32.Vec3(r[2]),
	)
	worldToCam := camToWorld.Transpose()
	center := mgl32.Vec3(c.Position)

	fx, fy := c.Focal(mode)
	w, h := float32(c.Width), float32(c.Height)

	return preprocess.View{
		Rotation:    worldToCam,
		Translation: worldToCam.Mul3x1(center).Mul(-1),
		Center:      center,
		Fx:          fx,
		Fy:          fy,
		Cx:          w / 2,
		Cy:          h / 2,
		TanFovX:     w / (2 * fx),
		TanFovY:     h / (2 * fy),
		Near:        c.Near,
		Far:         c.Far,
	}
}

package gsplat

import (
	"errors"
	"fmt"
)

// Errors returned by the rasterizer. All of them are local to one call:
// no image is written when one is returned, and none is retried
// internally.
var (
	// ErrCapacityExceeded reports that a frame needs more tile instances
	// or more tiles than the rasterizer was built for. Retry with larger
	// bounds. Errors of this kind are *CapacityError values.
	ErrCapacityExceeded = errors.New("gsplat: capacity exceeded")

	// ErrInvalidCamera reports unusable camera parameters.
	ErrInvalidCamera = errors.New("gsplat: invalid camera")

	// ErrInvalidScene reports malformed Gaussian attribute arrays.
	ErrInvalidScene = errors.New("gsplat: invalid scene")

	// ErrInvalidOptions reports an out-of-range rasterizer option.
	ErrInvalidOptions = errors.New("gsplat: invalid options")

	// ErrClosed is returned by Render after Close.
	ErrClosed = errors.New("gsplat: rasterizer closed")
)

// Capacity resources named by CapacityError.
const (
	ResourceInstances = "instances"
	ResourceTiles     = "tiles"
)

// CapacityError is returned when a frame exhausts a preallocated resource.
type CapacityError struct {
	// Resource is ResourceInstances or ResourceTiles.
	Resource string

	// Required is how many the frame needs.
	Required uint64

	// Capacity is how many the rasterizer can hold.
	Capacity uint64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("gsplat: capacity exceeded: frame needs %d %s, capacity is %d",
		e.Required, e.Resource, e.Capacity)
}

// Is reports whether target is ErrCapacityExceeded.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

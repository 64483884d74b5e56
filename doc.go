// Package gsplat renders 3D Gaussian splat scenes on the CPU with a
// tile-based sort-and-blend rasterizer.
//
// # Overview
//
// A scene is a cloud of anisotropic 3D Gaussians, each with a position,
// a 3D covariance, an opacity and spherical-harmonics color coefficients.
// A frame is produced in four bulk-parallel stages:
//
//  1. Preprocess: every Gaussian is projected to screen space, culled by
//     the clip planes, assigned a footprint radius, colored from its SH
//     coefficients and emits one sort key per tile it overlaps.
//  2. Sort: all (tile, depth) keys are sorted with a parallel radix sort.
//  3. Ranges: each tile's contiguous run of sorted instances is located.
//  4. Composite: every pixel blends its tile's splats front to back.
//
// # Quick Start
//
//	scene, _ := gsplat.NewScene(positions, shs, opacities, covariances)
//	r, _ := gsplat.NewRasterizer(scene, gsplat.WithCapacity(1<<24, 1<<16))
//	defer r.Close()
//
//	cam := gsplat.NewCamera(0, "view", 1280, 720, fx, fy, pos, rot)
//	img, err := r.Render(ctx, &cam)
//
// # Memory
//
// All frame buffers are allocated by NewRasterizer from the capacity
// options and reused. A frame whose instance count reaches MaxRendered,
// or whose tile grid exceeds MaxTiles, fails with a *CapacityError
// before any pixel is written.
//
// # Coordinate System
//
// View space looks down +z with +x right and +y down. Pixel (x, y) is
// sampled at integer coordinates and the principal point is the image
// centre (Width/2, Height/2).
//
// # Loaders
//
// Package plyio reads scenes from PLY files and cameras from JSON. Package
// imageio writes rendered images. The gsrender command ties them together.
package gsplat

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)

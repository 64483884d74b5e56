// Package tile describes the fixed-size tile grid laid over the output
// image.
//
// The grid divides a width×height image into TileW×TileH tiles. Edge tiles
// may cover fewer pixels when the image is not evenly divisible by the tile
// size. Tiles are numbered in row-major order: id = ty*TilesX + tx.
package tile

// Default tile size in pixels.
const (
	DefaultWidth  = 16
	DefaultHeight = 16
)

// Grid is the tile layout for one frame.
//
// Grid is a small value type; copying it is cheap.
type Grid struct {
	// Width, Height is the image size in pixels.
	Width, Height int

	// TileW, TileH is the tile size in pixels.
	TileW, TileH int

	// TilesX, TilesY is the number of tiles horizontally and vertically.
	TilesX, TilesY int
}

// NewGrid returns the grid covering a width×height image with tiles of
// tileW×tileH pixels. Non-positive dimensions produce an empty grid.
func NewGrid(width, height, tileW, tileH int) Grid {
	if width <= 0 || height <= 0 || tileW <= 0 || tileH <= 0 {
		return Grid{TileW: tileW, TileH: tileH}
	}
	return Grid{
		Width:  width,
		Height: height,
		TileW:  tileW,
		TileH:  tileH,
		TilesX: (width + tileW - 1) / tileW,
		TilesY: (height + tileH - 1) / tileH,
	}
}

// Count returns the total number of tiles in the grid.
func (g Grid) Count() int {
	return g.TilesX * g.TilesY
}

// ID returns the row-major id of the tile at tile coordinates (tx, ty).
func (g Grid) ID(tx, ty int) uint32 {
	return uint32(ty*g.TilesX + tx) //nolint:gosec // tile counts are bounded by MaxTiles
}

// Coords returns the tile coordinates of a tile id.
func (g Grid) Coords(id uint32) (tx, ty int) {
	return int(id) % g.TilesX, int(id) / g.TilesX
}

// Bounds returns the pixel rectangle [x0, x1) × [y0, y1) covered by the
// tile, clipped to the image.
func (g Grid) Bounds(id uint32) (x0, y0, x1, y1 int) {
	tx, ty := g.Coords(id)
	x0 = tx * g.TileW
	y0 = ty * g.TileH
	x1 = min(x0+g.TileW, g.Width)
	y1 = min(y0+g.TileH, g.Height)
	return x0, y0, x1, y1
}

// Rect is a half-open rectangle of tile coordinates.
type Rect struct {
	MinX, MinY int
	MaxX, MaxY int
}

// Area returns the number of tiles in the rectangle.
func (r Rect) Area() int {
	if r.MaxX <= r.MinX || r.MaxY <= r.MinY {
		return 0
	}
	return (r.MaxX - r.MinX) * (r.MaxY - r.MinY)
}

// Footprint returns the tiles overlapped by the square of half-size
// radius centred at (x, y), clamped to the grid. A footprint entirely
// outside the image has zero area.
func (g Grid) Footprint(x, y float32, radius int) Rect {
	r := float32(radius)
	return Rect{
		MinX: clampInt(floorDiv(x-r, g.TileW), 0, g.TilesX),
		MinY: clampInt(floorDiv(y-r, g.TileH), 0, g.TilesY),
		MaxX: clampInt(ceilDiv(x+r, g.TileW), 0, g.TilesX),
		MaxY: clampInt(ceilDiv(y+r, g.TileH), 0, g.TilesY),
	}
}

// coordLimit keeps tile coordinates of far off-screen splats within int range.
const coordLimit = 1 << 30

func floorDiv(v float32, d int) int {
	q := max(-coordLimit, min(v/float32(d), coordLimit))
	i := int(q)
	if float32(i) > q {
		i--
	}
	return i
}

func ceilDiv(v float32, d int) int {
	q := max(-coordLimit, min(v/float32(d), coordLimit))
	i := int(q)
	if float32(i) < q {
		i++
	}
	return i
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

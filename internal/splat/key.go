// Package splat defines the data shared by the rasterization stages:
// the composite (tile, depth) sort key, the per-Gaussian screen-space
// splat record, and the per-tile range into the sorted instance array.
package splat

import "math"

// Key is the composite sort key of one (Gaussian, tile) instance.
//
// Keys are totally ordered by ascending Tile, then ascending Depth,
// so a single sort groups instances by tile and orders each group
// near to far.
type Key struct {
	Tile  uint32
	Depth float32
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool {
	if k.Tile != o.Tile {
		return k.Tile < o.Tile
	}
	return k.Depth < o.Depth
}

// Pack encodes k as a scalar whose unsigned order matches Key order.
// The tile occupies the high 32 bits, the ordered depth the low 32.
func (k Key) Pack() uint64 {
	return uint64(k.Tile)<<32 | uint64(OrderedDepth(k.Depth))
}

// Unpack is the inverse of Pack.
func Unpack(p uint64) Key {
	return Key{
		Tile:  PackedTile(p),
		Depth: depthFromOrdered(uint32(p)),
	}
}

// PackedTile extracts the tile id from a packed key without decoding the depth.
func PackedTile(p uint64) uint32 {
	return uint32(p >> 32)
}

// OrderedDepth maps a float32 onto a uint32 such that unsigned integer
// order equals IEEE-754 numeric order (NaN excluded). Non-negative values
// get their sign bit set; negative values have every bit inverted.
func OrderedDepth(d float32) uint32 {
	b := math.Float32bits(d)
	if b&0x80000000 != 0 {
		return ^b
	}
	return b | 0x80000000
}

func depthFromOrdered(u uint32) float32 {
	if u&0x80000000 != 0 {
		return math.Float32frombits(u &^ 0x80000000)
	}
	return math.Float32frombits(^u)
}

// KeyBits returns the number of significant bits of a packed key for a
// grid with the given tile count: 32 depth bits plus enough bits to
// represent the largest tile id.
func KeyBits(tiles int) int {
	bits := 32
	if tiles <= 1 {
		return bits
	}
	for n := uint64(tiles - 1); n > 0; n >>= 1 {
		bits++
	}
	return bits
}

// Package ranges finds, for every tile, the contiguous run of sorted
// instances that belong to it.
package ranges

import (
	"github.com/gogpu/gsplat/internal/parallel"
	"github.com/gogpu/gsplat/internal/splat"
)

// Extractor fills a tile range table from sorted keys.
type Extractor struct {
	pool   *parallel.WorkerPool
	chunks int
}

// New returns an Extractor that scans in at most chunks parallel pieces.
func New(pool *parallel.WorkerPool, chunks int) *Extractor {
	return &Extractor{pool: pool, chunks: max(chunks, 1)}
}

// Identify resets out to empty ranges and records [Start, End) for every
// tile that appears in the first n sorted keys. Each boundary between
// two consecutive keys with different tiles closes one range and opens
// the next, so every range entry is written by exactly one element and
// the scan needs no synchronization. It returns the number of tiles with
// a non-empty range.
func (e *Extractor) Identify(keys []uint64, n int, out []splat.Range) int {
	clear(out)
	if n <= 0 {
		return 0
	}

	e.pool.For(n, e.chunks, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			t := splat.PackedTile(keys[i])
			if i == 0 {
				out[t].Start = 0
			} else if prev := splat.PackedTile(keys[i-1]); prev != t {
				out[prev].End = uint32(i) //nolint:gosec // n is bounded by the instance capacity
				out[t].Start = uint32(i)  //nolint:gosec // n is bounded by the instance capacity
			}
			if i == n-1 {
				out[t].End = uint32(n) //nolint:gosec // n is bounded by the instance capacity
			}
		}
	})

	active := 0
	for _, r := range out {
		if !r.Empty() {
			active++
		}
	}
	return active
}

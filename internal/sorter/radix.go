// Package sorter implements the global key/value sort of the rasterizer:
// a parallel least-significant-digit radix sort over packed (tile, depth)
// keys.
//
// Each pass splits the input into fixed chunks, histograms the current
// 8-bit digit per chunk in parallel, turns the histograms into per-chunk
// output offsets, and scatters every chunk in parallel. Chunk boundaries
// depend only on the element count, so the sort is stable and its output
// does not depend on goroutine scheduling.
package sorter

import (
	"slices"

	"github.com/gogpu/gsplat/internal/parallel"
)

const (
	digitBits = 8
	buckets   = 1 << digitBits
	digitMask = buckets - 1

	// minChunkLen is the smallest chunk worth handing to a worker.
	minChunkLen = 4096
)

// Chunks returns how many chunks a sort of n elements is split into when
// at most maxChunks are allowed.
func Chunks(n, maxChunks int) int {
	c := (n + minChunkLen - 1) / minChunkLen
	return max(1, min(c, maxChunks))
}

// ScratchSize returns the number of uint32 histogram slots needed to sort
// n elements with at most maxChunks chunks: Chunks(n, maxChunks) × 256.
// The value is non-decreasing in n, so scratch sized for the largest n a
// caller will ever sort serves every smaller sort as well.
func ScratchSize(n, maxChunks int) int {
	return Chunks(n, maxChunks) * buckets
}

// Sorter sorts packed keys with their values. Its scratch space is
// allocated once by New and reused by every Sort call.
//
// A Sorter is not safe for concurrent use.
type Sorter struct {
	pool      *parallel.WorkerPool
	maxChunks int
	hist      []uint32
}

// New returns a Sorter able to sort up to capacity elements.
func New(pool *parallel.WorkerPool, maxChunks, capacity int) *Sorter {
	maxChunks = max(maxChunks, 1)
	return &Sorter{
		pool:      pool,
		maxChunks: maxChunks,
		hist:      make([]uint32, ScratchSize(capacity, maxChunks)),
	}
}

// ScratchBytes returns the size of the sorter's scratch space in bytes.
func (s *Sorter) ScratchBytes() int {
	return len(s.hist) * 4
}

// Sort orders the first n elements of keys/vals by ascending key and
// leaves the result in keysOut/valsOut. Only the low bits of each key
// are examined; keys must be zero above that. keys and vals are used as
// ping-pong space and are clobbered.
//
// Elements with equal keys end up ordered by ascending value, so the
// output is fully determined by the multiset of (key, value) pairs.
func (s *Sorter) Sort(keys []uint64, vals []uint32, keysOut []uint64, valsOut []uint32, n, bits int) {
	if n <= 0 {
		return
	}
	if n > len(keys) || n > len(keysOut) {
		panic("sorter: element count exceeds buffer capacity")
	}

	srcK, srcV := keys[:n], vals[:n]
	dstK, dstV := keysOut[:n], valsOut[:n]

	chunks := Chunks(n, s.maxChunks)
	hist := s.hist[:chunks*buckets]

	for shift := 0; shift < bits; shift += digitBits {
		if !s.histogram(srcK, hist, chunks, shift) {
			continue
		}
		s.scatter(srcK, srcV, dstK, dstV, hist, chunks, shift)
		srcK, dstK = dstK, srcK
		srcV, dstV = dstV, srcV
	}

	if &srcK[0] != &keysOut[0] {
		copy(keysOut[:n], srcK)
		copy(valsOut[:n], srcV)
	}

	orderTies(keysOut[:n], valsOut[:n])
}

// histogram counts digit occurrences per chunk and converts the counts
// into exclusive output offsets, digit-major then chunk-major. It reports
// false when every key shares the same digit, in which case the pass is
// a no-op and can be skipped.
func (s *Sorter) histogram(keys []uint64, hist []uint32, chunks, shift int) bool {
	n := len(keys)
	s.pool.For(n, chunks, func(c, lo, hi int) {
		h := hist[c*buckets : (c+1)*buckets]
		clear(h)
		for _, k := range keys[lo:hi] {
			h[(k>>shift)&digitMask]++
		}
	})

	var sum uint32
	for d := range buckets {
		var total uint32
		for c := range chunks {
			total += hist[c*buckets+d]
		}
		if int(total) == n {
			return false
		}
		for c := range chunks {
			count := hist[c*buckets+d]
			hist[c*buckets+d] = sum
			sum += count
		}
	}
	return true
}

// scatter moves each chunk's elements to their digit offsets.
func (s *Sorter) scatter(srcK []uint64, srcV []uint32, dstK []uint64, dstV []uint32, hist []uint32, chunks, shift int) {
	s.pool.For(len(srcK), chunks, func(c, lo, hi int) {
		offsets := hist[c*buckets : (c+1)*buckets]
		for i := lo; i < hi; i++ {
			d := (srcK[i] >> shift) & digitMask
			o := offsets[d]
			dstK[o] = srcK[i]
			dstV[o] = srcV[i]
			offsets[d] = o + 1
		}
	})
}

// orderTies sorts the values of every run of equal keys.
func orderTies(keys []uint64, vals []uint32) {
	for i := 0; i < len(keys); {
		j := i + 1
		for j < len(keys) && keys[j] == keys[i] {
			j++
		}
		if j-i > 1 {
			slices.Sort(vals[i:j])
		}
		i = j
	}
}

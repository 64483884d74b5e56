package sorter

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/gogpu/gsplat/internal/parallel"
	"github.com/gogpu/gsplat/internal/splat"
)

type pair struct {
	key uint64
	val uint32
}

func newSorter(t testing.TB, capacity int) *Sorter {
	t.Helper()
	pool := parallel.NewWorkerPool(4)
	t.Cleanup(pool.Close)
	return New(pool, 16, capacity)
}

func sortAndCheck(t *testing.T, s *Sorter, pairs []pair, bits int) {
	t.Helper()

	n := len(pairs)
	keys := make([]uint64, n+5)
	vals := make([]uint32, n+5)
	keysOut := make([]uint64, n+5)
	valsOut := make([]uint32, n+5)
	for i, p := range pairs {
		keys[i], vals[i] = p.key, p.val
	}

	s.Sort(keys, vals, keysOut, valsOut, n, bits)

	want := slices.Clone(pairs)
	slices.SortFunc(want, func(a, b pair) int {
		return cmp.Or(cmp.Compare(a.key, b.key), cmp.Compare(a.val, b.val))
	})
	for i := range want {
		if keysOut[i] != want[i].key || valsOut[i] != want[i].val {
			t.Fatalf("position %d: got (%#x,%d), want (%#x,%d)", i, keysOut[i], valsOut[i], want[i].key, want[i].val)
		}
	}
}

func TestSort_Small(t *testing.T) {
	s := newSorter(t, 16)
	sortAndCheck(t, s, []pair{
		{key: 5, val: 0}, {key: 1, val: 1}, {key: 3, val: 2}, {key: 1, val: 3}, {key: 0, val: 4},
	}, 8)
}

func TestSort_Empty(t *testing.T) {
	s := newSorter(t, 4)
	s.Sort(nil, nil, nil, nil, 0, 64)
}

func TestSort_RandomFullWidth(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	const n = 50_000
	s := newSorter(t, n)

	pairs := make([]pair, n)
	for i := range pairs {
		pairs[i] = pair{key: rng.Uint64(), val: uint32(i)}
	}
	sortAndCheck(t, s, pairs, 64)
}

func TestSort_PackedTileDepthKeys(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	const tiles = 300
	const n = 20_000
	s := newSorter(t, n)

	pairs := make([]pair, n)
	for i := range pairs {
		k := splat.Key{Tile: uint32(rng.IntN(tiles)), Depth: 0.01 + rng.Float32()*99}
		pairs[i] = pair{key: k.Pack(), val: uint32(rng.IntN(1000))}
	}
	sortAndCheck(t, s, pairs, splat.KeyBits(tiles))
}

func TestSort_TiesOrderedByValue(t *testing.T) {
	s := newSorter(t, 64)
	key := splat.Key{Tile: 2, Depth: 4}.Pack()
	pairs := []pair{
		{key, 9}, {key, 3}, {splat.Key{Tile: 1, Depth: 8}.Pack(), 1}, {key, 7}, {key, 0},
	}
	sortAndCheck(t, s, pairs, splat.KeyBits(4))
}

func TestSort_SingleDigitSkipsPasses(t *testing.T) {
	// Keys differ only in their two lowest digits: the remaining passes are
	// skipped and the even number of executed passes leaves the result in
	// the input buffers, which exercises the copy back.
	s := newSorter(t, 100)
	pairs := make([]pair, 100)
	for i := range pairs {
		pairs[i] = pair{key: 0xABCD_0000_0000_0000 | uint64(i%3)<<8 | uint64(99-i), val: uint32(i)}
	}
	sortAndCheck(t, s, pairs, 64)
}

func TestSort_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	const n = 30_000
	s := newSorter(t, n)

	keys := make([]uint64, n)
	vals := make([]uint32, n)
	for i := range keys {
		keys[i] = splat.Key{Tile: uint32(rng.IntN(8)), Depth: float32(rng.IntN(4))}.Pack()
		vals[i] = uint32(i)
	}

	run := func() ([]uint64, []uint32) {
		k, v := slices.Clone(keys), slices.Clone(vals)
		ko, vo := make([]uint64, n), make([]uint32, n)
		s.Sort(k, v, ko, vo, n, splat.KeyBits(8))
		return ko, vo
	}

	k1, v1 := run()
	k2, v2 := run()
	if !slices.Equal(k1, k2) || !slices.Equal(v1, v2) {
		t.Error("two sorts of the same input differ")
	}
}

func TestScratchSize(t *testing.T) {
	tests := []struct {
		n, maxChunks int
		want         int
	}{
		{0, 16, 256},
		{1, 16, 256},
		{minChunkLen, 16, 256},
		{minChunkLen + 1, 16, 512},
		{1 << 27, 16, 16 * 256},
	}
	for _, tt := range tests {
		if got := ScratchSize(tt.n, tt.maxChunks); got != tt.want {
			t.Errorf("ScratchSize(%d, %d) = %d, want %d", tt.n, tt.maxChunks, got, tt.want)
		}
	}

	prev := 0
	for n := 0; n < 200_000; n += 777 {
		got := ScratchSize(n, 16)
		if got < prev {
			t.Fatalf("ScratchSize decreased at n=%d", n)
		}
		prev = got
	}
}

func BenchmarkSort_1M(b *testing.B) {
	rng := rand.New(rand.NewPCG(7, 8))
	const n = 1 << 20
	s := newSorter(b, n)

	keys := make([]uint64, n)
	vals := make([]uint32, n)
	for i := range keys {
		keys[i] = splat.Key{Tile: uint32(rng.IntN(8160)), Depth: rng.Float32() * 100}.Pack()
		vals[i] = uint32(i)
	}
	k, v := make([]uint64, n), make([]uint32, n)
	ko, vo := make([]uint64, n), make([]uint32, n)

	b.ResetTimer()
	for range b.N {
		copy(k, keys)
		copy(v, vals)
		s.Sort(k, v, ko, vo, n, splat.KeyBits(8160))
	}
}

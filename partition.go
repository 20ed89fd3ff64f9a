package pthash

import (
	"fmt"
	"math"
	"sort"
)

// bucketIdx indexes a bucket within a part. A negative value means "no
// bucket" (an empty slot).
type bucketIdx int64

const noneBucket bucketIdx = -1

func (b bucketIdx) isNone() bool { return b < 0 }

// KeySource is a restartable, parallel-safe producer of exactly n distinct
// keys. The partitioner makes two passes over it (one to size buckets, one
// to scatter hashes into them), so ForEach must be callable more than once
// and must yield the same keys, in any order, each time.
type KeySource interface {
	Len() int
	ForEach(fn func(key uint64) error) error
}

// SliceKeySource adapts an in-memory slice of keys to KeySource.
type SliceKeySource []uint64

func (s SliceKeySource) Len() int { return len(s) }

func (s SliceKeySource) ForEach(fn func(key uint64) error) error {
	for _, k := range s {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

// partLayout is one part's read-only state once partitioning completes:
// hashes grouped (and, within each bucket, sorted) by bucket, a starts
// prefix sum, and buckets ordered largest-first.
type partLayout struct {
	hashes      []Hash64
	starts      []uint64
	bucketOrder []bucketIdx
}

func (pl *partLayout) bucketLen(b bucketIdx) uint64 {
	return pl.starts[b+1] - pl.starts[b]
}

// layout is the full partitioning result.
type layout struct {
	n     uint64
	parts uint64
	b     uint64 // buckets per part
	s     uint64 // slots per part
	part  []partLayout
}

// numParts picks P so that no part exceeds keysPerShard keys, on average.
func numParts(n uint64, keysPerShard int) uint64 {
	if n == 0 || keysPerShard <= 0 {
		return 1
	}
	kps := uint64(keysPerShard)
	p := (n + kps - 1) / kps
	if p == 0 {
		p = 1
	}
	return p
}

// numBuckets implements spec 4.3's B = ceil(c * n_part / log2(n_part)).
func numBuckets(nPart uint64, c float64) uint64 {
	if nPart <= 1 {
		return 1
	}
	if c <= 0 {
		c = 1
	}
	lg := math.Log2(float64(nPart))
	if lg <= 0 {
		lg = 1
	}
	b := uint64(math.Ceil(c * float64(nPart) / lg))
	if b < 1 {
		b = 1
	}
	return b
}

// numSlots implements S = ceil(n_part / alpha), rounded up to a power of two
// when the configured reducer requires it.
func numSlots(nPart uint64, alpha float64, reducer Reduce) uint64 {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.99
	}
	s := uint64(math.Ceil(float64(nPart) / alpha))
	if s < 1 {
		s = 1
	}
	if _, ok := reducer.(Mask); ok {
		s = nextPowerOfTwo(s)
	}
	return s
}

// partitionKeys hashes every key, assigns it to a (part, bucket), sorts each
// bucket's hashes, detects exact 64-bit hash collisions, and orders each
// part's buckets largest-first (ties by ascending bucket id).
func partitionKeys(n uint64, source KeySource, hasher Hasher, reducer Reduce, seed uint64, c, alpha float64, keysPerShard int, shardToDisk bool, shardFactory ShardStoreFactory) (*layout, error) {
	parts := numParts(n, keysPerShard)
	nPart := n / parts
	if n%parts != 0 {
		nPart++
	}
	if nPart == 0 {
		nPart = 1
	}
	b := numBuckets(nPart, c)
	s := numSlots(nPart, alpha, reducer)

	counts := make([][]uint32, parts)
	for p := range counts {
		counts[p] = make([]uint32, b)
	}

	if err := source.ForEach(func(key uint64) error {
		h := hasher.Hash(key, seed)
		p := partOf(h, parts)
		bb := bucketOf(h, b)
		counts[p][bb]++
		return nil
	}); err != nil {
		return nil, err
	}

	parts2 := make([]partLayout, parts)
	offsets := make([][]uint32, parts)
	for p := uint64(0); p < parts; p++ {
		starts := make([]uint64, b+1)
		var total uint64
		for bb := uint64(0); bb < b; bb++ {
			starts[bb] = total
			total += uint64(counts[p][bb])
		}
		starts[b] = total
		if total > s {
			return nil, fmt.Errorf("%w: part %d holds %d keys, more than its %d slots", ErrParamsExhausted, p, total, s)
		}
		parts2[p].starts = starts
		parts2[p].hashes = make([]Hash64, total)
		offsets[p] = make([]uint32, b)
	}

	// Every hash passes through a ShardStore (in-memory by default, or an
	// external append-then-scan store when shardToDisk is set) before
	// landing in its part's bucket-ordered slice. This is the spill point
	// spec 5 describes for shards too large to keep resident.
	stores := make([]ShardStore, parts)
	for p := uint64(0); p < parts; p++ {
		store, err := newShardStore(shardToDisk, shardFactory, int(p))
		if err != nil {
			return nil, err
		}
		stores[p] = store
	}

	if err := source.ForEach(func(key uint64) error {
		h := hasher.Hash(key, seed)
		p := partOf(h, parts)
		return stores[p].Append(h)
	}); err != nil {
		return nil, err
	}

	for p := uint64(0); p < parts; p++ {
		err := stores[p].Scan(func(h Hash64) error {
			bb := bucketOf(h, b)
			idx := parts2[p].starts[bb] + uint64(offsets[p][bb])
			offsets[p][bb]++
			parts2[p].hashes[idx] = h
			return nil
		})
		closeErr := stores[p].Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrIOError, closeErr)
		}
	}

	for p := range parts2 {
		pl := &parts2[p]
		for bb := uint64(0); bb < b; bb++ {
			bucket := pl.hashes[pl.starts[bb]:pl.starts[bb+1]]
			sort.Slice(bucket, func(i, j int) bool { return bucket[i] < bucket[j] })
			for i := 1; i < len(bucket); i++ {
				if bucket[i] == bucket[i-1] {
					return nil, fmt.Errorf("%w: %d", ErrDuplicateKeys, uint64(bucket[i]))
				}
			}
		}

		order := make([]bucketIdx, b)
		for bb := range order {
			order[bb] = bucketIdx(bb)
		}
		sort.Slice(order, func(i, j int) bool {
			li, lj := pl.bucketLen(order[i]), pl.bucketLen(order[j])
			if li != lj {
				return li > lj
			}
			return order[i] < order[j]
		})
		pl.bucketOrder = order
	}

	return &layout{n: n, parts: parts, b: b, s: s, part: parts2}, nil
}

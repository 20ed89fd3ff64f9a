package pthash

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Params configures a Construct call. Zero-value fields are replaced with
// sane defaults by Construct.
type Params struct {
	// C is the buckets-per-slot density; higher means more buckets, a
	// faster build, and more space spent on pilots.
	C float64
	// Alpha is the load factor in (0, 1]; higher means a denser output and
	// a harder build.
	Alpha float64
	// KeysPerShard upper-bounds a shard's (part's) key count.
	KeysPerShard int
	// Minimal, if true, appends a remap so the output range is exactly
	// [0, n) instead of [0, P*S).
	Minimal bool
	// ShardToDisk, if true, spills each part's keys through ShardFactory's
	// store instead of an in-memory one.
	ShardToDisk bool
	// ShardFactory builds the ShardStore for a given part. Required when
	// ShardToDisk is true.
	ShardFactory ShardStoreFactory
	// Seed is the initial hash seed; incremented on each whole-build retry.
	Seed uint64
	// Hasher picks the key-hashing family. Defaults to Murmur2Hasher.
	Hasher Hasher
	// Reducer picks the hash-to-range reduction. Defaults to FastRange.
	Reducer Reduce
	// Threads bounds how many parts are displaced concurrently. Defaults
	// to GOMAXPROCS.
	Threads int
	// MaxReseeds bounds how many times the whole build retries with an
	// incremented seed before surfacing ErrParamsExhausted. Defaults to 8.
	MaxReseeds int
	// Reporter receives progress/diagnostic callbacks. Defaults to a no-op.
	Reporter Reporter
}

func (p Params) withDefaults() Params {
	if p.C <= 0 {
		p.C = 7.0
	}
	if p.Alpha <= 0 || p.Alpha > 1 {
		p.Alpha = 0.99
	}
	if p.KeysPerShard <= 0 {
		p.KeysPerShard = 1 << 28
	}
	if p.Hasher == nil {
		p.Hasher = Murmur2Hasher{}
	}
	if p.Reducer == nil {
		p.Reducer = FastRange{}
	}
	if p.Threads <= 0 {
		p.Threads = runtime.GOMAXPROCS(0)
	}
	if p.MaxReseeds <= 0 {
		p.MaxReseeds = 8
	}
	if p.Reporter == nil {
		p.Reporter = DefaultReporter
	}
	return p
}

// Construct builds an Index over exactly n keys drawn from source, per the
// params given. On success, Query(key) is defined for every key in source.
// Behavior for keys not in source is unspecified (the engine only ever
// consumes hashes, never remembers the key set).
func Construct(n int, source KeySource, params Params) (*Index, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative n", ErrParamsExhausted)
	}
	params = params.withDefaults()

	if n == 0 {
		return &Index{empty: true, hasher: params.Hasher, reducer: params.Reducer}, nil
	}
	if uint64(n) > (1 << 31) {
		return nil, fmt.Errorf("%w: %d keys exceeds 2^31", ErrTooManyKeys, n)
	}

	stats := BuildStats{FailedPart: -1}
	var lastErr error

	for attempt := 0; attempt <= params.MaxReseeds; attempt++ {
		seed := params.Seed + uint64(attempt)
		stats.Attempts = attempt + 1
		stats.LastSeed = seed
		stats.FailedPart = -1

		lay, err := partitionKeys(uint64(n), source, params.Hasher, params.Reducer, seed, params.C, params.Alpha, params.KeysPerShard, params.ShardToDisk, params.ShardFactory)
		if err != nil {
			if errors.Is(err, ErrDuplicateKeys) {
				// A genuine duplicate is seed-invariant: it will recur on
				// every reseed attempt, so burning the retry budget on it
				// only delays surfacing the one error the caller can
				// actually act on (fix the input, or pick a hasher that
				// doesn't collide).
				return nil, err
			}
			lastErr = err
			continue
		}

		allPilots := make([][]uint8, lay.parts)
		ctx := context.Background()
		sem := semaphore.NewWeighted(int64(params.Threads))
		eg, ctx := errgroup.WithContext(ctx)

		var failedPart atomic.Int64
		failedPart.Store(-1)

		partDisplacements := make([]int, lay.parts)
		for p := uint64(0); p < lay.parts; p++ {
			p := p
			if err := sem.Acquire(ctx, 1); err != nil {
				lastErr = err
				break
			}
			eg.Go(func() error {
				defer sem.Release(1)
				pilots, displacements, err := displacePart(int(p), &lay.part[p], params.Reducer, lay.s, params.Reporter)
				if err != nil {
					failedPart.CompareAndSwap(-1, int64(p))
					return err
				}
				allPilots[p] = pilots
				partDisplacements[p] = displacements
				return nil
			})
		}

		if err := eg.Wait(); err != nil {
			if errors.Is(err, ErrInternalInvariant) {
				// An invariant violation is a bug, not a parameter problem:
				// surface it instead of reseeding over it.
				return nil, err
			}
			lastErr = err
			stats.TotalDisplacements = sumInts(partDisplacements)
			if fp := failedPart.Load(); fp >= 0 {
				stats.FailedPart = int(fp)
			}
			continue
		}

		total := 0
		for _, d := range partDisplacements {
			total += d
		}
		stats.TotalDisplacements = total
		params.Reporter.Info("build ok: seed=%d parts=%d displ/bucket=%.3f", seed, lay.parts, float64(total)/float64(lay.parts*lay.b))

		pilotStore := newDensePilotStore(lay.parts, lay.b, allPilots)

		idx := &Index{
			n:        uint64(n),
			parts:    lay.parts,
			b:        lay.b,
			s:        lay.s,
			c:        params.C,
			alpha:    params.Alpha,
			seed:     seed,
			hasher:   params.Hasher,
			reducer:  params.Reducer,
			pilots:   pilotStore,
			minimal:  params.Minimal,
		}

		if params.Minimal {
			remap, err := buildMinimalRemap(idx, lay, allPilots)
			if err != nil {
				// buildMinimalRemap only fails on an invariant violation.
				return nil, err
			}
			idx.remap = remap
		}

		return idx, nil
	}

	return nil, fmt.Errorf("%w: after %d attempts (last seed %d, %d total displacements, failed part %d): %w",
		ErrParamsExhausted, stats.Attempts, stats.LastSeed, stats.TotalDisplacements, stats.FailedPart, lastErr)
}

func sumInts(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

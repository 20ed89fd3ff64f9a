package pthash

import "fmt"

// kmax bounds pilot values to one byte and the inner search loop.
const kmax = 256

// recentRingSize is the length of the per-cascade tabu ring: a fixed-size
// circular buffer beats a set for 4 elements.
const recentRingSize = 4

// bitset is a dense bitmap, used for the "taken" occupancy check during
// find-pilot. A plain []bool would work too, but a word-packed bitmap is
// the shape the spec's data model describes ("taken[p]: bit set of occupied
// slots") and keeps per-part memory proportional to S bits rather than S
// bytes. No pack dependency supplies a bitset with this access pattern
// without pulling in an unsafe/raw-pointer API the teacher's style avoids,
// so this one is hand-rolled (see DESIGN.md).
type bitset []uint64

func newBitset(n uint64) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) test(i uint64) bool {
	return b[i/64]&(1<<(i%64)) != 0
}

func (b bitset) set(i uint64) {
	b[i/64] |= 1 << (i % 64)
}

func (b bitset) clear(i uint64) {
	b[i/64] &^= 1 << (i % 64)
}

func containsBucket(ring [recentRingSize]bucketIdx, b bucketIdx) bool {
	for _, r := range ring {
		if r == b {
			return true
		}
	}
	return false
}

func hasDuplicatePositions(positions []uint64) bool {
	for i := range positions {
		for j := i + 1; j < len(positions); j++ {
			if positions[i] == positions[j] {
				return true
			}
		}
	}
	return false
}

// displacePart is THE CORE: it finds a pilot for every bucket in
// bucketOrder such that, after position_in_part, all keys in the part land
// on distinct slots. It returns the part's pilot table and the total number
// of evictions performed (a diagnostic), or an error if the part's
// parameters cannot accommodate its keys.
func displacePart(part int, pl *partLayout, reducer Reduce, s uint64, reporter Reporter) ([]uint8, int, error) {
	bTotal := len(pl.bucketOrder)
	pilots := make([]uint8, bTotal)
	slots := make([]bucketIdx, s)
	for i := range slots {
		slots[i] = noneBucket
	}
	taken := newBitset(s)

	var maxBucketLen uint64
	if len(pl.bucketOrder) > 0 {
		maxBucketLen = pl.bucketLen(pl.bucketOrder[0])
	}

	positionsScratch := make([]uint64, 0, maxBucketLen)
	candidateScratch := make([]uint64, 0, maxBucketLen)
	occupantScratch := make([]bucketIdx, 0, maxBucketLen)

	bucketPositions := func(b bucketIdx, pilot uint8, dst []uint64) []uint64 {
		hp := hashPilot(pilot)
		dst = dst[:0]
		for _, h := range pl.hashes[pl.starts[b]:pl.starts[b+1]] {
			dst = append(dst, reducer.Reduce(h^hp, s))
		}
		return dst
	}

	// findPilot is the hot path: try pilots 0..kmax in order and accept the
	// first that is collision-free against taken and internally distinct.
	findPilot := func(b bucketIdx) (uint8, bool) {
		bucket := pl.hashes[pl.starts[b]:pl.starts[b+1]]
		for p := 0; p < kmax; p++ {
			hp := hashPilot(uint8(p))
			candidateScratch = candidateScratch[:0]
			ok := true
			for _, h := range bucket {
				pos := reducer.Reduce(h^hp, s)
				if taken.test(pos) {
					ok = false
					break
				}
				candidateScratch = append(candidateScratch, pos)
			}
			if !ok {
				continue
			}
			if hasDuplicatePositions(candidateScratch) {
				continue
			}
			return uint8(p), true
		}
		return 0, false
	}

	var stack []bucketIdx
	var recent [recentRingSize]bucketIdx
	totalDisplacements := 0

	for topIdx, top := range pl.bucketOrder {
		bucketLen := pl.bucketLen(top)
		if bucketLen == 0 {
			pilots[top] = 0
			continue
		}

		displacements := 0
		stack = append(stack[:0], top)
		for i := range recent {
			recent[i] = noneBucket
		}
		recentIdx := 0
		recent[0] = top

		for len(stack) > 0 {
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if displacements > int(s) && isPowerOfTwo(uint64(displacements)) {
				reporter.Progress(part, 100*float64(topIdx)/float64(bTotal), displacements)
			}
			if displacements >= 10*int(s) {
				return nil, totalDisplacements, fmt.Errorf(
					"%w: part %d aborted after %d displacements placing bucket %d",
					ErrParamsExhausted, part, displacements, b)
			}

			if p, ok := findPilot(b); ok {
				pilots[b] = p
				positions := bucketPositions(b, p, positionsScratch)
				for _, pos := range positions {
					slots[pos] = b
					taken.set(pos)
				}
				continue
			}

			// Eviction path: no collision-free pilot exists. Find the
			// pilot minimizing the collision score, starting the scan
			// just past the bucket's last tried pilot so repeated visits
			// explore fresh territory.
			bLen := pl.bucketLen(b)
			startP := uint32(pilots[b]) + 1
			bestScore := ^uint64(0)
			var bestPilot uint8
			found := false

		deltaLoop:
			for delta := uint32(0); delta < kmax; delta++ {
				p := uint8((startP + delta) % kmax)
				hp := hashPilot(p)

				positionsScratch = positionsScratch[:0]
				occupantScratch = occupantScratch[:0]
				var score uint64

				for _, h := range pl.hashes[pl.starts[b]:pl.starts[b+1]] {
					pos := reducer.Reduce(h^hp, s)
					positionsScratch = append(positionsScratch, pos)

					occ := slots[pos]
					if occ.isNone() {
						continue
					}
					if containsBucket(recent, occ) {
						continue deltaLoop
					}
					seen := false
					for _, o := range occupantScratch {
						if o == occ {
							seen = true
							break
						}
					}
					if seen {
						continue
					}
					occupantScratch = append(occupantScratch, occ)
					occLen := pl.bucketLen(occ)
					score += occLen * occLen
					if score >= bestScore {
						continue deltaLoop
					}
				}

				if hasDuplicatePositions(positionsScratch) {
					continue
				}

				if score < bestScore {
					bestScore = score
					bestPilot = p
					found = true
					if score == bLen*bLen {
						break
					}
				}
			}

			if !found {
				return nil, totalDisplacements, fmt.Errorf(
					"%w: part %d bucket %d has no valid pilot after full eviction scan",
					ErrParamsExhausted, part, b)
			}

			pilots[b] = bestPilot
			positions := bucketPositions(b, bestPilot, positionsScratch)
			for _, pos := range positions {
				b2 := slots[pos]
				if !b2.isNone() {
					if b2 == b {
						return nil, totalDisplacements, fmt.Errorf(
							"%w: part %d bucket %d evicted itself", ErrInternalInvariant, part, b)
					}
					stack = append(stack, b2)
					displacements++
					totalDisplacements++
					for _, pos2 := range bucketPositions(b2, pilots[b2], candidateScratch) {
						slots[pos2] = noneBucket
						taken.clear(pos2)
					}
				}
				slots[pos] = b
				taken.set(pos)
			}

			recentIdx = (recentIdx + 1) % recentRingSize
			recent[recentIdx] = b
		}
	}

	return pilots, totalDisplacements, nil
}

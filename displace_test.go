package pthash

import "testing"

// buildPartLayout is a small test helper that partitions a set of raw
// uint64 keys into a single part, the way Construct would for n <= keysPerShard.
func buildPartLayout(t *testing.T, keys []uint64, c, alpha float64, hasher Hasher, reducer Reduce, seed uint64) (*layout, error) {
	t.Helper()
	return partitionKeys(uint64(len(keys)), SliceKeySource(keys), hasher, reducer, seed, c, alpha, len(keys)+1, false, nil)
}

func TestDisplacePart_NoDuplicatePositions(t *testing.T) {
	keys := make([]uint64, 2000)
	for i := range keys {
		keys[i] = uint64(i) * 2654435761
	}

	lay, err := buildPartLayout(t, keys, 7.0, 0.99, Murmur2Hasher{}, FastRange{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if lay.parts != 1 {
		t.Fatalf("expected a single part, got %d", lay.parts)
	}

	pilots, _, err := displacePart(0, &lay.part[0], FastRange{}, lay.s, DefaultReporter)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[uint64]bucketIdx)
	pl := &lay.part[0]
	for b := uint64(0); b < lay.b; b++ {
		start, end := pl.starts[b], pl.starts[b+1]
		if start == end {
			continue
		}
		hp := hashPilot(pilots[b])
		for _, h := range pl.hashes[start:end] {
			pos := FastRange{}.Reduce(h^hp, lay.s)
			if owner, ok := seen[pos]; ok {
				t.Fatalf("slot %d claimed by both bucket %d and bucket %d", pos, owner, b)
			}
			seen[pos] = bucketIdx(b)
		}
	}
	if uint64(len(seen)) != uint64(len(keys)) {
		t.Fatalf("placed %d keys, want %d", len(seen), len(keys))
	}
}

func TestDisplacePart_TightAlphaExercisesEviction(t *testing.T) {
	keys := make([]uint64, 100)
	for i := range keys {
		keys[i] = uint64(i)
	}

	lay, err := buildPartLayout(t, keys, 3.0, 1.0, Murmur2Hasher{}, FastRange{}, 0)
	if err != nil {
		t.Fatal(err)
	}

	_, displacements, err := displacePart(0, &lay.part[0], FastRange{}, lay.s, DefaultReporter)
	if err != nil {
		// Tight alpha/c may legitimately exhaust at this single seed; that
		// is an acceptable outcome here, not a test failure, as long as it
		// surfaces a real error rather than hanging or panicking.
		t.Logf("tight placement failed as expected for this seed: %v", err)
		return
	}
	t.Logf("tight placement succeeded with %d displacements", displacements)
}

func TestBitset(t *testing.T) {
	b := newBitset(130)
	for _, i := range []uint64{0, 1, 63, 64, 65, 129} {
		if b.test(i) {
			t.Fatalf("bit %d should start clear", i)
		}
		b.set(i)
		if !b.test(i) {
			t.Fatalf("bit %d should be set", i)
		}
		b.clear(i)
		if b.test(i) {
			t.Fatalf("bit %d should be clear again", i)
		}
	}
}

func TestHasDuplicatePositions(t *testing.T) {
	if hasDuplicatePositions([]uint64{1, 2, 3}) {
		t.Fatal("no duplicates expected")
	}
	if !hasDuplicatePositions([]uint64{1, 2, 2}) {
		t.Fatal("expected duplicate to be detected")
	}
}

func TestContainsBucket(t *testing.T) {
	ring := [recentRingSize]bucketIdx{1, 2, noneBucket, noneBucket}
	if !containsBucket(ring, 2) {
		t.Fatal("expected ring to contain bucket 2")
	}
	if containsBucket(ring, 99) {
		t.Fatal("did not expect ring to contain bucket 99")
	}
}

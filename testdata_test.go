package pthash

import (
	"bufio"
	"flag"
	"math/rand"
	"os"
	"testing"

	"github.com/cespare/xxhash/v2"
)

// keysFile lets a developer point the test suite at a real key corpus
// (one key per line, xxhash-summed to a uint64), the same knob
// serbanoprea-go-mph/mph_test.go exposes.
var keysFile = flag.String("keys", "", "load keys datafile (one key per line) instead of generating them")

// loadKeysU64 returns keysFile's contents if set, otherwise n keys drawn
// from a math/rand source seeded deterministically so a failing test is
// reproducible without committing a corpus to the repo.
func loadKeysU64(tb testing.TB, n int, seed int64) []uint64 {
	tb.Helper()
	if *keysFile != "" {
		return loadBigKeysU64(tb, *keysFile)
	}
	return randomKeysU64(n, seed)
}

func loadBigKeysU64(tb testing.TB, filename string) []uint64 {
	tb.Helper()

	f, err := os.Open(filename)
	if err != nil {
		tb.Fatalf("unable to open keys file: %v", err)
	}
	defer f.Close()

	var ks []uint64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		ks = append(ks, xxhash.Sum64String(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		tb.Fatalf("error reading keys file: %v", err)
	}
	return ks
}

// randomKeysU64 generates n distinct random uint64 keys from a seeded
// source, retrying on the (astronomically unlikely) collision so the
// result always has exactly n distinct keys.
func randomKeysU64(n int, seed int64) []uint64 {
	rng := rand.New(rand.NewSource(seed))
	seen := make(map[uint64]bool, n)
	keys := make([]uint64, 0, n)
	for len(keys) < n {
		k := rng.Uint64()
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

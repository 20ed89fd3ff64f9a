package pthash

import (
	"errors"
	"testing"
)

func TestIndex_QueryEmptyIndex(t *testing.T) {
	idx, err := Construct(0, SliceKeySource{}, Params{})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", idx.Len())
	}
	if _, err := idx.Query(42); !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestIndex_QueryCoversEveryKeyNonMinimal(t *testing.T) {
	keys := sliceKeys(5000)
	idx, err := Construct(len(keys), keys, Params{C: 7.0, Alpha: 0.94, Minimal: false})
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[uint64]bool, len(keys))
	for _, k := range keys {
		pos, err := idx.Query(k)
		if err != nil {
			t.Fatalf("Query(%d): %v", k, err)
		}
		if pos >= idx.OutputRange() {
			t.Fatalf("Query(%d) = %d, out of output range %d", k, pos, idx.OutputRange())
		}
		if seen[pos] {
			t.Fatalf("position %d assigned to more than one key", pos)
		}
		seen[pos] = true
	}
	if uint64(len(seen)) != uint64(len(keys)) {
		t.Fatalf("placed %d distinct keys, want %d", len(seen), len(keys))
	}
}

func TestIndex_QueryMinimalIsOntoZeroN(t *testing.T) {
	keys := sliceKeys(3000)
	idx, err := Construct(len(keys), keys, Params{C: 7.0, Alpha: 0.96, Minimal: true})
	if err != nil {
		t.Fatal(err)
	}
	if idx.OutputRange() != idx.Len() {
		t.Fatalf("OutputRange() = %d, want n = %d for a minimal index", idx.OutputRange(), idx.Len())
	}

	seen := make([]bool, idx.Len())
	for _, k := range keys {
		pos, err := idx.Query(k)
		if err != nil {
			t.Fatalf("Query(%d): %v", k, err)
		}
		if pos >= idx.Len() {
			t.Fatalf("Query(%d) = %d, out of [0, n)", k, pos)
		}
		if seen[pos] {
			t.Fatalf("position %d assigned to more than one key", pos)
		}
		seen[pos] = true
	}
	for i, s := range seen {
		if !s {
			t.Fatalf("output position %d never produced by Query: remap is not onto", i)
		}
	}
}

func TestIndex_QueryDeterministicAcrossCalls(t *testing.T) {
	keys := sliceKeys(1000)
	idx, err := Construct(len(keys), keys, Params{C: 6.0, Alpha: 0.9, Minimal: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range keys {
		a, err := idx.Query(k)
		if err != nil {
			t.Fatal(err)
		}
		b, err := idx.Query(k)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Fatalf("Query(%d) not deterministic: %d != %d", k, a, b)
		}
	}
}

func TestPairedRemap_IdentityBelowExcess(t *testing.T) {
	r := &pairedRemap{excess: []uint64{10, 20, 30}, free: []uint64{1, 2, 3}}
	if got := r.Remap(5); got != 5 {
		t.Fatalf("Remap(5) = %d, want 5 (not in excess set)", got)
	}
	if got := r.Remap(20); got != 2 {
		t.Fatalf("Remap(20) = %d, want 2", got)
	}
}

func TestDensePilotStore_Layout(t *testing.T) {
	perPart := [][]uint8{{1, 2, 3}, {4, 5, 6}}
	ps := newDensePilotStore(2, 3, perPart)
	if ps.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", ps.Len())
	}
	want := []uint8{1, 2, 3, 4, 5, 6}
	for i, w := range want {
		if got := ps.Get(uint64(i)); got != w {
			t.Fatalf("Get(%d) = %d, want %d", i, got, w)
		}
	}
}

package pthash

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic are the first eight bytes of a persisted index, the same
// fail-fast-on-garbage-input technique compactindex uses for its own
// Header.Load.
var Magic = [8]byte{'p', 't', 'h', 'a', 's', 'h', '0', '1'}

// Version bumps on any incompatible change to the persisted layout.
// Persistence format stability across versions is an explicit non-goal, so
// this only exists to fail loudly on a mismatch rather than silently
// misinterpret bytes.
const Version = uint32(1)

// header mirrors spec 6's persisted layout: enough to reconstruct part_of,
// bucket_of and position_in_part bit-exactly at query time.
type header struct {
	Version     uint32
	N           uint64
	Parts       uint64
	B           uint64
	S           uint64
	Alpha       float64
	C           float64
	Seed        uint64
	HasherID    uint8
	ReducerID   uint8
	Minimal     uint8
	SkewVersion uint8
}

const (
	hasherNoHash  uint8 = 0
	hasherMul     uint8 = 1
	hasherXor     uint8 = 2
	hasherMurmur2 uint8 = 3
)

const (
	reducerFastRange uint8 = 0
	reducerMask      uint8 = 1
)

func hasherID(h Hasher) (uint8, error) {
	switch h.(type) {
	case NoHasher:
		return hasherNoHash, nil
	case MulHasher:
		return hasherMul, nil
	case XorHasher:
		return hasherXor, nil
	case Murmur2Hasher:
		return hasherMurmur2, nil
	default:
		return 0, fmt.Errorf("pthash: unknown hasher %q cannot be serialized", h.Name())
	}
}

func hasherFromID(id uint8) (Hasher, error) {
	switch id {
	case hasherNoHash:
		return NoHasher{}, nil
	case hasherMul:
		return MulHasher{}, nil
	case hasherXor:
		return XorHasher{}, nil
	case hasherMurmur2:
		return Murmur2Hasher{}, nil
	default:
		return nil, fmt.Errorf("pthash: unknown hasher id %d", id)
	}
}

func reducerID(r Reduce) (uint8, error) {
	switch r.(type) {
	case FastRange:
		return reducerFastRange, nil
	case Mask:
		return reducerMask, nil
	default:
		return 0, fmt.Errorf("pthash: unknown reducer %q cannot be serialized", r.Name())
	}
}

func reducerFromID(id uint8) (Reduce, error) {
	switch id {
	case reducerFastRange:
		return FastRange{}, nil
	case reducerMask:
		return Mask{}, nil
	default:
		return nil, fmt.Errorf("pthash: unknown reducer id %d", id)
	}
}

// WriteTo serializes the index: header, then the pilots blob, then (if
// minimal) the remap blob. Little-endian throughout.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	hID, err := hasherID(idx.hasher)
	if err != nil {
		return 0, err
	}
	rID, err := reducerID(idx.reducer)
	if err != nil {
		return 0, err
	}

	minimalByte := uint8(0)
	if idx.minimal {
		minimalByte = 1
	}
	h := header{
		Version:     Version,
		N:           idx.n,
		Parts:       idx.parts,
		B:           idx.b,
		S:           idx.s,
		Alpha:       idx.alpha,
		C:           idx.c,
		Seed:        idx.seed,
		HasherID:    hID,
		ReducerID:   rID,
		Minimal:     minimalByte,
		SkewVersion: SkewVersion,
	}

	var written int64
	n, err := w.Write(Magic[:])
	written += int64(n)
	if err != nil {
		return written, err
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return written, err
	}
	written += int64(binary.Size(h))

	nBuckets := idx.parts * idx.b
	for i := uint64(0); i < nBuckets; i++ {
		if err := binary.Write(w, binary.LittleEndian, idx.pilots.Get(i)); err != nil {
			return written, err
		}
		written++
	}

	if idx.minimal {
		pr, ok := idx.remap.(*pairedRemap)
		if !ok {
			return written, fmt.Errorf("pthash: remap implementation is not serializable")
		}
		if err := binary.Write(w, binary.LittleEndian, uint64(len(pr.excess))); err != nil {
			return written, err
		}
		written += 8
		for i := range pr.excess {
			if err := binary.Write(w, binary.LittleEndian, pr.excess[i]); err != nil {
				return written, err
			}
			written += 8
			if err := binary.Write(w, binary.LittleEndian, pr.free[i]); err != nil {
				return written, err
			}
			written += 8
		}
	}

	return written, nil
}

// ReadIndex deserializes an Index previously written by Index.WriteTo.
func ReadIndex(r io.Reader) (*Index, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("pthash: not a pthash index file")
	}

	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if h.Version != Version {
		return nil, fmt.Errorf("pthash: unsupported version %d (want %d)", h.Version, Version)
	}

	hasher, err := hasherFromID(h.HasherID)
	if err != nil {
		return nil, err
	}
	reducer, err := reducerFromID(h.ReducerID)
	if err != nil {
		return nil, err
	}

	nBuckets := h.Parts * h.B
	pilots := make([]uint8, nBuckets)
	for i := range pilots {
		if err := binary.Read(r, binary.LittleEndian, &pilots[i]); err != nil {
			return nil, err
		}
	}

	idx := &Index{
		n:       h.N,
		parts:   h.Parts,
		b:       h.B,
		s:       h.S,
		c:       h.C,
		alpha:   h.Alpha,
		seed:    h.Seed,
		hasher:  hasher,
		reducer: reducer,
		pilots:  &densePilotStore{pilots: pilots},
		minimal: h.Minimal != 0,
	}

	if idx.minimal {
		var excessLen uint64
		if err := binary.Read(r, binary.LittleEndian, &excessLen); err != nil {
			return nil, err
		}
		excess := make([]uint64, excessLen)
		free := make([]uint64, excessLen)
		for i := range excess {
			if err := binary.Read(r, binary.LittleEndian, &excess[i]); err != nil {
				return nil, err
			}
			if err := binary.Read(r, binary.LittleEndian, &free[i]); err != nil {
				return nil, err
			}
		}
		idx.remap = &pairedRemap{excess: excess, free: free}
	}

	return idx, nil
}

package pthash

// Hash64 is a strongly typed 64-bit hash value. The engine never looks at a
// key again once it has been hashed: everything downstream operates on
// Hash64 values using only xor, reduce-to-range, high/low splitting and
// ordering.
type Hash64 uint64

// High returns the upper 32 bits of the hash.
func (h Hash64) High() uint32 { return uint32(h >> 32) }

// Low returns the lower 32 bits of the hash.
func (h Hash64) Low() uint32 { return uint32(h) }

// Less orders two hashes by their numeric value.
func (h Hash64) Less(other Hash64) bool { return h < other }

// Hasher hashes an opaque 64-bit key with a seed into a Hash64. Keys of other
// widths are expected to be folded into a uint64 by the caller (see
// StringKeySource for the string convenience path).
type Hasher interface {
	Hash(key uint64, seed uint64) Hash64
	// Name identifies the hasher for the persisted header.
	Name() string
}

// NoHasher passes the key through unchanged. Useful for already-random keys
// and for exercising the degenerate "all keys collide" boundary case.
type NoHasher struct{}

func (NoHasher) Hash(key, _ uint64) Hash64 { return Hash64(key) }
func (NoHasher) Name() string              { return "nohash" }

// MulHasher multiplies the key by a fixed mixing constant borrowed from
// MurmurHash2's finalizer. It ignores the seed, same as the reference
// implementation's MulHash.
type MulHasher struct{}

const mulMixConstant = 0xc6a4a7935bd1e995

func (MulHasher) Hash(key, _ uint64) Hash64 { return Hash64(key * mulMixConstant) }
func (MulHasher) Name() string              { return "mulhash" }

// XorHasher xors the key and the seed. Cheap, and seed-sensitive, so it is
// useful when a reseed needs to actually perturb the hash of every key.
type XorHasher struct{}

func (XorHasher) Hash(key, seed uint64) Hash64 { return Hash64(key ^ seed) }
func (XorHasher) Name() string                 { return "xorhash" }

// Murmur2Hasher implements MurmurHash2's 64a variant over the little-endian
// byte representation of the key, seeded.
type Murmur2Hasher struct{}

func (Murmur2Hasher) Hash(key, seed uint64) Hash64 {
	return Hash64(murmur64a(key, seed))
}
func (Murmur2Hasher) Name() string { return "murmur2_64a" }

// murmur64a is MurmurHash2's 64-bit variant (64A), specialized to hash a
// single uint64 key. The magic constants are the public-domain ones from the
// original algorithm.
func murmur64a(key, seed uint64) uint64 {
	const m = 0xc6a4a7935bd1e995
	const r = 47

	length := uint64(8)
	h := seed ^ (length * m)

	k := key
	k *= m
	k ^= k >> r
	k *= m

	h ^= k
	h *= m

	h ^= h >> r
	h *= m
	h ^= h >> r

	return h
}

// avalanche64 is a xorshift-multiply mix used to deterministically expand a
// small pilot value into a well-distributed 64-bit mixing value.
func avalanche64(x uint64) uint64 {
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	return x * 2685821657736338717
}

// pilotMixConstant is an arbitrary odd constant (the fractional part of the
// golden ratio, scaled to 64 bits) used only to spread 8-bit pilot values
// before avalanching them.
const pilotMixConstant = 0x9E3779B97F4A7C15

// hashPilot deterministically expands an 8-bit pilot into a 64-bit mixing
// value, per spec: position_in_part(h, pilot) = reduce(h XOR hash_pilot(pilot), S).
func hashPilot(pilot uint8) Hash64 {
	return Hash64(avalanche64(uint64(pilot) * pilotMixConstant))
}

// positionInPart computes the slot a hash maps to within its part, given a
// bucket's pilot.
func positionInPart(h Hash64, pilot uint8, r Reduce, s uint64) uint64 {
	return r.Reduce(h^hashPilot(pilot), s)
}

// partOf derives the part index from the high 32 bits of h: a cheap,
// uniform projection independent of bucketOf's low-bit projection.
func partOf(h Hash64, parts uint64) uint64 {
	if parts <= 1 {
		return 0
	}
	return FastRange{}.Reduce(Hash64(h.High())<<32, parts)
}

// skewPrecision is the fixed-point domain the bucket skew curve operates in.
// Using a domain much larger than any realistic bucket count keeps the curve
// smooth regardless of B.
const skewPrecision = uint64(1) << 32

// SkewVersion identifies the bucket-assignment skew curve implemented by
// bucketOf. It is recorded in the persisted header so that a future curve
// change doesn't silently break old indices: a reader can tell which curve
// to use for bucketOf by inspecting the header.
const SkewVersion uint8 = 1

// bucketOf derives the bucket-within-part index from the low 32 bits of h,
// via a fixed, monotonic, parameter-free piecewise-linear skew: the first
// 0.6*B buckets absorb 0.3 of the probability mass, and the remaining 0.4*B
// buckets absorb the other 0.7. Concentrating keys into the fewer buckets at
// the high end makes those buckets the largest ones, and since the
// displacement engine processes buckets largest-first (per bucket_order) they
// are placed while the slot bitmap is still mostly empty. The curve is monotone so that it reproduces bit-exactly between
// build and query.
func bucketOf(h Hash64, buckets uint64) uint64 {
	if buckets <= 1 {
		return 0
	}

	x := FastRange{}.Reduce(Hash64(h.Low())<<32, skewPrecision)

	splitX := skewPrecision * 3 / 10
	splitB := buckets * 6 / 10

	var v uint64
	if x < splitX {
		if splitX == 0 {
			return 0
		}
		v = x * splitB / splitX
	} else {
		remDomain := skewPrecision - splitX
		remRange := buckets - splitB
		if remDomain == 0 {
			v = splitB
		} else {
			v = splitB + (x-splitX)*remRange/remDomain
		}
	}
	if v >= buckets {
		v = buckets - 1
	}
	return v
}

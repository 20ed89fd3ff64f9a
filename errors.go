package pthash

import "errors"

// Sentinel error kinds, per the error handling design: callers match on
// these with errors.Is, and the wrapping fmt.Errorf("%w: ...") calls attach
// the diagnostic context (displacement counters, offending bucket, etc).
var (
	// ErrParamsExhausted means even after reseeding/retries the chosen
	// (c, alpha) cannot place the keys. Surfaced with displacement
	// statistics attached.
	ErrParamsExhausted = errors.New("pthash: parameters exhausted, cannot place keys")

	// ErrInternalInvariant indicates a self-eviction, a pilot overflow, or a
	// duplicate output position within a bucket after an accepted pilot.
	// This is a bug, not a retryable condition: it is returned, never
	// panicked, so callers can log and abort loudly without crashing a
	// whole process on a single index build.
	ErrInternalInvariant = errors.New("pthash: internal invariant violated")

	// ErrDuplicateKeys is returned when two keys hash-collide exactly at
	// the raw 64-bit level during partitioning.
	ErrDuplicateKeys = errors.New("pthash: duplicate 64-bit hash detected")

	// ErrIOError wraps failures from an external ShardStore.
	ErrIOError = errors.New("pthash: shard store io error")

	// ErrEmptyIndex is returned by Query on a zero-key index.
	ErrEmptyIndex = errors.New("pthash: query against empty index")

	// ErrTooManyKeys is returned when n exceeds what a 32-bit bucket index
	// or part/slot arithmetic can address.
	ErrTooManyKeys = errors.New("pthash: too many keys")
)

// BuildStats carries diagnostics attached to a failed build, so a caller
// surfacing ErrParamsExhausted can log something actionable instead of a
// bare error string.
type BuildStats struct {
	Attempts           int
	LastSeed           uint64
	TotalDisplacements int
	// FailedPart is the index of the part whose displacement engine first
	// returned an error on the last attempt, or -1 if the attempt failed
	// during partitioning (before any part-level displacement ran).
	FailedPart int
}

// Package pthash implements the construction engine for a PTHash-family
// minimal perfect hash function: given a static set of n distinct keys, it
// builds a compact pilot table mapping each key to a unique integer in
// [0, n) (minimal) or [0, n') with n' ~= n/alpha (non-minimal), and
// evaluates the mapping in constant time.
//
// The core of the package is the bucket-displacement search in displace.go:
// a greedy per-bucket pilot search with backtracking-by-eviction, a squared
// collision score, a small tabu ring to stop A/B oscillation, and a bound
// on runaway eviction chains. Everything else (hashing, reduction,
// partitioning, the frozen index) exists to feed that search or to consume
// its output.
package pthash

package pthash

import "fmt"

// ShardStore is the external collaborator spec 1/3 describe for disk-spill
// of a part's keys: "give me an opaque per-part store supporting
// append-then-scan". The partitioner writes every hash it assigns to a part
// through Append, then rebuilds the part's bucket layout by Scanning the
// store back. IOError failures from a disk-backed implementation are its
// own to retry; the partitioner treats any Append/Scan error as fatal to
// the current build attempt.
type ShardStore interface {
	Append(h Hash64) error
	Scan(fn func(Hash64) error) error
	Len() int
	Close() error
}

// memShardStore is the in-memory default used when Params.ShardToDisk is
// false (the common case: per-shard footprints are sized to fit in RAM, per
// spec 5). It trivially satisfies ShardStore without touching disk.
type memShardStore struct {
	hashes []Hash64
}

func newMemShardStore() *memShardStore { return &memShardStore{} }

func (m *memShardStore) Append(h Hash64) error {
	m.hashes = append(m.hashes, h)
	return nil
}

func (m *memShardStore) Scan(fn func(Hash64) error) error {
	for _, h := range m.hashes {
		if err := fn(h); err != nil {
			return err
		}
	}
	return nil
}

func (m *memShardStore) Len() int { return len(m.hashes) }

func (m *memShardStore) Close() error {
	m.hashes = nil
	return nil
}

// ShardStoreFactory builds the ShardStore backing a given part index. It is
// only invoked when Params.ShardToDisk is true; otherwise an in-memory
// store is used directly.
type ShardStoreFactory func(part int) (ShardStore, error)

func newShardStore(shardToDisk bool, factory ShardStoreFactory, part int) (ShardStore, error) {
	if !shardToDisk {
		return newMemShardStore(), nil
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: shard_to_disk is set but no ShardStoreFactory was provided", ErrIOError)
	}
	store, err := factory(part)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOError, err)
	}
	return store, nil
}

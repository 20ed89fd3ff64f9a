package pthash

import "github.com/cespare/xxhash/v2"

// StringKeySource adapts a slice of strings to KeySource by hashing each one
// to a uint64 with xxhash, the same 64-bit string-to-key folding the teacher
// used for its own New(keys []string) entry point.
type StringKeySource []string

func (s StringKeySource) Len() int { return len(s) }

func (s StringKeySource) ForEach(fn func(key uint64) error) error {
	for _, k := range s {
		if err := fn(xxhash.Sum64String(k)); err != nil {
			return err
		}
	}
	return nil
}

// ConstructStrings is the string-keyed convenience entry point: it folds
// each key through xxhash.Sum64String and otherwise behaves exactly like
// Construct. Two distinct strings that happen to share an xxhash digest
// surface as ErrDuplicateKeys, same as any other raw 64-bit collision.
func ConstructStrings(keys []string, params Params) (*Index, error) {
	return Construct(len(keys), StringKeySource(keys), params)
}

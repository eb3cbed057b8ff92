// Package prefixed implements a snapshot that namespaces the keys of another
// snapshot.
//
// A key is stored as the big-endian length of the namespace over two bytes,
// the namespace and the key. The order of the keys inside a namespace is
// therefore the same as the order of the keys without the namespace, which
// allows ordered scans of a namespace.
package prefixed

import (
	"encoding/binary"

	"go.dedis.ch/auctioneer/core/store"
)

type readable struct {
	store.ReadSnapshot
	prefix []byte
}

type writable struct {
	store.Writable
	prefix []byte
}

type snapshot struct {
	*writable
	*readable
}

// NewSnapshot creates a new prefixed Snapshot.
func NewSnapshot(prefix string, snap store.Snapshot) store.Snapshot {
	p := []byte(prefix)
	return &snapshot{
		&writable{snap, p},
		&readable{snap, p},
	}
}

// NewReadable creates a new prefixed read-only snapshot.
func NewReadable(prefix string, r store.ReadSnapshot) store.ReadSnapshot {
	p := []byte(prefix)
	return &readable{r, p}
}

// Get implements store.Readable
// It takes a key as input and returns a value or error status
func (s *readable) Get(key []byte) ([]byte, error) {
	k := NewPrefixedKey(s.prefix, key)
	return s.ReadSnapshot.Get(k)
}

// Scan implements store.Iterable. The keys given to the callback do not
// contain the namespace.
func (s *readable) Scan(prefix []byte, fn func(key, value []byte) error) error {
	p := NewPrefixedKey(s.prefix, prefix)
	offset := len(p) - len(prefix)

	return s.ReadSnapshot.Scan(p, func(key, value []byte) error {
		return fn(key[offset:], value)
	})
}

// Set implements store.Writable
// It takes a key and value as input, and returns an error status
func (s *writable) Set(key []byte, value []byte) error {
	k := NewPrefixedKey(s.prefix, key)
	return s.Writable.Set(k, value)
}

// Delete implements store.Writable
// It takes a key as input and returns an error status
func (s *writable) Delete(key []byte) error {
	k := NewPrefixedKey(s.prefix, key)
	return s.Writable.Delete(k)
}

// NewPrefixedKey creates the namespaced key from a prefix and a base key.
func NewPrefixedKey(prefix, key []byte) []byte {
	buffer := make([]byte, 2, 2+len(prefix)+len(key))
	binary.BigEndian.PutUint16(buffer, uint16(len(prefix)))

	buffer = append(buffer, prefix...)
	buffer = append(buffer, key...)

	return buffer
}

package kv

import (
	"go.dedis.ch/auctioneer/core/store"
	"golang.org/x/xerrors"
)

// bucketSnapshot is an adapter of a bucket to the store snapshot interface. It
// must only be used during the lifetime of the database transaction that
// opened the bucket.
//
// - implements store.Snapshot
type bucketSnapshot struct {
	bucket Bucket
}

// NewSnapshot returns a snapshot that reads and writes the given bucket.
func NewSnapshot(bucket Bucket) store.Snapshot {
	return bucketSnapshot{bucket: bucket}
}

// Get implements store.Readable. It returns a copy of the value as the memory
// of the bucket is only valid during the database transaction.
func (s bucketSnapshot) Get(key []byte) ([]byte, error) {
	value := s.bucket.Get(key)
	if value == nil {
		return nil, nil
	}

	return append([]byte{}, value...), nil
}

// Set implements store.Writable.
func (s bucketSnapshot) Set(key, value []byte) error {
	err := s.bucket.Set(key, value)
	if err != nil {
		return xerrors.Errorf("failed to write key %#x: %v", key, err)
	}

	return nil
}

// Delete implements store.Writable.
func (s bucketSnapshot) Delete(key []byte) error {
	err := s.bucket.Delete(key)
	if err != nil {
		return xerrors.Errorf("failed to delete key %#x: %v", key, err)
	}

	return nil
}

// Scan implements store.Iterable.
func (s bucketSnapshot) Scan(prefix []byte, fn func(key, value []byte) error) error {
	return s.bucket.Scan(prefix, func(k, v []byte) error {
		return fn(append([]byte{}, k...), append([]byte{}, v...))
	})
}

// emptySnapshot is a read-only snapshot of a bucket that does not exist yet.
//
// - implements store.ReadSnapshot
type emptySnapshot struct{}

// NewReadSnapshot returns a read-only snapshot of the bucket. A nil bucket is
// considered as empty.
func NewReadSnapshot(bucket Bucket) store.ReadSnapshot {
	if bucket == nil {
		return emptySnapshot{}
	}

	return bucketSnapshot{bucket: bucket}
}

// Get implements store.Readable. It always returns nil.
func (emptySnapshot) Get([]byte) ([]byte, error) {
	return nil, nil
}

// Scan implements store.Iterable. It never calls the function.
func (emptySnapshot) Scan([]byte, func(key, value []byte) error) error {
	return nil
}

// Package store defines the primitives of a simple key/value storage.
//
// Keys are compared byte-wise, which gives the order used by the iterable
// stores.
package store

// Readable is the interface for a readable store.
type Readable interface {
	// Get returns the value of the key, or nil if the key does not exist.
	Get(key []byte) ([]byte, error)
}

// Writable is the interface for a writable store.
type Writable interface {
	Set(key []byte, value []byte) error

	Delete(key []byte) error
}

// Iterable is the interface for a store that can list its keys.
type Iterable interface {
	// Scan calls the function for every key that starts with the prefix, in
	// ascending order of the keys. The iteration stops at the first error.
	Scan(prefix []byte, fn func(key, value []byte) error) error
}

// Snapshot is a state of the store that can be read and write independently. A
// write is applied only to the snapshot reference.
type Snapshot interface {
	Readable
	Writable
	Iterable
}

// ReadSnapshot is a read-only state of the store.
type ReadSnapshot interface {
	Readable
	Iterable
}

// Transaction is a generic interface that store implementations can use to
// provide atomicity.
type Transaction interface {
	// OnCommit adds a callback to be executed after the transaction
	// successfully commits.
	OnCommit(func())
}

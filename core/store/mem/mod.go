// Package mem implements an in-memory snapshot that can be staged on top of
// another snapshot.
//
// A staged snapshot keeps the updates in memory and only writes them to the
// parent when it is committed. It allows a caller to apply a set of updates in
// an all-or-nothing fashion: the snapshot is simply dropped when one of the
// updates fails.
package mem

import (
	"bytes"
	"sort"

	"go.dedis.ch/auctioneer/core/store"
	"golang.org/x/xerrors"
)

type item struct {
	value   []byte
	deleted bool
}

// Snapshot is an in-memory snapshot. When it has a parent, it looks up the
// parent for the keys that are not updated.
//
// - implements store.Snapshot
type Snapshot struct {
	parent store.Snapshot
	store  map[string]item
}

// NewSnapshot creates a new empty snapshot without parent.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		store: make(map[string]item),
	}
}

// NewStage creates a new empty snapshot staged on the parent.
func NewStage(parent store.Snapshot) *Snapshot {
	return &Snapshot{
		parent: parent,
		store:  make(map[string]item),
	}
}

// Get implements store.Readable. It returns the value of the key, looking up
// the parent when the key has not been touched by the snapshot.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	it, found := s.store[string(key)]
	if found {
		if it.deleted {
			return nil, nil
		}

		return it.value, nil
	}

	if s.parent == nil {
		return nil, nil
	}

	value, err := s.parent.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("failed to read parent: %v", err)
	}

	return value, nil
}

// Set implements store.Writable.
func (s *Snapshot) Set(key, value []byte) error {
	s.store[string(key)] = item{value: append([]byte{}, value...)}

	return nil
}

// Delete implements store.Writable.
func (s *Snapshot) Delete(key []byte) error {
	s.store[string(key)] = item{deleted: true}

	return nil
}

// Scan implements store.Iterable. It merges the keys of the parent with the
// updates of the snapshot and iterates over them in ascending order.
func (s *Snapshot) Scan(prefix []byte, fn func(key, value []byte) error) error {
	values := make(map[string][]byte)

	if s.parent != nil {
		err := s.parent.Scan(prefix, func(key, value []byte) error {
			values[string(key)] = value
			return nil
		})
		if err != nil {
			return xerrors.Errorf("failed to scan parent: %v", err)
		}
	}

	for key, it := range s.store {
		if !bytes.HasPrefix([]byte(key), prefix) {
			continue
		}

		if it.deleted {
			delete(values, key)
		} else {
			values[key] = it.value
		}
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		err := fn([]byte(key), values[key])
		if err != nil {
			return xerrors.Errorf("callback failed: %v", err)
		}
	}

	return nil
}

// Len returns the number of keys updated by the snapshot.
func (s *Snapshot) Len() int {
	return len(s.store)
}

// Commit writes the updates to the parent in ascending order of the keys and
// resets the snapshot.
func (s *Snapshot) Commit() error {
	if s.parent == nil {
		return xerrors.New("snapshot has no parent")
	}

	keys := make([]string, 0, len(s.store))
	for key := range s.store {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		var err error

		it := s.store[key]
		if it.deleted {
			err = s.parent.Delete([]byte(key))
		} else {
			err = s.parent.Set([]byte(key), it.value)
		}

		if err != nil {
			return xerrors.Errorf("failed to write %#x: %v", key, err)
		}
	}

	s.store = make(map[string]item)

	return nil
}

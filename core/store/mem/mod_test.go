package mem

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestSnapshot_Get(t *testing.T) {
	parent := NewSnapshot()
	parent.store["B"] = item{value: []byte{2}}
	parent.store["D"] = item{value: []byte{3}}

	snap := NewStage(parent)
	snap.store["A"] = item{value: []byte{1}}

	value, err := snap.Get([]byte("A"))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, value)

	value, err = snap.Get([]byte("B"))
	require.NoError(t, err)
	require.Equal(t, []byte{2}, value)

	value, err = snap.Get([]byte("C"))
	require.NoError(t, err)
	require.Nil(t, value)

	snap.store["D"] = item{deleted: true}
	value, err = snap.Get([]byte("D"))
	require.NoError(t, err)
	require.Nil(t, value)

	snap = NewStage(badSnapshot{})
	_, err = snap.Get([]byte("A"))
	require.EqualError(t, err, "failed to read parent: oops")
}

func TestSnapshot_Set(t *testing.T) {
	snap := NewSnapshot()

	value := []byte{1}
	require.NoError(t, snap.Set([]byte("A"), value))
	require.Equal(t, item{value: []byte{1}}, snap.store["A"])

	// The snapshot keeps its own copy of the value.
	value[0] = 2
	require.Equal(t, item{value: []byte{1}}, snap.store["A"])
	require.Equal(t, 1, snap.Len())
}

func TestSnapshot_Delete(t *testing.T) {
	snap := NewSnapshot()
	snap.store["A"] = item{value: []byte{1}}

	require.NoError(t, snap.Delete([]byte("A")))
	require.Equal(t, item{deleted: true}, snap.store["A"])

	require.NoError(t, snap.Delete([]byte("B")))
	require.Equal(t, item{deleted: true}, snap.store["B"])
}

func TestSnapshot_Scan(t *testing.T) {
	parent := NewSnapshot()
	parent.Set([]byte("k:b"), []byte{2})
	parent.Set([]byte("k:d"), []byte{4})
	parent.Set([]byte("x"), []byte{9})

	snap := NewStage(parent)
	snap.Set([]byte("k:c"), []byte{3})
	snap.Set([]byte("k:a"), []byte{1})
	snap.Delete([]byte("k:d"))

	keys := []string{}
	values := []byte{}
	err := snap.Scan([]byte("k:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		values = append(values, value...)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"k:a", "k:b", "k:c"}, keys)
	require.Equal(t, []byte{1, 2, 3}, values)

	err = snap.Scan(nil, func(key, value []byte) error {
		return xerrors.New("oops")
	})
	require.EqualError(t, err, "callback failed: oops")

	snap = NewStage(badSnapshot{})
	err = snap.Scan(nil, nil)
	require.EqualError(t, err, "failed to scan parent: oops")
}

func TestSnapshot_Commit(t *testing.T) {
	parent := NewSnapshot()
	parent.Set([]byte("A"), []byte{1})
	parent.Set([]byte("B"), []byte{2})

	snap := NewStage(parent)
	snap.Set([]byte("A"), []byte{3})
	snap.Delete([]byte("B"))
	snap.Set([]byte("C"), []byte{4})

	value, err := parent.Get([]byte("A"))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, value)

	require.NoError(t, snap.Commit())
	require.Equal(t, 0, snap.Len())

	value, err = parent.Get([]byte("A"))
	require.NoError(t, err)
	require.Equal(t, []byte{3}, value)

	value, err = parent.Get([]byte("B"))
	require.NoError(t, err)
	require.Nil(t, value)

	value, err = parent.Get([]byte("C"))
	require.NoError(t, err)
	require.Equal(t, []byte{4}, value)

	err = NewSnapshot().Commit()
	require.EqualError(t, err, "snapshot has no parent")

	snap = NewStage(badSnapshot{})
	snap.Set([]byte("A"), []byte{1})
	err = snap.Commit()
	require.EqualError(t, err, "failed to write 0x41: oops")
}

// -----------------------------------------------------------------------------
// Utility functions

type badSnapshot struct{}

func (badSnapshot) Get([]byte) ([]byte, error) {
	return nil, xerrors.New("oops")
}

func (badSnapshot) Set([]byte, []byte) error {
	return xerrors.New("oops")
}

func (badSnapshot) Delete([]byte) error {
	return xerrors.New("oops")
}

func (badSnapshot) Scan([]byte, func(key, value []byte) error) error {
	return xerrors.New("oops")
}

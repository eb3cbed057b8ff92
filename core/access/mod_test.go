package access

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestAddressOf(t *testing.T) {
	addr, err := AddressOf(fakeIdentity{text: "alice"})
	require.NoError(t, err)
	require.Equal(t, "alice", addr)

	_, err = AddressOf(nil)
	require.EqualError(t, err, "missing identity")

	_, err = AddressOf(fakeIdentity{err: xerrors.New("oops")})
	require.EqualError(t, err, "failed to marshal identity: oops")
}

func TestCompile(t *testing.T) {
	require.Equal(t, "auction:command", Compile("auction", "command"))
	require.Equal(t, "auction", Compile("auction"))
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeIdentity struct {
	text string
	err  error
}

func (i fakeIdentity) MarshalText() ([]byte, error) {
	return []byte(i.text), i.err
}

func (i fakeIdentity) Equal(other interface{}) bool {
	return false
}

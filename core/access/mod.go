// Package access defines the interfaces to identify the author of a
// transaction.
//
// An identity has a unique text representation which is used as its address,
// for instance as the key of a balance or of a bid.
package access

import (
	"encoding"
	"strings"

	"golang.org/x/xerrors"
)

// Identity is an abstraction to uniquely identify a signer.
type Identity interface {
	encoding.TextMarshaler

	// Equal returns true when the other object is the same identity.
	Equal(other interface{}) bool
}

// IdentityFactory is the factory interface to parse identities from their text
// form.
type IdentityFactory interface {
	IdentityOf(text []byte) (Identity, error)
}

// AddressOf returns the text representation of the identity.
func AddressOf(ident Identity) (string, error) {
	if ident == nil {
		return "", xerrors.New("missing identity")
	}

	text, err := ident.MarshalText()
	if err != nil {
		return "", xerrors.Errorf("failed to marshal identity: %v", err)
	}

	return string(text), nil
}

// Compile returns a compacted rule from the string segments.
func Compile(segments ...string) string {
	return strings.Join(segments, ":")
}

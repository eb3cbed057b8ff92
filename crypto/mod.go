// Package crypto defines the cryptographic primitives used to sign and verify
// the transactions.
package crypto

import (
	"encoding"
	"hash"
)

// HashFactory is an interface to produce a hash digest.
type HashFactory interface {
	New() hash.Hash
}

// PublicKey is a public identity that can be used to verify a signature.
type PublicKey interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler

	// Verify returns nil if the signature matches the message for this public
	// key.
	Verify(msg []byte, signature Signature) error

	// Equal returns true if the other object is the same public key.
	Equal(other interface{}) bool
}

// PublicKeyFactory is a factory to create public keys.
type PublicKeyFactory interface {
	FromBytes(data []byte) (PublicKey, error)
}

// Signature is a verifiable element for a unique message.
type Signature interface {
	encoding.BinaryMarshaler

	Equal(other Signature) bool
}

// Signer provides the primitives to sign and verify signatures. The binary
// form of a signer is its private key.
type Signer interface {
	encoding.BinaryMarshaler

	GetPublicKeyFactory() PublicKeyFactory

	GetPublicKey() PublicKey

	Sign(msg []byte) (Signature, error)
}

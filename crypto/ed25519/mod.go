// Package ed25519 implements the cryptographic primitives for the Edwards 25519
// elliptic curve.
//
// The signatures are created using the Schnorr algorithm. The text form of a
// public key is "schnorr:" followed by the hexadecimal encoding of the point,
// and it is used as the address of an identity.
//
// Related Papers:
//
// Efficient Identification and Signatures for Smart Cards (1989)
// https://link.springer.com/chapter/10.1007/0-387-34805-0_22
package ed25519

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/crypto"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/key"
	"golang.org/x/xerrors"
)

const (
	// Algorithm is the name of the curve used for the schnorr signature.
	Algorithm = "CURVE-ED25519"

	textPrefix = "schnorr:"
)

var suite = suites.MustFind("Ed25519")

// PublicKey is the public key adapter to the Kyber Ed25519 public key.
//
// - implements crypto.PublicKey
// - implements access.Identity
type PublicKey struct {
	point kyber.Point
}

// NewPublicKey returns a new public key from the data.
func NewPublicKey(data []byte) (PublicKey, error) {
	point := suite.Point()
	err := point.UnmarshalBinary(data)
	if err != nil {
		return PublicKey{}, xerrors.Errorf("couldn't unmarshal point: %v", err)
	}

	return PublicKey{point: point}, nil
}

// NewPublicKeyFromPoint creates a new public key from an existing point.
func NewPublicKeyFromPoint(point kyber.Point) PublicKey {
	return PublicKey{
		point: point,
	}
}

// ParsePublicKey returns the public key of the text representation.
func ParsePublicKey(text string) (PublicKey, error) {
	if !strings.HasPrefix(text, textPrefix) {
		return PublicKey{}, xerrors.Errorf("invalid prefix in '%s'", text)
	}

	data, err := hex.DecodeString(strings.TrimPrefix(text, textPrefix))
	if err != nil {
		return PublicKey{}, xerrors.Errorf("malformed hex: %v", err)
	}

	return NewPublicKey(data)
}

// MarshalBinary implements encoding.BinaryMarshaler. It produces a slice of
// bytes representing the public key.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return pk.point.MarshalBinary()
}

// Verify implements crypto.PublicKey. It returns nil if the signature matches
// the message for this public key.
func (pk PublicKey) Verify(msg []byte, sig crypto.Signature) error {
	signature, ok := sig.(Signature)
	if !ok {
		return xerrors.Errorf("invalid signature type '%T'", sig)
	}

	err := schnorr.Verify(suite, pk.point, msg, signature.data)
	if err != nil {
		return xerrors.Errorf("schnorr verify failed: %v", err)
	}

	return nil
}

// Equal implements crypto.PublicKey. It returns true if the other public key
// is the same.
func (pk PublicKey) Equal(other interface{}) bool {
	pubkey, ok := other.(PublicKey)
	if !ok {
		return false
	}

	return pubkey.point.Equal(pk.point)
}

// MarshalText implements encoding.TextMarshaler. It returns a text
// representation of the public key.
func (pk PublicKey) MarshalText() ([]byte, error) {
	buffer, err := pk.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("couldn't marshal: %v", err)
	}

	return []byte(fmt.Sprintf("%s%x", textPrefix, buffer)), nil
}

// GetPoint returns the kyber.point.
func (pk PublicKey) GetPoint() kyber.Point {
	return pk.point
}

// String implements fmt.Stringer. It returns a short string representation of
// the point.
func (pk PublicKey) String() string {
	buffer, err := pk.MarshalText()
	if err != nil {
		return "schnorr:malformed_point"
	}

	// Output only the prefix and 16 characters of the buffer in hexadecimal.
	return string(buffer)[:len(textPrefix)+16]
}

// Signature is the adapter of the Kyber Schnorr signature.
//
// - implements crypto.Signature
type Signature struct {
	data []byte
}

// NewSignature returns a new signature from the data.
func NewSignature(data []byte) Signature {
	return Signature{
		data: data,
	}
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns a slice of
// bytes representing the signature.
func (sig Signature) MarshalBinary() ([]byte, error) {
	return sig.data, nil
}

// Equal implements crypto.Signature. It returns true if both signatures are the
// same.
func (sig Signature) Equal(other crypto.Signature) bool {
	otherSig, ok := other.(Signature)
	if !ok {
		return false
	}

	return bytes.Equal(sig.data, otherSig.data)
}

// publicKeyFactory creates public keys for the Ed25519 curve.
//
// - implements crypto.PublicKeyFactory
// - implements access.IdentityFactory
type publicKeyFactory struct{}

// NewPublicKeyFactory returns a new instance of the factory.
func NewPublicKeyFactory() publicKeyFactory {
	return publicKeyFactory{}
}

// FromBytes implements crypto.PublicKeyFactory. It returns the public key
// unmarshaled from the bytes.
func (f publicKeyFactory) FromBytes(data []byte) (crypto.PublicKey, error) {
	pubkey, err := NewPublicKey(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal the key: %v", err)
	}

	return pubkey, nil
}

// IdentityOf implements access.IdentityFactory. It returns the public key of
// the text representation.
func (f publicKeyFactory) IdentityOf(text []byte) (access.Identity, error) {
	pubkey, err := ParsePublicKey(string(text))
	if err != nil {
		return nil, xerrors.Errorf("failed to parse identity: %v", err)
	}

	return pubkey, nil
}

// Signer implements a signer that is creating Schnorr signatures using the
// private key of the Ed25519 elliptic curve.
//
// - implements crypto.Signer
type Signer struct {
	keyPair *key.Pair
}

// NewSigner returns a new random schnorr signer.
func NewSigner() Signer {
	kp := key.NewKeyPair(suite)
	return Signer{
		keyPair: kp,
	}
}

// NewSignerFromBytes restores the signer of the marshaled private key.
func NewSignerFromBytes(data []byte) (Signer, error) {
	scalar := suite.Scalar()
	err := scalar.UnmarshalBinary(data)
	if err != nil {
		return Signer{}, xerrors.Errorf("couldn't unmarshal scalar: %v", err)
	}

	kp := &key.Pair{
		Private: scalar,
		Public:  suite.Point().Mul(scalar, nil),
	}

	return Signer{keyPair: kp}, nil
}

// GetPublicKeyFactory implements crypto.Signer. It returns the public key
// factory for schnorr signatures.
func (s Signer) GetPublicKeyFactory() crypto.PublicKeyFactory {
	return publicKeyFactory{}
}

// GetPublicKey implements crypto.Signer. It returns the public key of the
// signer that can be used to verify signatures.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return PublicKey{point: s.keyPair.Public}
}

// GetPrivateKey returns the signer's private key.
func (s Signer) GetPrivateKey() kyber.Scalar {
	return s.keyPair.Private
}

// Sign implements crypto.Signer. It signs the message in parameter and returns
// the signature, or an error if it cannot sign.
func (s Signer) Sign(msg []byte) (crypto.Signature, error) {
	sig, err := schnorr.Sign(suite, s.keyPair.Private, msg)
	if err != nil {
		return nil, xerrors.Errorf("couldn't make schnorr signature: %v", err)
	}

	return Signature{data: sig}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns the private
// key.
func (s Signer) MarshalBinary() ([]byte, error) {
	return s.keyPair.Private.MarshalBinary()
}

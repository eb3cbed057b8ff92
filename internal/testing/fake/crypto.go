package fake

import (
	"crypto/sha256"
	"hash"

	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/crypto"
	"golang.org/x/xerrors"
)

// PublicKey is a fake implementation of crypto.PublicKey. Its text form is the
// name given at creation, which makes it convenient to use as an identity.
//
// - implements crypto.PublicKey
type PublicKey struct {
	name string
	err  error
}

// NewPublicKey returns a public key with the given name.
func NewPublicKey(name string) PublicKey {
	return PublicKey{name: name}
}

// NewBadPublicKey returns a public key that fails to marshal and to verify.
func NewBadPublicKey() PublicKey {
	return PublicKey{name: "bad", err: fakeErr}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return []byte(pk.name), pk.err
}

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) {
	if pk.err != nil {
		return nil, pk.err
	}

	return []byte(pk.name), nil
}

// Verify implements crypto.PublicKey.
func (pk PublicKey) Verify([]byte, crypto.Signature) error {
	return pk.err
}

// Equal implements crypto.PublicKey.
func (pk PublicKey) Equal(other interface{}) bool {
	o, ok := other.(PublicKey)
	return ok && o.name == pk.name
}

// String implements fmt.Stringer.
func (pk PublicKey) String() string {
	return pk.name
}

// PublicKeyFactory is a fake implementation of crypto.PublicKeyFactory and
// access.IdentityFactory.
type PublicKeyFactory struct {
	err error
}

// NewBadPublicKeyFactory returns a factory that always returns an error.
func NewBadPublicKeyFactory() PublicKeyFactory {
	return PublicKeyFactory{err: fakeErr}
}

// FromBytes implements crypto.PublicKeyFactory.
func (f PublicKeyFactory) FromBytes(data []byte) (crypto.PublicKey, error) {
	if f.err != nil {
		return nil, f.err
	}

	return NewPublicKey(string(data)), nil
}

// IdentityOf implements access.IdentityFactory. Empty text is rejected.
func (f PublicKeyFactory) IdentityOf(text []byte) (access.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}

	if len(text) == 0 {
		return nil, xerrors.New("empty identity")
	}

	return NewPublicKey(string(text)), nil
}

// Signature is a fake implementation of crypto.Signature.
//
// - implements crypto.Signature
type Signature struct {
	err error
}

// NewBadSignature returns a signature that fails to marshal.
func NewBadSignature() Signature {
	return Signature{err: fakeErr}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Signature) MarshalBinary() ([]byte, error) {
	return []byte("fake signature"), s.err
}

// Equal implements crypto.Signature.
func (s Signature) Equal(other crypto.Signature) bool {
	_, ok := other.(Signature)
	return ok
}

// Signer is a fake implementation of crypto.Signer.
//
// - implements crypto.Signer
type Signer struct {
	pubkey PublicKey
	err    error
}

// NewSigner returns a signer with the public key of the given name.
func NewSigner(name string) Signer {
	return Signer{pubkey: NewPublicKey(name)}
}

// NewBadSigner returns a signer that fails to sign.
func NewBadSigner() Signer {
	return Signer{pubkey: NewPublicKey("bad"), err: fakeErr}
}

// GetPublicKeyFactory implements crypto.Signer.
func (s Signer) GetPublicKeyFactory() crypto.PublicKeyFactory {
	return PublicKeyFactory{}
}

// GetPublicKey implements crypto.Signer.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return s.pubkey
}

// Sign implements crypto.Signer.
func (s Signer) Sign([]byte) (crypto.Signature, error) {
	if s.err != nil {
		return nil, s.err
	}

	return Signature{}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Signer) MarshalBinary() ([]byte, error) {
	return []byte(s.pubkey.name), s.err
}

// HashFactory is a fake implementation of crypto.HashFactory.
//
// - implements crypto.HashFactory
type HashFactory struct {
	hash hash.Hash
}

// NewHashFactory returns a fake hash factory that returns the given hash.
func NewHashFactory(h hash.Hash) HashFactory {
	return HashFactory{hash: h}
}

// New implements crypto.HashFactory.
func (f HashFactory) New() hash.Hash {
	return f.hash
}

// Hash is a fake implementation of hash.Hash that can fail after a given
// number of writes.
type Hash struct {
	hash.Hash
	delay int
	err   error
	Call  *Call
}

// NewBadHash returns a hash that fails at the first write.
func NewBadHash() *Hash {
	return NewBadHashWithDelay(0)
}

// NewBadHashWithDelay returns a hash that fails after the given number of
// successful writes.
func NewBadHashWithDelay(delay int) *Hash {
	return &Hash{Hash: sha256.New(), delay: delay, err: fakeErr}
}

// Write implements io.Writer.
func (h *Hash) Write(in []byte) (int, error) {
	h.Call.Add(in)

	if h.delay > 0 {
		h.delay--
		return h.Hash.Write(in)
	}

	if h.err != nil {
		return 0, h.err
	}

	return h.Hash.Write(in)
}

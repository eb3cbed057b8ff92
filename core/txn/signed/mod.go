// Package signed is an implementation of the transaction abstraction.
//
// It uses a signature to make sure the identity owns the transaction. The nonce
// is a monotonically increasing number that is used to prevent a replay attack
// of an existing transaction.
package signed

import (
	"encoding/binary"
	"io"
	"sort"

	"go.dedis.ch/auctioneer"
	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/txn"
	"go.dedis.ch/auctioneer/crypto"
	"golang.org/x/xerrors"
)

// Transaction is a signed transaction using a nonce to protect itself against
// replay attack.
//
// - implements txn.Transaction
type Transaction struct {
	nonce  uint64
	args   map[string][]byte
	funds  txn.Coins
	pubkey crypto.PublicKey
	sig    crypto.Signature
	hash   []byte
}

type template struct {
	Transaction

	hashFactory crypto.HashFactory
}

// TransactionOption is the type of options to create a transaction.
type TransactionOption func(*template)

// WithArg is an option to set an argument with the key and the value.
func WithArg(key string, value []byte) TransactionOption {
	return func(tmpl *template) {
		tmpl.args[key] = value
	}
}

// WithFunds is an option to attach coins to the transaction.
func WithFunds(funds txn.Coins) TransactionOption {
	return func(tmpl *template) {
		tmpl.funds = append(txn.Coins{}, funds...)
	}
}

// WithSignature is an option to set a valid signature. The signature will be
// verified against the identity.
func WithSignature(sig crypto.Signature) TransactionOption {
	return func(tmpl *template) {
		tmpl.sig = sig
	}
}

// WithHashFactory is an option to set a different hash factory when creating a
// transaction.
func WithHashFactory(f crypto.HashFactory) TransactionOption {
	return func(tmpl *template) {
		tmpl.hashFactory = f
	}
}

// NewTransaction creates a new transaction with the provided nonce.
func NewTransaction(nonce uint64, pk crypto.PublicKey, opts ...TransactionOption) (*Transaction, error) {
	tmpl := template{
		Transaction: Transaction{
			nonce:  nonce,
			pubkey: pk,
			args:   make(map[string][]byte),
		},
		hashFactory: crypto.NewSha256Factory(),
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	h := tmpl.hashFactory.New()
	err := tmpl.Fingerprint(h)
	if err != nil {
		return nil, xerrors.Errorf("couldn't fingerprint tx: %v", err)
	}

	tmpl.hash = h.Sum(nil)

	if tmpl.sig != nil {
		err := tmpl.pubkey.Verify(tmpl.hash, tmpl.sig)
		if err != nil {
			return nil, xerrors.Errorf("invalid signature: %v", err)
		}
	}

	return &tmpl.Transaction, nil
}

// GetID implements txn.Transaction. It returns the ID of the transaction.
func (t *Transaction) GetID() []byte {
	return t.hash
}

// GetNonce implements txn.Transaction. It returns the nonce of the transaction.
func (t *Transaction) GetNonce() uint64 {
	return t.nonce
}

// GetIdentity implements txn.Transaction. It returns the public key of the
// signer.
func (t *Transaction) GetIdentity() access.Identity {
	return t.pubkey
}

// GetSignature returns the signature of the transaction.
func (t *Transaction) GetSignature() crypto.Signature {
	return t.sig
}

// GetArgs returns the sorted list of arguments available.
func (t *Transaction) GetArgs() []string {
	args := make([]string, 0, len(t.args))
	for key := range t.args {
		args = append(args, key)
	}

	sort.Strings(args)

	return args
}

// GetArg implements txn.Transaction. It returns the value of the argument if it
// is set, otherwise nil.
func (t *Transaction) GetArg(key string) []byte {
	return t.args[key]
}

// GetFunds implements txn.Transaction. It returns the attached coins.
func (t *Transaction) GetFunds() txn.Coins {
	return append(txn.Coins{}, t.funds...)
}

// Sign signs the transaction and stores the signature.
func (t *Transaction) Sign(signer crypto.Signer) error {
	if len(t.hash) == 0 {
		return xerrors.New("missing digest in transaction")
	}

	if !signer.GetPublicKey().Equal(t.pubkey) {
		return xerrors.New("mismatch signer and identity")
	}

	sig, err := signer.Sign(t.hash)
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	t.sig = sig

	return nil
}

// Verify returns nil when the transaction carries a valid signature.
func (t *Transaction) Verify() error {
	if t.sig == nil {
		return xerrors.New("missing signature")
	}

	err := t.pubkey.Verify(t.hash, t.sig)
	if err != nil {
		return xerrors.Errorf("invalid signature: %v", err)
	}

	return nil
}

// Fingerprint implements txn.Transaction. It writes a deterministic binary
// representation of the transaction.
func (t *Transaction) Fingerprint(w io.Writer) error {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, t.nonce)

	_, err := w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write nonce: %v", err)
	}

	for _, key := range t.GetArgs() {
		_, err = w.Write(append([]byte(key), t.args[key]...))
		if err != nil {
			return xerrors.Errorf("couldn't write arg: %v", err)
		}
	}

	for _, coin := range t.funds {
		amount := make([]byte, 8)
		binary.LittleEndian.PutUint64(amount, coin.Amount)

		_, err = w.Write(append([]byte(coin.Denom), amount...))
		if err != nil {
			return xerrors.Errorf("couldn't write funds: %v", err)
		}
	}

	buffer, err = t.pubkey.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal public key: %v", err)
	}

	_, err = w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write public key: %v", err)
	}

	return nil
}

// Client is the interface the manager is using to get the nonce of an identity.
// It allows a local implementation, or through a network client.
type Client interface {
	GetNonce(access.Identity) (uint64, error)
}

// TransactionManager is a manager to create signed transactions. It manages the
// nonce by itself, except if the transaction is refused by the ledger. In that
// case the manager should be synchronized before creating a new one.
//
// - implements txn.Manager
type TransactionManager struct {
	client  Client
	signer  crypto.Signer
	nonce   uint64
	hashFac crypto.HashFactory
}

// NewManager creates a new transaction manager.
func NewManager(signer crypto.Signer, client Client) *TransactionManager {
	return &TransactionManager{
		client:  client,
		signer:  signer,
		nonce:   0,
		hashFac: crypto.NewSha256Factory(),
	}
}

// Make implements txn.Manager. It creates a transaction populated with the
// funds and the arguments.
func (mgr *TransactionManager) Make(funds txn.Coins, args ...txn.Arg) (txn.Transaction, error) {
	opts := make([]TransactionOption, len(args), len(args)+2)
	for i, arg := range args {
		opts[i] = WithArg(arg.Key, arg.Value)
	}

	opts = append(opts, WithFunds(funds), WithHashFactory(mgr.hashFac))

	tx, err := NewTransaction(mgr.nonce, mgr.signer.GetPublicKey(), opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	err = tx.Sign(mgr.signer)
	if err != nil {
		return nil, xerrors.Errorf("failed to sign: %v", err)
	}

	mgr.nonce++

	return tx, nil
}

// Sync implements txn.Manager. It fetches the latest nonce of the signer to
// create valid transactions.
func (mgr *TransactionManager) Sync() error {
	nonce, err := mgr.client.GetNonce(mgr.signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("client: %v", err)
	}

	mgr.nonce = nonce

	auctioneer.Logger.Debug().Uint64("nonce", nonce).Msg("manager synchronized")

	return nil
}

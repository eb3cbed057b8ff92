package fake

import (
	"io"

	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/txn"
)

// Transaction is a fake implementation of txn.Transaction.
//
// - implements txn.Transaction
type Transaction struct {
	ID       []byte
	Nonce    uint64
	Identity access.Identity
	Args     map[string][]byte
	Funds    txn.Coins
	err      error
}

// NewTransaction returns a transaction sent by the public key of the given
// name, with the funds and the arguments.
func NewTransaction(sender string, funds txn.Coins, args ...txn.Arg) Transaction {
	tx := Transaction{
		ID:       []byte{0xa, 0xb, 0xc, 0xd},
		Identity: NewPublicKey(sender),
		Args:     make(map[string][]byte),
		Funds:    funds,
	}

	for _, arg := range args {
		tx.Args[arg.Key] = arg.Value
	}

	return tx
}

// NewBadTransaction returns a transaction that fails to fingerprint.
func NewBadTransaction() Transaction {
	tx := NewTransaction("bad", nil)
	tx.err = fakeErr

	return tx
}

// GetID implements txn.Transaction.
func (tx Transaction) GetID() []byte {
	return tx.ID
}

// GetNonce implements txn.Transaction.
func (tx Transaction) GetNonce() uint64 {
	return tx.Nonce
}

// GetIdentity implements txn.Transaction.
func (tx Transaction) GetIdentity() access.Identity {
	return tx.Identity
}

// GetArg implements txn.Transaction.
func (tx Transaction) GetArg(key string) []byte {
	return tx.Args[key]
}

// GetFunds implements txn.Transaction.
func (tx Transaction) GetFunds() txn.Coins {
	return tx.Funds
}

// Fingerprint implements txn.Transaction.
func (tx Transaction) Fingerprint(w io.Writer) error {
	if tx.err != nil {
		return tx.err
	}

	_, err := w.Write(tx.ID)
	return err
}

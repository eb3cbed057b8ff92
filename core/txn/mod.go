// Package txn defines the abstraction of transactions.
//
// A transaction is a smart contract input. It is uniquely identifiable via a
// digest and it can be sorted with the nonce that acts as a sequence number.
// The transaction is also created by an identity that is used as the sender of
// the contract call, and it can carry funds that are moved from the sender to
// the contract before the execution.
//
// The manager helps to create transactions as the nonce needs to be correct for
// the transaction to be valid.
package txn

import (
	"io"

	"go.dedis.ch/auctioneer/core/access"
)

// Transaction is what triggers a smart contract execution by passing it as part
// of the input.
type Transaction interface {
	// GetID returns the unique identifier for the transaction.
	GetID() []byte

	// GetNonce returns the nonce of the transaction which corresponds to the
	// sequence number of a unique identity.
	GetNonce() uint64

	// GetIdentity returns the identity that created the transaction.
	GetIdentity() access.Identity

	// GetArg is a getter for the arguments of the transaction.
	GetArg(key string) []byte

	// GetFunds returns the coins attached to the transaction.
	GetFunds() Coins

	// Fingerprint writes a deterministic binary representation of the
	// transaction.
	Fingerprint(w io.Writer) error
}

// Arg is a generic argument that can be stored in a transaction.
type Arg struct {
	Key   string
	Value []byte
}

// Manager is a manager to create transaction. It can help creating
// transactions when some information is required like the current nonce.
type Manager interface {
	Make(funds Coins, args ...Arg) (Transaction, error)

	Sync() error
}

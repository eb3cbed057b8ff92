// Package validation defines the validator of a batch of transactions created
// by an ordering service.
package validation

import (
	"io"

	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/execution"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/txn"
)

// TransactionResult is the result of a transaction of a batch.
type TransactionResult interface {
	GetTransaction() txn.Transaction

	// GetStatus returns true if the transaction has been accepted, otherwise
	// false with the reason of the refusal.
	GetStatus() (bool, string)

	GetAttributes() []execution.Attribute
}

// Result is the result of a validation.
type Result interface {
	GetTransactionResults() []TransactionResult

	// Fingerprint writes a deterministic binary representation of the result.
	Fingerprint(w io.Writer) error
}

// Service is the validation service that will process a batch of transactions
// into a validated result.
type Service interface {
	// GetNonce returns the nonce that the next transaction of the identity
	// must use.
	GetNonce(store.Readable, access.Identity) (uint64, error)

	// Validate executes the transactions in order and applies the accepted
	// ones to the snapshot. A refused transaction leaves no trace in the
	// snapshot.
	Validate(store.Snapshot, []txn.Transaction) (Result, error)
}

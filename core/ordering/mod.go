// Package ordering defines the interface of the ordering service. The
// high-level purpose of this service is to order the transactions from the
// pool and to apply them to the store.
//
// The transactions of a batch are applied one after the other, so that a
// contract never observes two transactions at the same time.
package ordering

import (
	"context"

	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/validation"
)

// Event is the notification of a batch of transactions applied to the store.
type Event struct {
	// Index is the index of the batch, starting at zero.
	Index uint64

	Transactions []validation.TransactionResult
}

// Service is the interface of an ordering service. It provides the primitives
// to order transactions from a pool.
type Service interface {
	// Watch returns a channel populated with the events of the new batches
	// until the context is done.
	Watch(ctx context.Context) <-chan Event

	// View calls the function with a read-only snapshot of the latest state.
	View(fn func(snap store.ReadSnapshot) error) error

	// GetNonce returns the nonce of the next transaction of the identity.
	GetNonce(ident access.Identity) (uint64, error)

	Close() error
}

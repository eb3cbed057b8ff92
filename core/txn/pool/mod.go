// Package pool defines the interface for a transaction pool. It holds the
// transactions of the clients until the ordering service reads them.
package pool

import (
	"context"

	"go.dedis.ch/auctioneer/core/txn"
)

// Config is the set of parameters that allows one to change the behavior of
// the gathering process.
type Config struct {
	// Min is the minimum number of transactions that must be available before
	// returning a batch.
	Min int

	// Max is the maximum number of transactions returned in a batch. Zero
	// means no limit.
	Max int

	// Callback is called after the gathering starts to wait for new
	// transactions.
	Callback func()
}

// Pool is the maintainer of the list of transactions.
type Pool interface {
	// Len returns the number of pending transactions.
	Len() int

	// Add adds the transaction to the pool.
	Add(txn.Transaction) error

	// Remove removes the transaction from the pool.
	Remove(txn.Transaction) error

	// Gather returns the pending transactions in order of arrival as soon as
	// enough are available, or nil if the context is done.
	Gather(ctx context.Context, cfg Config) []txn.Transaction

	// Close closes the pool and releases the waiting callers.
	Close() error
}

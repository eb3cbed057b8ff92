// Package execution defines the service that applies a transaction to a
// snapshot of the store.
package execution

import (
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/txn"
)

// Step is a context of execution. It contains the transactions of the batch
// that were processed before the current one.
type Step struct {
	Previous []txn.Transaction
	Current  txn.Transaction
}

// Attribute is a key/value pair emitted by an execution to describe what
// happened.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewAttribute returns a new attribute.
func NewAttribute(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string

	// Attributes are the attributes emitted by an accepted transaction.
	Attributes []Attribute
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it. An error is returned only when the execution cannot complete for a
	// reason unrelated to the transaction.
	Execute(snap store.Snapshot, step Step) (Result, error)
}

package simple

import (
	"io"

	"go.dedis.ch/auctioneer/core/execution"
	"go.dedis.ch/auctioneer/core/txn"
	"go.dedis.ch/auctioneer/core/validation"
	"golang.org/x/xerrors"
)

// TransactionResult is the result of a transaction processing. It contains the
// transaction and its state of success.
//
// - implements validation.TransactionResult
type TransactionResult struct {
	tx         txn.Transaction
	accepted   bool
	reason     string
	attributes []execution.Attribute
}

// NewTransactionResult creates a new transaction result for the provided
// transaction.
func NewTransactionResult(tx txn.Transaction, accepted bool, reason string,
	attrs ...execution.Attribute) TransactionResult {

	return TransactionResult{
		tx:         tx,
		accepted:   accepted,
		reason:     reason,
		attributes: attrs,
	}
}

// GetTransaction implements validation.TransactionResult. It returns the
// transaction associated to the result.
func (res TransactionResult) GetTransaction() txn.Transaction {
	return res.tx
}

// GetStatus implements validation.TransactionResult. It returns true if the
// transaction has been accepted, otherwise false with the reason.
func (res TransactionResult) GetStatus() (bool, string) {
	return res.accepted, res.reason
}

// GetAttributes implements validation.TransactionResult. It returns the
// attributes emitted by the execution.
func (res TransactionResult) GetAttributes() []execution.Attribute {
	return res.attributes
}

// Result is the result of a standard validation.
//
// - implements validation.Result
type Result struct {
	txs []TransactionResult
}

// NewResult creates a new result from a list of transaction results.
func NewResult(results []TransactionResult) Result {
	return Result{
		txs: results,
	}
}

// GetTransactionResults implements validation.Result. It returns the
// transaction results.
func (d Result) GetTransactionResults() []validation.TransactionResult {
	res := make([]validation.TransactionResult, len(d.txs))
	for i, r := range d.txs {
		res[i] = r
	}

	return res
}

// Fingerprint implements validation.Result. It writes a deterministic binary
// representation of the result.
func (d Result) Fingerprint(w io.Writer) error {
	for _, res := range d.txs {
		err := res.tx.Fingerprint(w)
		if err != nil {
			return xerrors.Errorf("couldn't fingerprint tx: %v", err)
		}

		bit := []byte{0}
		if res.accepted {
			bit[0] = 1
		}

		_, err = w.Write(bit)
		if err != nil {
			return xerrors.Errorf("couldn't write accepted: %v", err)
		}
	}

	return nil
}

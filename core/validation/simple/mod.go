// Package simple implements a simple validation service.
//
// Every transaction is executed on its own staging snapshot, which is merged
// into the batch snapshot only when the transaction is accepted. The nonce of
// the sender is incremented at the same time.
package simple

import (
	"encoding/binary"

	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/execution"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/store/mem"
	"go.dedis.ch/auctioneer/core/store/prefixed"
	"go.dedis.ch/auctioneer/core/txn"
	"go.dedis.ch/auctioneer/core/validation"
	"golang.org/x/xerrors"
)

// NonceNamespace is the namespace of the nonces in the store.
const NonceNamespace = "nonce"

// Service is a standard validation service that will process the batch and
// update the snapshot accordingly.
//
// - implements validation.Service
type Service struct {
	execution execution.Service
}

// NewService creates a new validation service.
func NewService(exec execution.Service) Service {
	return Service{
		execution: exec,
	}
}

// GetNonce implements validation.Service. It returns the next nonce of the
// identity, which is zero for an unknown identity.
func (s Service) GetNonce(snap store.Readable, ident access.Identity) (uint64, error) {
	key, err := access.AddressOf(ident)
	if err != nil {
		return 0, xerrors.Errorf("key: %v", err)
	}

	value, err := snap.Get(prefixed.NewPrefixedKey([]byte(NonceNamespace), []byte(key)))
	if err != nil {
		return 0, xerrors.Errorf("store: %v", err)
	}

	if len(value) != 8 {
		return 0, nil
	}

	return binary.LittleEndian.Uint64(value) + 1, nil
}

// Validate implements validation.Service. It processes the list of transactions
// while updating the snapshot then returns a bundle of the transaction results.
func (s Service) Validate(snap store.Snapshot, txs []txn.Transaction) (validation.Result, error) {
	results := make([]TransactionResult, len(txs))

	step := execution.Step{}

	for i, tx := range txs {
		stage := mem.NewStage(snap)

		res, err := s.validateTx(stage, step, tx)
		if err != nil {
			return nil, xerrors.Errorf("tx %#x: %v", tx.GetID(), err)
		}

		if res.accepted {
			err = stage.Commit()
			if err != nil {
				return nil, xerrors.Errorf("tx %#x: failed to commit: %v", tx.GetID(), err)
			}
		}

		results[i] = res
		step.Previous = append(step.Previous, tx)
	}

	return NewResult(results), nil
}

func (s Service) validateTx(stage store.Snapshot, step execution.Step,
	tx txn.Transaction) (TransactionResult, error) {

	nonce, err := s.GetNonce(stage, tx.GetIdentity())
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("nonce: %v", err)
	}

	if nonce != tx.GetNonce() {
		reason := xerrors.Errorf("nonce '%d' != '%d'", tx.GetNonce(), nonce).Error()
		return NewTransactionResult(tx, false, reason), nil
	}

	step.Current = tx

	res, err := s.execution.Execute(stage, step)
	if err != nil {
		// This is a critical error unrelated to the transaction itself.
		return TransactionResult{}, xerrors.Errorf("failed to execute tx: %v", err)
	}

	if !res.Accepted {
		return NewTransactionResult(tx, false, res.Message), nil
	}

	err = s.set(stage, tx.GetIdentity(), tx.GetNonce())
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("failed to set nonce: %v", err)
	}

	return NewTransactionResult(tx, true, "", res.Attributes...), nil
}

func (s Service) set(snap store.Writable, ident access.Identity, nonce uint64) error {
	key, err := access.AddressOf(ident)
	if err != nil {
		return xerrors.Errorf("key: %v", err)
	}

	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, nonce)

	err = snap.Set(prefixed.NewPrefixedKey([]byte(NonceNamespace), []byte(key)), buffer)
	if err != nil {
		return xerrors.Errorf("store: %v", err)
	}

	return nil
}

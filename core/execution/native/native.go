// Package native implements an execution service to run native smart contracts.
//
// A native smart contract is written in Go and packaged with the application.
// Each contract reads and writes its own namespace of the store, identified by
// the UID of the contract. The funds attached to a transaction are moved to the
// custody account of the contract before it executes, and the transfers it
// returns are paid from that account.
package native

import (
	"fmt"

	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/bank"
	"go.dedis.ch/auctioneer/core/execution"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/store/prefixed"
	"golang.org/x/xerrors"
)

const (
	// ContractArg is the argument key in the transaction to look up a contract.
	ContractArg = "go.dedis.ch/auctioneer.ContractArg"
)

// Response is the outcome of a successful contract execution.
type Response struct {
	Attributes []execution.Attribute
	Transfers  []bank.Transfer
}

// Contract is the interface to implement to register a smart contract that will
// be executed natively.
type Contract interface {
	// Execute applies the transaction to the namespace of the contract. The
	// snapshot is discarded when an error is returned.
	Execute(store.Snapshot, execution.Step) (Response, error)

	// UID returns the unique identifier of the contract over 4 bytes.
	UID() string
}

// Service is an execution service for packaged applications.
//
// - implements execution.Service
type Service struct {
	contracts    map[string]Contract
	contractUIDs map[string]struct{}
	bank         bank.Ledger
}

// NewExecution returns a new native execution. The given service will be
// executed for every incoming transaction.
func NewExecution() *Service {
	return &Service{
		contracts:    map[string]Contract{},
		contractUIDs: map[string]struct{}{},
		bank:         bank.NewLedger(),
	}
}

// Set stores the contract using the name as the key. A transaction can trigger
// this contract by using the same name as the contract argument.
func (ns *Service) Set(name string, contract Contract) {
	if _, ok := ns.contracts[name]; ok {
		panic(xerrors.Errorf("contract '%s' already registered", name))
	}

	uid := contract.UID()

	// UIDs are expected to be 4 bytes long, always.
	if len(uid) != 4 {
		panic(xerrors.Errorf("contract UID '%x' for '%s' is not 4 bytes long", uid, name))
	}

	if _, ok := ns.contractUIDs[uid]; ok {
		panic(xerrors.Errorf("contract UID '%x' for '%s' already registered", uid, name))
	}

	ns.contracts[name] = contract
	ns.contractUIDs[uid] = struct{}{}
}

// Execute implements execution.Service. It moves the attached funds to the
// custody account of the contract, executes it, and pays the transfers of the
// response. A failure of one of the steps, or an unknown contract, rejects the
// transaction.
func (ns *Service) Execute(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	name := string(step.Current.GetArg(ContractArg))

	contract := ns.contracts[name]
	if contract == nil {
		return execution.Result{Message: fmt.Sprintf("unknown contract '%s'", name)}, nil
	}

	resp, err := ns.execute(snap, name, contract, step)
	if err != nil {
		return execution.Result{Message: err.Error()}, nil
	}

	res := execution.Result{
		Accepted:   true,
		Attributes: resp.Attributes,
	}

	return res, nil
}

func (ns *Service) execute(snap store.Snapshot, name string,
	contract Contract, step execution.Step) (Response, error) {

	custody := bank.ContractAccount(name)

	funds := step.Current.GetFunds()
	if !funds.IsZero() {
		sender, err := access.AddressOf(step.Current.GetIdentity())
		if err != nil {
			return Response{}, xerrors.Errorf("invalid sender: %v", err)
		}

		err = ns.bank.Send(snap, sender, custody, funds)
		if err != nil {
			return Response{}, xerrors.Errorf("failed to deposit funds: %v", err)
		}
	}

	resp, err := contract.Execute(prefixed.NewSnapshot(contract.UID(), snap), step)
	if err != nil {
		return Response{}, err
	}

	for _, transfer := range resp.Transfers {
		err = ns.bank.Send(snap, custody, transfer.To, transfer.Amount)
		if err != nil {
			return Response{}, xerrors.Errorf("failed to transfer to '%s': %v", transfer.To, err)
		}
	}

	return resp, nil
}

// NewReadable returns a read-only view of the namespace of the contract, which
// is the state seen by the contract when it executes.
func NewReadable(contract Contract, snap store.ReadSnapshot) store.ReadSnapshot {
	return prefixed.NewReadable(contract.UID(), snap)
}

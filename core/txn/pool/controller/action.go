// This file implements the actions of the controller

package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.dedis.ch/auctioneer/cli"
	"go.dedis.ch/auctioneer/cli/node"
	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/ordering"
	"go.dedis.ch/auctioneer/core/txn"
	"go.dedis.ch/auctioneer/core/txn/pool"
	"go.dedis.ch/auctioneer/core/txn/signed"
	"go.dedis.ch/auctioneer/core/validation"
	"go.dedis.ch/auctioneer/crypto"
	"go.dedis.ch/auctioneer/crypto/ed25519"
	"go.dedis.ch/auctioneer/crypto/loader"
	"golang.org/x/xerrors"
)

// getManager is the function called when we need a transaction manager. It
// allows us to use a different manager for the tests.
var getManager = func(signer crypto.Signer, s signed.Client) txn.Manager {
	return signed.NewManager(signer, s)
}

// Submitter signs transactions with the key given by the flags and adds them
// to the pool of the node. Submissions are serialized so that two
// transactions of the same signer never share a nonce.
type Submitter struct {
	sync.Mutex

	nonces *nonceClient
}

// NewSubmitter returns a new submitter.
func NewSubmitter() *Submitter {
	return &Submitter{
		nonces: newNonceClient(),
	}
}

// Submit creates a transaction with the arguments and the flags of the
// context, and adds it to the pool. When the wait flag is set, it waits for
// the transaction to be ordered and returns its result, otherwise the result
// is nil.
func (s *Submitter) Submit(ctx node.Context, args ...txn.Arg) (validation.TransactionResult, error) {
	var srvc ordering.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return nil, xerrors.Errorf("injector: %v", err)
	}

	wait := ctx.Flags.Duration(WaitFlag)

	// The watch starts before the transaction is added so that the event
	// cannot be missed.
	watchCtx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	var events <-chan ordering.Event
	if wait > 0 {
		events = srvc.Watch(watchCtx)
	}

	tx, err := s.add(ctx, srvc, args)
	if err != nil {
		return nil, err
	}

	if events == nil {
		return nil, nil
	}

	return waitResult(watchCtx, events, tx)
}

func (s *Submitter) add(ctx node.Context, srvc ordering.Service, args []txn.Arg) (txn.Transaction, error) {
	s.Lock()
	defer s.Unlock()

	var p pool.Pool
	err := ctx.Injector.Resolve(&p)
	if err != nil {
		return nil, xerrors.Errorf("injector: %v", err)
	}

	funds, err := txn.ParseCoins(strings.Join(ctx.Flags.StringSlice(FundsFlag), ","))
	if err != nil {
		return nil, xerrors.Errorf("failed to parse funds: %v", err)
	}

	signer, err := getSigner(ctx.Flags)
	if err != nil {
		return nil, xerrors.Errorf("failed to get signer: %v", err)
	}

	var client signed.Client = boundClient{
		nonces: s.nonces,
		store:  srvc,
		pool:   p,
	}

	nonce := ctx.Flags.Int(NonceFlag)
	if nonce >= 0 {
		client = fixedNonce(nonce)
	}

	manager := getManager(signer, client)

	err = manager.Sync()
	if err != nil {
		return nil, xerrors.Errorf("failed to sync manager: %v", err)
	}

	tx, err := manager.Make(funds, args...)
	if err != nil {
		return nil, xerrors.Errorf("creating transaction: %v", err)
	}

	err = p.Add(tx)
	if err != nil {
		return nil, xerrors.Errorf("failed to include tx: %v", err)
	}

	s.nonces.Used(tx.GetIdentity(), tx.GetNonce())

	return tx, nil
}

func waitResult(ctx context.Context, events <-chan ordering.Event,
	tx txn.Transaction) (validation.TransactionResult, error) {

	for {
		select {
		case <-ctx.Done():
			return nil, xerrors.Errorf("transaction %#x not ordered: %v",
				tx.GetID(), ctx.Err())
		case evt := <-events:
			for _, res := range evt.Transactions {
				if bytes.Equal(res.GetTransaction().GetID(), tx.GetID()) {
					return res, nil
				}
			}
		}
	}
}

// PrintResult writes a human readable form of the result of a transaction.
func PrintResult(out io.Writer, res validation.TransactionResult) {
	accepted, reason := res.GetStatus()

	if accepted {
		fmt.Fprintf(out, "transaction %x accepted\n", res.GetTransaction().GetID())
	} else {
		fmt.Fprintf(out, "transaction %x refused: %s\n", res.GetTransaction().GetID(), reason)
	}

	for _, attr := range res.GetAttributes() {
		fmt.Fprintf(out, "  %s=%s\n", attr.Key, attr.Value)
	}
}

// addAction describes an action to add an new transaction to the pool.
//
// - implements node.ActionTemplate
type addAction struct {
	once      sync.Once
	submitter *Submitter
}

// Execute implements node.ActionTemplate
func (a *addAction) Execute(ctx node.Context) error {
	a.once.Do(func() {
		if a.submitter == nil {
			a.submitter = NewSubmitter()
		}
	})

	args, err := getArgs(ctx.Flags)
	if err != nil {
		return xerrors.Errorf("failed to get args: %v", err)
	}

	res, err := a.submitter.Submit(ctx, args...)
	if err != nil {
		return xerrors.Opaque(err)
	}

	if res != nil {
		PrintResult(ctx.Out, res)
	}

	return nil
}

// getArgs extracts and parses arguments from the flags.
func getArgs(flags cli.Flags) ([]txn.Arg, error) {
	inArgs := flags.StringSlice("args")
	if len(inArgs)%2 != 0 {
		return nil, xerrors.New("number of args should be even")
	}

	args := make([]txn.Arg, len(inArgs)/2)
	for i := 0; i < len(args); i++ {
		args[i] = txn.Arg{
			Key:   inArgs[i*2],
			Value: []byte(inArgs[i*2+1]),
		}
	}

	return args, nil
}

// getSigner creates a signer from the signer flag.
func getSigner(flags cli.Flags) (crypto.Signer, error) {
	l := loader.NewFileLoader(flags.Path(SignerFlag))

	signerdata, err := l.Load()
	if err != nil {
		return nil, xerrors.Errorf("failed to load signer: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(signerdata)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return signer, nil
}

// fixedNonce is the client used when the nonce is given by the flags.
//
// - implements signed.Client
type fixedNonce uint64

// GetNonce implements signed.Client.
func (n fixedNonce) GetNonce(access.Identity) (uint64, error) {
	return uint64(n), nil
}

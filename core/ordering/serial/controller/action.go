// This file implements the actions of the controller

package controller

import (
	"fmt"
	"math/big"

	"github.com/dustin/go-humanize"
	"go.dedis.ch/auctioneer/cli/node"
	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/bank"
	"go.dedis.ch/auctioneer/core/ordering"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/txn"
	"go.dedis.ch/auctioneer/crypto"
	"golang.org/x/xerrors"
)

// exportAction is an action to print the identity of the node.
//
// - implements node.ActionTemplate
type exportAction struct{}

// Execute implements node.ActionTemplate. It prints the identity of the node,
// which can be used as an account of the genesis.
func (exportAction) Execute(ctx node.Context) error {
	var signer crypto.Signer
	err := ctx.Injector.Resolve(&signer)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	addr, err := access.AddressOf(signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("failed to get identity: %v", err)
	}

	fmt.Fprintln(ctx.Out, addr)

	return nil
}

// balanceAction is an action to print the balances of an account.
//
// - implements node.ActionTemplate
type balanceAction struct{}

// Execute implements node.ActionTemplate.
func (balanceAction) Execute(ctx node.Context) error {
	var srvc ordering.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	account := ctx.Flags.String(accountFlag)

	var coins txn.Coins

	err = srvc.View(func(snap store.ReadSnapshot) error {
		coins, err = bank.NewLedger().Balances(snap, account)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read balances: %v", err)
	}

	if coins.IsZero() {
		fmt.Fprintf(ctx.Out, "%s has no funds\n", account)
		return nil
	}

	for _, coin := range coins {
		fmt.Fprintf(ctx.Out, "%s %s\n", humanize.BigComma(new(big.Int).SetUint64(coin.Amount)), coin.Denom)
	}

	return nil
}

// This file implements the actions of the controller

package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/dustin/go-humanize"
	"go.dedis.ch/auctioneer/cli"
	"go.dedis.ch/auctioneer/cli/node"
	"go.dedis.ch/auctioneer/contracts/auction"
	"go.dedis.ch/auctioneer/core/ordering"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/txn"
	poolcontroller "go.dedis.ch/auctioneer/core/txn/pool/controller"
	"golang.org/x/xerrors"
)

// txAction submits a transaction of the auction contract.
//
// - implements node.ActionTemplate
type txAction struct {
	submitter *poolcontroller.Submitter
	args      func(cli.Flags) []txn.Arg
}

// Execute implements node.ActionTemplate. It signs and submits the
// transaction, and prints its result when the wait flag is set.
func (a *txAction) Execute(ctx node.Context) error {
	res, err := a.submitter.Submit(ctx, a.args(ctx.Flags)...)
	if err != nil {
		return xerrors.Errorf("failed to submit: %v", err)
	}

	if res == nil {
		fmt.Fprintln(ctx.Out, "transaction submitted")
		return nil
	}

	poolcontroller.PrintResult(ctx.Out, res)

	return nil
}

// statusAction prints the state of the auction.
//
// - implements node.ActionTemplate
type statusAction struct{}

// Execute implements node.ActionTemplate.
func (statusAction) Execute(ctx node.Context) error {
	var status auction.StatusResponse

	err := view(ctx, func(c auction.Contract, snap store.ReadSnapshot) error {
		var err error
		status, err = c.Status(snap)

		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read status: %v", err)
	}

	if ctx.Flags.Bool(jsonFlag) {
		return printJSON(ctx.Out, status)
	}

	state := "open"
	if !status.Active {
		state = "closed"
	}

	fmt.Fprintf(ctx.Out, "item: %s\n", status.ItemTitle)
	fmt.Fprintf(ctx.Out, "owner: %s\n", status.Owner)
	fmt.Fprintf(ctx.Out, "state: %s\n", state)
	fmt.Fprintf(ctx.Out, "highest bid: %s by %s\n",
		formatCoin(status.HighestBid.Amount), status.HighestBid.Bidder)
	fmt.Fprintf(ctx.Out, "bidders: %d\n", status.BiddersCount)
	fmt.Fprintf(ctx.Out, "commission: %s\n", status.CommissionRate)

	return nil
}

// bidOfAction prints the bid of an identity.
//
// - implements node.ActionTemplate
type bidOfAction struct{}

// Execute implements node.ActionTemplate.
func (bidOfAction) Execute(ctx node.Context) error {
	var bid auction.BidResponse

	err := view(ctx, func(c auction.Contract, snap store.ReadSnapshot) error {
		var err error
		bid, err = c.UserBid(snap, ctx.Flags.String(bidderFlag))

		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read bid: %v", err)
	}

	if ctx.Flags.Bool(jsonFlag) {
		return printJSON(ctx.Out, bid)
	}

	fmt.Fprintf(ctx.Out, "%s: %s\n", bid.Bidder, formatCoin(bid.Amount))

	return nil
}

// view calls the function with the contract and the latest committed state.
func view(ctx node.Context, fn func(auction.Contract, store.ReadSnapshot) error) error {
	var srvc ordering.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var contract auction.Contract
	err = ctx.Injector.Resolve(&contract)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	return srvc.View(func(snap store.ReadSnapshot) error {
		return fn(contract, snap)
	})
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return xerrors.Errorf("failed to encode: %v", err)
	}

	return nil
}

// formatCoin returns the amount with thousands separators followed by the
// denomination, for instance "150,000 ubtc".
func formatCoin(coin txn.Coin) string {
	return fmt.Sprintf("%s %s", humanize.BigComma(new(big.Int).SetUint64(coin.Amount)), coin.Denom)
}

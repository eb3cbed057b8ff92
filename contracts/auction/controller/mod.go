// Package controller implements the CLI of the auction contract. It registers
// the contract to the execution service of the node and provides the commands
// to run and follow the auction.
package controller

import (
	"go.dedis.ch/auctioneer/cli"
	"go.dedis.ch/auctioneer/cli/node"
	"go.dedis.ch/auctioneer/contracts/auction"
	"go.dedis.ch/auctioneer/core/execution/native"
	"go.dedis.ch/auctioneer/core/txn"
	poolcontroller "go.dedis.ch/auctioneer/core/txn/pool/controller"
	"go.dedis.ch/auctioneer/crypto/ed25519"
	"golang.org/x/xerrors"
)

const (
	titleFlag       = "title"
	ownerFlag       = "owner"
	commissionFlag  = "commission"
	destinationFlag = "destination"
	bidderFlag      = "bidder"
	jsonFlag        = "json"
)

// miniController is a CLI initializer to register the auction contract
//
// - implements node.Initializer
type miniController struct {
	submitter *poolcontroller.Submitter
}

// NewController creates a new minimal controller for the auction contract.
func NewController() node.Initializer {
	return miniController{
		submitter: poolcontroller.NewSubmitter(),
	}
}

// SetCommands implements node.Initializer. It sets the commands to submit the
// transactions of the auction and to read its state.
func (m miniController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("auction")
	cmd.SetDescription("run the auction of an item")

	sub := cmd.SetSubCommand("init")
	sub.SetDescription("create the auction, the attached ubtc are the first bid")
	sub.SetFlags(append([]cli.Flag{
		cli.StringFlag{
			Name:     titleFlag,
			Usage:    "title of the item",
			Required: true,
		},
		cli.StringFlag{
			Name:  ownerFlag,
			Usage: "identity of the owner, the sender by default",
		},
		cli.StringFlag{
			Name:  commissionFlag,
			Usage: "commission rate between 0 and 1",
			Value: auction.DefaultCommission.String(),
		},
	}, poolcontroller.TxFlags()...)...)
	sub.SetAction(builder.MakeAction(&txAction{
		submitter: m.submitter,
		args: func(flags cli.Flags) []txn.Arg {
			return auction.InitArgs(flags.String(titleFlag), flags.String(ownerFlag),
				flags.String(commissionFlag))
		},
	}))

	sub = cmd.SetSubCommand("bid")
	sub.SetDescription("raise the bid of the sender by the attached ubtc")
	sub.SetFlags(poolcontroller.TxFlags()...)
	sub.SetAction(builder.MakeAction(&txAction{
		submitter: m.submitter,
		args:      func(cli.Flags) []txn.Arg { return auction.BidArgs() },
	}))

	sub = cmd.SetSubCommand("close")
	sub.SetDescription("stop the bidding, only the owner can close")
	sub.SetFlags(poolcontroller.TxFlags()...)
	sub.SetAction(builder.MakeAction(&txAction{
		submitter: m.submitter,
		args:      func(cli.Flags) []txn.Arg { return auction.CloseArgs() },
	}))

	sub = cmd.SetSubCommand("retract")
	sub.SetDescription("withdraw the funds of a losing bid")
	sub.SetFlags(append([]cli.Flag{
		cli.StringFlag{
			Name:  destinationFlag,
			Usage: "identity that receives the funds, the sender by default",
		},
	}, poolcontroller.TxFlags()...)...)
	sub.SetAction(builder.MakeAction(&txAction{
		submitter: m.submitter,
		args: func(flags cli.Flags) []txn.Arg {
			return auction.RetractArgs(flags.String(destinationFlag))
		},
	}))

	sub = cmd.SetSubCommand("status")
	sub.SetDescription("print the state of the auction")
	sub.SetFlags(cli.BoolFlag{
		Name:  jsonFlag,
		Usage: "print in JSON",
	})
	sub.SetAction(builder.MakeAction(statusAction{}))

	sub = cmd.SetSubCommand("bid-of")
	sub.SetDescription("print the bid of an identity")
	sub.SetFlags(
		cli.StringFlag{
			Name:     bidderFlag,
			Usage:    "identity of the bidder",
			Required: true,
		},
		cli.BoolFlag{
			Name:  jsonFlag,
			Usage: "print in JSON",
		},
	)
	sub.SetAction(builder.MakeAction(bidOfAction{}))

	sub = cmd.SetSubCommand("proxy")
	sub.SetDescription("serve the status and the bids over the HTTP proxy")
	sub.SetAction(builder.MakeAction(proxyAction{}))
}

// OnStart implements node.Initializer. It registers the auction contract and
// injects it for the queries.
func (m miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var exec *native.Service
	err := inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	contract := auction.NewContract(ed25519.NewPublicKeyFactory())

	auction.RegisterContract(exec, contract)

	inj.Inject(contract)

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(inj node.Injector) error {
	return nil
}

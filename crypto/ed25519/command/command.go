// Package command defines cli commands for the ed25519 package.
package command

import (
	"os"

	"go.dedis.ch/auctioneer/cli"
	"go.dedis.ch/auctioneer/crypto/ed25519"
)

// Initializer implements the ed25519 initializer for the crypto CLI.
//
// - implements cli.Initializer
type Initializer struct{}

// SetCommands implements cli.Initializer.
func (i Initializer) SetCommands(provider cli.Provider) {
	action := action{
		printer: os.Stdout,

		genSigner: ed25519.NewSigner().MarshalBinary,
		getPubKey: getPubkey,
		readFile:  os.ReadFile,
		saveFile:  saveToFile,
	}

	cmd := provider.SetCommand("signer")
	cmd.SetDescription("manage the ed25519 signers that authenticate bids")

	new := cmd.SetSubCommand("new")
	new.SetDescription("create a new signer")
	new.SetFlags(cli.StringFlag{
		Name:  "save",
		Usage: "if provided, save the signer to that file",
	}, cli.BoolFlag{
		Name:  "force",
		Usage: "in the case it saves the signer, will overwrite if needed",
	})
	new.SetAction(action.newSignerAction)

	read := cmd.SetSubCommand("read")
	read.SetDescription("read a signer")
	read.SetFlags(cli.StringFlag{
		Name:     "path",
		Usage:    "path to the signer's file",
		Required: true,
	}, cli.StringFlag{
		Name:  "format",
		Usage: "output format: [IDENTITY | HEX | HEX_PUBKEY]",
		Value: Identity,
	})
	read.SetAction(action.loadSignerAction)
}

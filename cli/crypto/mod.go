// Package main provides a cli for crypto operations like generating the keys
// of bidders or displaying the identity of a key.
//
//	crypto signer new --save bidder.key
//	crypto signer read --path bidder.key --format IDENTITY
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/auctioneer/cli"
	"go.dedis.ch/auctioneer/cli/ucli"
	ed25519 "go.dedis.ch/auctioneer/crypto/ed25519/command"
)

var builder = newBuilder()
var printer io.Writer = os.Stderr

func main() {
	err := run(os.Args, ed25519.Initializer{})
	if err != nil {
		fmt.Fprintf(printer, "%+v\n", err)
	}
}

func newBuilder() cli.Builder {
	builder := ucli.NewBuilder("crypto", nil)
	builder.(*ucli.Builder).SetUsage("manage the keys of the auction participants")

	return builder
}

func run(args []string, inits ...cli.Initializer) error {
	for _, init := range inits {
		init.SetCommands(builder)
	}

	app := builder.Build()

	return app.Run(args)
}

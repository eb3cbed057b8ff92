package command

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"go.dedis.ch/auctioneer/cli"
	"go.dedis.ch/auctioneer/crypto"
	"go.dedis.ch/auctioneer/crypto/ed25519"
	"golang.org/x/xerrors"
)

// Output formats of the read command.
const (
	// Identity prints the text form of the public key, which is the identity
	// used by the auction.
	Identity = "IDENTITY"
	// Hex prints the whole signer.
	Hex = "HEX"
	// HexPubkey prints the binary form of the public key.
	HexPubkey = "HEX_PUBKEY"
)

// action defines the different cli actions of the signer commands. Defining
// functions and printer helps in testing the commands.
type action struct {
	printer io.Writer

	genSigner func() ([]byte, error)
	getPubKey func([]byte) (crypto.PublicKey, error)

	readFile func(filename string) ([]byte, error)
	saveFile func(path string, force bool, data []byte) error
}

func (a action) newSignerAction(flags cli.Flags) error {
	data, err := a.genSigner()
	if err != nil {
		return xerrors.Errorf("failed to marshal signer: %v", err)
	}

	switch flags.String("save") {
	case "":
		fmt.Fprintln(a.printer, hex.EncodeToString(data))
	default:
		err := a.saveFile(flags.String("save"), flags.Bool("force"), data)
		if err != nil {
			return xerrors.Errorf("failed to save files: %v", err)
		}
	}

	return nil
}

func (a action) loadSignerAction(flags cli.Flags) error {
	data, err := a.readFile(flags.Path("path"))
	if err != nil {
		return xerrors.Errorf("failed to read data: %v", err)
	}

	var out string

	switch flags.String("format") {
	case Identity:
		pubkey, err := a.getPubKey(data)
		if err != nil {
			return xerrors.Errorf("failed to get public key: %v", err)
		}

		text, err := pubkey.MarshalText()
		if err != nil {
			return xerrors.Errorf("failed to marshal public key: %v", err)
		}

		out = string(text)
	case HexPubkey:
		pubkey, err := a.getPubKey(data)
		if err != nil {
			return xerrors.Errorf("failed to get public key: %v", err)
		}

		buf, err := pubkey.MarshalBinary()
		if err != nil {
			return xerrors.Errorf("failed to marshal public key: %v", err)
		}

		out = hex.EncodeToString(buf)
	case Hex:
		out = hex.EncodeToString(data)
	default:
		return xerrors.Errorf("unknown format '%s'", flags.String("format"))
	}

	fmt.Fprintln(a.printer, out)

	return nil
}

func saveToFile(path string, force bool, data []byte) error {
	if !force && fileExist(path) {
		return xerrors.Errorf("file '%s' already exist, use --force if you "+
			"want to overwrite", path)
	}

	err := os.WriteFile(path, data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write file: %v", err)
	}

	return nil
}

func fileExist(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

func getPubkey(data []byte) (crypto.PublicKey, error) {
	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return signer.GetPublicKey(), nil
}

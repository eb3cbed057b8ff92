// Package controller implements a controller for the pool. It provides the
// command to sign and submit a transaction with attached funds, which is how
// any contract of the node is invoked from the command line.
package controller

import (
	"sync"

	"go.dedis.ch/auctioneer/cli"
	"go.dedis.ch/auctioneer/cli/node"
	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/txn/pool"
	"go.dedis.ch/auctioneer/core/txn/signed"
	"golang.org/x/xerrors"
)

const (
	// SignerFlag is the flag name containing the path to the private keyfile.
	SignerFlag = "key"

	// NonceFlag is the flag name containing the nonce.
	NonceFlag = "nonce"

	// FundsFlag is the flag name containing the coins attached to the
	// transaction.
	FundsFlag = "funds"

	// WaitFlag is the flag name containing how long to wait for the
	// transaction to be ordered.
	WaitFlag = "wait"
)

// TxFlags returns the flags shared by the commands that submit a transaction.
func TxFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:     SignerFlag,
			Usage:    "path to the private keyfile",
			Required: true,
		},
		cli.StringSliceFlag{
			Name:  FundsFlag,
			Usage: "coins attached to the transaction, e.g. 100ubtc",
		},
		cli.IntFlag{
			Name:  NonceFlag,
			Usage: "nonce to use, or -1 to use the next one of the signer",
			Value: -1,
		},
		cli.DurationFlag{
			Name:  WaitFlag,
			Usage: "wait for the transaction to be ordered and print its result",
		},
	}
}

type miniController struct{}

// NewController creates a new minimal controller for the pool
//
// - implements node.Initializer
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It sets the command to interact
// with the pool.
func (miniController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("pool")
	cmd.SetDescription("interact with the pool")

	flags := append([]cli.Flag{
		cli.StringSliceFlag{
			Name:  "args",
			Usage: "list of key-value pairs",
		},
	}, TxFlags()...)

	sub := cmd.SetSubCommand("add")
	sub.SetDescription("add a transaction to the pool")
	sub.SetFlags(flags...)
	sub.SetAction(builder.MakeAction(&addAction{}))
}

// OnStart implements node.Initializer
func (m miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	return nil
}

// OnStop implements node.Initializer
func (miniController) OnStop(inj node.Injector) error {
	return nil
}

// nonceClient returns the next nonce of an identity. The store only knows the
// nonces of the ordered transactions, so the client remembers the ones handed
// out for transactions still waiting in the pool. The memory is forgotten when
// the pool is empty as every transaction has then been ordered or dropped.
//
// - implements signed.Client
type nonceClient struct {
	sync.Mutex

	next map[string]uint64
}

func newNonceClient() *nonceClient {
	return &nonceClient{
		next: make(map[string]uint64),
	}
}

// GetNonce returns the highest of the nonce expected by the store and the one
// following the last transaction submitted by the identity.
func (c *nonceClient) GetNonce(store signed.Client, p pool.Pool, ident access.Identity) (uint64, error) {
	key, err := access.AddressOf(ident)
	if err != nil {
		return 0, xerrors.Errorf("invalid identity: %v", err)
	}

	nonce, err := store.GetNonce(ident)
	if err != nil {
		return 0, xerrors.Errorf("store: %v", err)
	}

	c.Lock()
	defer c.Unlock()

	if p.Len() == 0 {
		delete(c.next, key)
	}

	if c.next[key] > nonce {
		nonce = c.next[key]
	}

	return nonce, nil
}

// Used records that the nonce has been consumed by a submitted transaction.
func (c *nonceClient) Used(ident access.Identity, nonce uint64) {
	key, err := access.AddressOf(ident)
	if err != nil {
		return
	}

	c.Lock()
	if nonce+1 > c.next[key] {
		c.next[key] = nonce + 1
	}
	c.Unlock()
}

// boundClient is the nonce client seen by a transaction manager.
//
// - implements signed.Client
type boundClient struct {
	nonces *nonceClient
	store  signed.Client
	pool   pool.Pool
}

// GetNonce implements signed.Client.
func (c boundClient) GetNonce(ident access.Identity) (uint64, error) {
	return c.nonces.GetNonce(c.store, c.pool, ident)
}

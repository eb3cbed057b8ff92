package controller

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/auctioneer/cli/node"
	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/execution"
	"go.dedis.ch/auctioneer/core/ordering"
	"go.dedis.ch/auctioneer/core/txn"
	"go.dedis.ch/auctioneer/core/txn/pool"
	"go.dedis.ch/auctioneer/core/txn/pool/mem"
	"go.dedis.ch/auctioneer/core/txn/signed"
	"go.dedis.ch/auctioneer/core/validation"
	"go.dedis.ch/auctioneer/core/validation/simple"
	"go.dedis.ch/auctioneer/crypto"
	"go.dedis.ch/auctioneer/crypto/ed25519"
	"go.dedis.ch/auctioneer/internal/testing/fake"
)

func TestAddAction_Execute(t *testing.T) {
	dir, err := os.MkdirTemp("", "auctioneer-pool-")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    make(node.FlagSet),
		Out:      io.Discard,
	}

	fset := ctx.Flags.(node.FlagSet)
	fset["args"] = []interface{}{"auction:command", "BID"}
	fset[FundsFlag] = []interface{}{"10ubtc"}
	fset[NonceFlag] = -1.0

	p := mem.NewPool()
	ctx.Injector.Inject(p)
	ctx.Injector.Inject(&fakeService{})

	fset[SignerFlag] = writeSigner(t, dir)

	action := &addAction{}

	err = action.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())

	// The second transaction of the signer must follow the first one that is
	// still in the pool.
	err = action.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	txs := p.Gather(context.Background(), pool.Config{Min: 2})
	require.Len(t, txs, 2)
	require.Equal(t, uint64(0), txs[0].GetNonce())
	require.Equal(t, uint64(1), txs[1].GetNonce())
	require.Equal(t, []byte("BID"), txs[0].GetArg("auction:command"))
	require.Equal(t, uint64(10), txs[0].GetFunds().AmountOf("ubtc"))

	fset[NonceFlag] = 5.0
	err = action.Execute(ctx)
	require.NoError(t, err)

	txs = p.Gather(context.Background(), pool.Config{Min: 3})
	require.Equal(t, uint64(5), txs[2].GetNonce())
}

func TestAddAction_Fails_Execute(t *testing.T) {
	dir, err := os.MkdirTemp("", "auctioneer-pool-")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    make(node.FlagSet),
		Out:      io.Discard,
	}

	fset := ctx.Flags.(node.FlagSet)
	fset[NonceFlag] = -1.0
	fset[SignerFlag] = writeSigner(t, dir)

	action := &addAction{}

	err = action.Execute(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for 'ordering.Service'")

	ctx.Injector.Inject(&fakeService{})

	err = action.Execute(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for 'pool.Pool'")

	ctx.Injector.Inject(&badPool{})
	err = action.Execute(ctx)
	require.EqualError(t, err, "failed to include tx: "+fake.Err("failed to add"))

	defer func() {
		getManager = func(signer crypto.Signer, s signed.Client) txn.Manager {
			return signed.NewManager(signer, s)
		}
	}()

	getManager = func(c crypto.Signer, s signed.Client) txn.Manager {
		return badManager{}
	}

	err = action.Execute(ctx)
	require.EqualError(t, err, "creating transaction: "+fake.Err("make fail"))

	getManager = func(c crypto.Signer, s signed.Client) txn.Manager {
		return badManager{failSync: true}
	}

	err = action.Execute(ctx)
	require.EqualError(t, err, "failed to sync manager: "+fake.Err("sync fail"))

	err = os.WriteFile(fset.Path(SignerFlag), []byte("bad signer"), 0600)
	require.NoError(t, err)

	err = action.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to get signer: failed to unmarshal signer: ")

	fset[SignerFlag] = filepath.Join(dir, "not", "exist")

	err = action.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to get signer: failed to load signer: while opening file: ")

	fset[FundsFlag] = []interface{}{"ten"}

	err = action.Execute(ctx)
	require.EqualError(t, err, "failed to parse funds: invalid coin expression 'ten'")

	fset["args"] = []interface{}{"1"}

	err = action.Execute(ctx)
	require.EqualError(t, err, "failed to get args: number of args should be even")
}

func TestSubmitter_Wait_Submit(t *testing.T) {
	dir, err := os.MkdirTemp("", "auctioneer-pool-")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	p := mem.NewPool()
	srvc := &fakeService{pool: p}

	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags: node.FlagSet{
			SignerFlag: writeSigner(t, dir),
			NonceFlag:  -1.0,
			WaitFlag:   float64(5 * time.Second),
		},
		Out: io.Discard,
	}

	ctx.Injector.Inject(p)
	ctx.Injector.Inject(srvc)

	res, err := NewSubmitter().Submit(ctx, txn.Arg{Key: "auction:command", Value: []byte("CLOSE")})
	require.NoError(t, err)
	require.NotNil(t, res)

	accepted, _ := res.GetStatus()
	require.True(t, accepted)

	out := new(bytes.Buffer)
	PrintResult(out, res)
	require.Contains(t, out.String(), "accepted\n")
	require.Contains(t, out.String(), "  action=close_bidding\n")

	out.Reset()
	PrintResult(out, simple.NewTransactionResult(res.GetTransaction(), false, "Auction is not active"))
	require.Contains(t, out.String(), "refused: Auction is not active\n")
}

func TestSubmitter_Timeout_Submit(t *testing.T) {
	dir, err := os.MkdirTemp("", "auctioneer-pool-")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags: node.FlagSet{
			SignerFlag: writeSigner(t, dir),
			NonceFlag:  -1.0,
			WaitFlag:   float64(50 * time.Millisecond),
		},
		Out: io.Discard,
	}

	ctx.Injector.Inject(mem.NewPool())
	ctx.Injector.Inject(&fakeService{})

	_, err = NewSubmitter().Submit(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not ordered: context deadline exceeded")
}

func TestNonceClient(t *testing.T) {
	nonces := newNonceClient()
	p := mem.NewPool()

	client := boundClient{
		nonces: nonces,
		store:  &fakeService{nonce: 2},
		pool:   p,
	}

	alice := fake.NewPublicKey("alice")

	nonce, err := client.GetNonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce)

	require.NoError(t, p.Add(fake.NewTransaction("alice", nil)))
	nonces.Used(alice, 2)

	nonce, err = client.GetNonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(3), nonce)

	// Once the pool is drained, the store is the reference again.
	require.NoError(t, p.Remove(fake.NewTransaction("alice", nil)))

	nonce, err = client.GetNonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce)

	_, err = client.GetNonce(nil)
	require.EqualError(t, err, "invalid identity: missing identity")

	client.store = &fakeService{err: fake.GetError()}
	_, err = client.GetNonce(alice)
	require.EqualError(t, err, fake.Err("store"))

	nonces.Used(nil, 0)
	require.Len(t, nonces.next, 0)
}

// -----------------------------------------------------------------------------
// Utility functions

func writeSigner(t *testing.T, dir string) string {
	buf, err := ed25519.NewSigner().MarshalBinary()
	require.NoError(t, err)

	keyFile := filepath.Join(dir, "key.buf")

	err = os.WriteFile(keyFile, buf, 0600)
	require.NoError(t, err)

	return keyFile
}

// fakeService is an ordering service that accepts every transaction of the
// pool, when one is given, as soon as it is watched.
type fakeService struct {
	ordering.Service

	pool  pool.Pool
	nonce uint64
	err   error
}

func (s *fakeService) GetNonce(access.Identity) (uint64, error) {
	return s.nonce, s.err
}

func (s *fakeService) Watch(ctx context.Context) <-chan ordering.Event {
	ch := make(chan ordering.Event, 1)

	if s.pool != nil {
		go func() {
			txs := s.pool.Gather(ctx, pool.Config{Min: 1})
			if len(txs) == 0 {
				return
			}

			ch <- ordering.Event{
				Transactions: []validation.TransactionResult{
					simple.NewTransactionResult(txs[0], true, "",
						execution.NewAttribute("action", "close_bidding")),
				},
			}
		}()
	}

	return ch
}

type badPool struct {
	pool.Pool
}

func (p *badPool) Len() int {
	return 0
}

func (p *badPool) Add(txn.Transaction) error {
	return errors.New(fake.Err("failed to add"))
}

type badManager struct {
	txn.Manager
	failSync bool
}

func (m badManager) Sync() error {
	if m.failSync {
		return errors.New(fake.Err("sync fail"))
	}

	return nil
}

func (m badManager) Make(txn.Coins, ...txn.Arg) (txn.Transaction, error) {
	return nil, errors.New(fake.Err("make fail"))
}

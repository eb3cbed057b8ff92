package serial

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/bank"
	"go.dedis.ch/auctioneer/core/execution"
	"go.dedis.ch/auctioneer/core/execution/native"
	"go.dedis.ch/auctioneer/core/ordering"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/store/kv"
	"go.dedis.ch/auctioneer/core/txn"
	"go.dedis.ch/auctioneer/core/txn/pool/mem"
	"go.dedis.ch/auctioneer/core/txn/signed"
	"go.dedis.ch/auctioneer/core/validation"
	"go.dedis.ch/auctioneer/core/validation/simple"
	"go.dedis.ch/auctioneer/crypto/ed25519"
	"go.dedis.ch/auctioneer/internal/testing/fake"
)

func TestService_Scenario(t *testing.T) {
	srvc, db := makeService(t)
	defer db.Close()

	signer := ed25519.NewSigner()
	alice, err := access.AddressOf(signer.GetPublicKey())
	require.NoError(t, err)

	applied, err := srvc.Genesis(map[string]txn.Coins{alice: {txn.NewCoin("ubtc", 100)}})
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = srvc.Genesis(map[string]txn.Coins{alice: {txn.NewCoin("ubtc", 100)}})
	require.NoError(t, err)
	require.False(t, applied)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := srvc.Watch(ctx)

	srvc.Start()
	defer srvc.Close()

	mgr := signed.NewManager(signer, srvc)
	require.NoError(t, mgr.Sync())

	tx, err := mgr.Make(txn.Coins{txn.NewCoin("ubtc", 30)}, txn.Arg{Key: native.ContractArg, Value: []byte("deposit")})
	require.NoError(t, err)
	require.NoError(t, srvc.pool.Add(tx))

	evt := waitEvent(t, events)
	require.Equal(t, uint64(0), evt.Index)
	require.Len(t, evt.Transactions, 1)

	accepted, reason := evt.Transactions[0].GetStatus()
	require.True(t, accepted, reason)

	// Too much funds are attached, the transaction is refused without trace.
	tx, err = mgr.Make(txn.Coins{txn.NewCoin("ubtc", 300)}, txn.Arg{Key: native.ContractArg, Value: []byte("deposit")})
	require.NoError(t, err)
	require.NoError(t, srvc.pool.Add(tx))

	evt = waitEvent(t, events)
	require.Equal(t, uint64(1), evt.Index)

	accepted, reason = evt.Transactions[0].GetStatus()
	require.False(t, accepted)
	require.Contains(t, reason, "failed to deposit funds: ")

	nonce, err := srvc.GetNonce(signer.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	err = srvc.View(func(snap store.ReadSnapshot) error {
		ledger := bank.NewLedger()

		balance, err := ledger.Balance(snap, alice, "ubtc")
		require.NoError(t, err)
		require.Equal(t, uint64(70), balance)

		balance, err = ledger.Balance(snap, bank.ContractAccount("deposit"), "ubtc")
		require.NoError(t, err)
		require.Equal(t, uint64(30), balance)

		value, err := native.NewReadable(depositContract{}, snap).Get([]byte("count"))
		require.NoError(t, err)
		require.Equal(t, []byte{1}, value)

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, srvc.pool.Len())

	require.NoError(t, srvc.Close())
	require.NoError(t, srvc.Close())

	// The index is restored from the database.
	other, err := NewService(ServiceParam{Pool: mem.NewPool(), Validation: srvc.val, DB: db})
	require.NoError(t, err)
	require.Equal(t, uint64(2), other.index)
}

func TestService_UnknownContract(t *testing.T) {
	srvc, db := makeService(t)
	defer db.Close()

	alice := ed25519.NewSigner()
	bob := ed25519.NewSigner()

	genesis := make(map[string]txn.Coins)
	for _, signer := range []ed25519.Signer{alice, bob} {
		addr, err := access.AddressOf(signer.GetPublicKey())
		require.NoError(t, err)

		genesis[addr] = txn.Coins{txn.NewCoin("ubtc", 100)}
	}

	_, err := srvc.Genesis(genesis)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := srvc.Watch(ctx)

	unknown, err := signed.NewTransaction(0, alice.GetPublicKey(),
		signed.WithArg(native.ContractArg, []byte("nope")),
		signed.WithFunds(txn.Coins{txn.NewCoin("ubtc", 10)}))
	require.NoError(t, err)
	require.NoError(t, unknown.Sign(alice))

	// A transaction without any contract argument.
	missing, err := signed.NewTransaction(0, alice.GetPublicKey())
	require.NoError(t, err)
	require.NoError(t, missing.Sign(alice))

	require.NoError(t, srvc.pool.Add(unknown))
	require.NoError(t, srvc.pool.Add(missing))

	srvc.Start()
	defer srvc.Close()

	evt := waitEvent(t, events)
	require.Len(t, evt.Transactions, 2)

	for _, res := range evt.Transactions {
		accepted, reason := res.GetStatus()
		require.False(t, accepted)
		require.Contains(t, reason, "unknown contract '")
	}

	mgr := signed.NewManager(bob, srvc)
	require.NoError(t, mgr.Sync())

	tx, err := mgr.Make(txn.Coins{txn.NewCoin("ubtc", 5)},
		txn.Arg{Key: native.ContractArg, Value: []byte("deposit")})
	require.NoError(t, err)
	require.NoError(t, srvc.pool.Add(tx))

	evt = waitEvent(t, events)
	require.Equal(t, uint64(1), evt.Index)

	accepted, reason := evt.Transactions[0].GetStatus()
	require.True(t, accepted, reason)

	// The refused transaction moved no funds and left the nonce untouched.
	nonce, err := srvc.GetNonce(alice.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)

	err = srvc.View(func(snap store.ReadSnapshot) error {
		balance, err := bank.NewLedger().Balance(snap, bank.ContractAccount("nope"), "ubtc")
		require.NoError(t, err)
		require.Equal(t, uint64(0), balance)

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, srvc.pool.Len())
}

func TestService_FailedBatch_Main(t *testing.T) {
	srvc, db := makeService(t)
	defer db.Close()

	logger, check := fake.CheckLog("batch failed, transactions are dropped")
	srvc.logger = logger

	val := srvc.val
	srvc.val = badValidation{}

	require.NoError(t, srvc.pool.Add(fake.NewTransaction("alice", nil)))

	srvc.Start()

	for i := 0; i < 100 && srvc.pool.Len() > 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}

	require.NoError(t, srvc.Close())
	require.Equal(t, 0, srvc.pool.Len())
	require.Equal(t, uint64(0), srvc.index)

	check(t)

	// The loop keeps ordering after a failed batch.
	srvc.val = val

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := srvc.Watch(ctx)

	srvc.Start()
	defer srvc.Close()

	tx := fake.NewTransaction("bob", nil, txn.Arg{Key: native.ContractArg, Value: []byte("deposit")})
	tx.ID = []byte{0x1}

	require.NoError(t, srvc.pool.Add(tx))

	evt := waitEvent(t, events)
	require.Equal(t, uint64(0), evt.Index)
}

func TestService_View_Empty(t *testing.T) {
	srvc, db := makeService(t)
	defer db.Close()

	err := srvc.View(func(snap store.ReadSnapshot) error {
		value, err := snap.Get([]byte("key"))
		require.NoError(t, err)
		require.Nil(t, value)

		return nil
	})
	require.NoError(t, err)

	nonce, err := srvc.GetNonce(fake.NewPublicKey("alice"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)

	_, err = srvc.GetNonce(fake.NewBadPublicKey())
	require.EqualError(t, err, fake.Err("failed to read nonce: key: failed to marshal identity"))
}

func TestService_Genesis_Fails(t *testing.T) {
	srvc, db := makeService(t)
	require.NoError(t, db.Close())

	_, err := srvc.Genesis(map[string]txn.Coins{"alice": {txn.NewCoin("ubtc", 1)}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to apply genesis: ")
}

func TestService_DoBatch_Fails(t *testing.T) {
	srvc, db := makeService(t)
	defer db.Close()

	srvc.val = badValidation{}

	err := srvc.doBatch([]txn.Transaction{fake.NewTransaction("alice", nil)})
	require.EqualError(t, err, fake.Err("failed to commit: validation"))
	require.Equal(t, uint64(0), srvc.index)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeService(t *testing.T) (*Service, kv.DB) {
	db, err := kv.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	exec := native.NewExecution()
	exec.Set("deposit", depositContract{})

	srvc, err := NewService(ServiceParam{
		Pool:       mem.NewPool(),
		Validation: simple.NewService(exec),
		DB:         db,
	})
	require.NoError(t, err)

	return srvc, db
}

func waitEvent(t *testing.T, events <-chan ordering.Event) ordering.Event {
	select {
	case evt := <-events:
		return evt
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	return ordering.Event{}
}

// depositContract counts the number of deposits.
type depositContract struct{}

func (depositContract) Execute(snap store.Snapshot, step execution.Step) (native.Response, error) {
	value, err := snap.Get([]byte("count"))
	if err != nil {
		return native.Response{}, err
	}

	count := byte(0)
	if len(value) == 1 {
		count = value[0]
	}

	return native.Response{}, snap.Set([]byte("count"), []byte{count + 1})
}

func (depositContract) UID() string {
	return "DPST"
}

type badValidation struct {
	validation.Service
}

func (badValidation) Validate(store.Snapshot, []txn.Transaction) (validation.Result, error) {
	return nil, fake.GetError()
}

// Package bank implements the balances of the accounts of the ledger.
//
// An account is either the text form of an identity, or the custody account of
// a contract. The funds attached to a transaction are moved to the custody
// account of the contract before it executes, and the contract pays back with
// transfers that the ledger applies after a successful execution.
//
// Balances are stored in the "bank" namespace of the store, one key per account
// and denomination.
package bank

import (
	"encoding/binary"
	"math"

	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/store/prefixed"
	"go.dedis.ch/auctioneer/core/txn"
	"golang.org/x/xerrors"
)

// Namespace is the namespace of the balances in the store.
const Namespace = "bank"

const contractPrefix = "contract:"

// ErrInsufficientFunds is returned when an account cannot pay a transfer.
var ErrInsufficientFunds = xerrors.New("insufficient funds")

// ContractAccount returns the custody account of the contract.
func ContractAccount(name string) string {
	return contractPrefix + name
}

// Transfer is an instruction to send coins from the custody account of a
// contract to a recipient.
type Transfer struct {
	To     string
	Amount txn.Coins
}

// Ledger reads and updates the balances stored in a snapshot.
type Ledger struct{}

// NewLedger returns a new ledger.
func NewLedger() Ledger {
	return Ledger{}
}

// Balance returns the amount of the denomination owned by the account.
func (Ledger) Balance(snap store.ReadSnapshot, account, denom string) (uint64, error) {
	return readAmount(prefixed.NewReadable(Namespace, snap), balanceKey(account, denom))
}

// Balances returns all the coins owned by the account.
func (Ledger) Balances(snap store.ReadSnapshot, account string) (txn.Coins, error) {
	prefix := balanceKey(account, "")
	coins := txn.Coins{}

	err := prefixed.NewReadable(Namespace, snap).Scan(prefix, func(key, value []byte) error {
		if len(value) != 8 {
			return xerrors.Errorf("invalid balance of %d bytes", len(value))
		}

		var err error
		coins, err = coins.Add(txn.NewCoin(string(key[len(prefix):]), binary.BigEndian.Uint64(value)))

		return err
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to scan balances: %v", err)
	}

	return coins, nil
}

// Mint creates the coins in the account.
func (Ledger) Mint(snap store.Snapshot, account string, coins txn.Coins) error {
	bank := prefixed.NewSnapshot(Namespace, snap)

	for _, coin := range coins {
		err := credit(bank, account, coin)
		if err != nil {
			return xerrors.Errorf("failed to mint %v: %v", coin, err)
		}
	}

	return nil
}

// Send moves the coins from one account to another. The snapshot is left
// untouched when the sender cannot pay the whole amount.
func (Ledger) Send(snap store.Snapshot, from, to string, coins txn.Coins) error {
	bank := prefixed.NewSnapshot(Namespace, snap)

	for _, coin := range coins {
		balance, err := readAmount(bank, balanceKey(from, coin.Denom))
		if err != nil {
			return xerrors.Errorf("failed to read balance: %v", err)
		}

		if balance < coin.Amount {
			return xerrors.Errorf("account '%s' has %d%s, needs %v: %w",
				from, balance, coin.Denom, coin, ErrInsufficientFunds)
		}
	}

	for _, coin := range coins {
		err := debit(bank, from, coin)
		if err != nil {
			return xerrors.Errorf("failed to debit %v: %v", coin, err)
		}

		err = credit(bank, to, coin)
		if err != nil {
			return xerrors.Errorf("failed to credit %v: %v", coin, err)
		}
	}

	return nil
}

func credit(bank store.Snapshot, account string, coin txn.Coin) error {
	key := balanceKey(account, coin.Denom)

	balance, err := readAmount(bank, key)
	if err != nil {
		return err
	}

	if balance > math.MaxUint64-coin.Amount {
		return xerrors.Errorf("balance overflow for account '%s'", account)
	}

	return writeAmount(bank, key, balance+coin.Amount)
}

func debit(bank store.Snapshot, account string, coin txn.Coin) error {
	key := balanceKey(account, coin.Denom)

	balance, err := readAmount(bank, key)
	if err != nil {
		return err
	}

	if balance < coin.Amount {
		return xerrors.Errorf("account '%s': %w", account, ErrInsufficientFunds)
	}

	return writeAmount(bank, key, balance-coin.Amount)
}

func balanceKey(account, denom string) []byte {
	return prefixed.NewPrefixedKey([]byte(account), []byte(denom))
}

func readAmount(snap store.Readable, key []byte) (uint64, error) {
	value, err := snap.Get(key)
	if err != nil {
		return 0, xerrors.Errorf("store: %v", err)
	}

	if value == nil {
		return 0, nil
	}

	if len(value) != 8 {
		return 0, xerrors.Errorf("invalid balance of %d bytes", len(value))
	}

	return binary.BigEndian.Uint64(value), nil
}

func writeAmount(snap store.Writable, key []byte, amount uint64) error {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, amount)

	err := snap.Set(key, buffer)
	if err != nil {
		return xerrors.Errorf("store: %v", err)
	}

	return nil
}

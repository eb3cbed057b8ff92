package auction

import (
	"math"

	"github.com/fxamacker/cbor/v2"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/store/prefixed"
	"golang.org/x/xerrors"
)

// bidsNamespace is the name of the ordered map of the bids inside the
// namespace of the contract.
const bidsNamespace = "bids"

// storedBid is the value of an entry of the ledger.
type storedBid struct {
	Denom  string `cbor:"denom"`
	Amount uint64 `cbor:"amount"`
}

// Bid is the cumulative contribution of a bidder.
type Bid struct {
	Bidder string
	Amount uint64
}

// BidLedger maps the address of a bidder to its cumulative contribution in
// the bid denomination. An entry is never deleted: a retraction sets the
// amount to zero.
type BidLedger struct{}

// NewBidLedger returns a new ledger.
func NewBidLedger() BidLedger {
	return BidLedger{}
}

// HighestBid returns the entry with the greatest amount. The entries are
// visited in ascending order of the addresses and an entry equal to the
// current maximum replaces it, which means that a tie goes to the greatest
// address.
func (l BidLedger) HighestBid(snap store.ReadSnapshot) (Bid, error) {
	var highest *Bid

	err := l.scan(snap, func(bid Bid) {
		if highest == nil || bid.Amount >= highest.Amount {
			highest = &bid
		}
	})
	if err != nil {
		return Bid{}, err
	}

	if highest == nil {
		return Bid{}, ErrEmptyLedger
	}

	return *highest, nil
}

// Get returns the amount of the bidder, and false when the bidder has no
// entry.
func (l BidLedger) Get(snap store.Readable, bidder string) (uint64, bool, error) {
	data, err := snap.Get(bidKey(bidder))
	if err != nil {
		return 0, false, xerrors.Errorf("failed to read bid: %v", err)
	}

	if data == nil {
		return 0, false, nil
	}

	var bid storedBid
	err = cbor.Unmarshal(data, &bid)
	if err != nil {
		return 0, false, xerrors.Errorf("failed to decode bid: %v", err)
	}

	return bid.Amount, true, nil
}

// Set overwrites the amount of the bidder.
func (l BidLedger) Set(snap store.Writable, bidder string, amount uint64) error {
	data, err := encMode.Marshal(storedBid{Denom: Denom, Amount: amount})
	if err != nil {
		return xerrors.Errorf("failed to encode bid: %v", err)
	}

	err = snap.Set(bidKey(bidder), data)
	if err != nil {
		return xerrors.Errorf("failed to write bid: %v", err)
	}

	return nil
}

// Count returns the number of entries, including the ones that were zeroed by
// a retraction.
func (l BidLedger) Count(snap store.ReadSnapshot) (int, error) {
	count := 0

	err := l.scan(snap, func(Bid) { count++ })
	if err != nil {
		return 0, err
	}

	return count, nil
}

// RecordBid adds the incoming amount to the standing of the sender and
// returns the new amount alongside the previous one. The entry is only
// written when the new amount strictly exceeds the highest bid, otherwise a
// BidTooLowError is returned.
func (l BidLedger) RecordBid(snap store.Snapshot, sender string, incoming uint64) (uint64, uint64, error) {
	leader, err := l.HighestBid(snap)
	if err != nil {
		return 0, 0, xerrors.Errorf("failed to get highest bid: %v", err)
	}

	var previous uint64

	if leader.Bidder == sender {
		previous = leader.Amount
	} else {
		previous, _, err = l.Get(snap, sender)
		if err != nil {
			return 0, 0, err
		}
	}

	if previous > math.MaxUint64-incoming {
		return 0, 0, ErrInvalidBidAmount
	}

	amount := previous + incoming

	if leader.Amount >= amount {
		return 0, 0, BidTooLowError{
			Minimum: leader.Amount,
			Denom:   Denom,
			Current: previous,
		}
	}

	err = l.Set(snap, sender, amount)
	if err != nil {
		return 0, 0, err
	}

	return amount, previous, nil
}

func (l BidLedger) scan(snap store.Iterable, fn func(Bid)) error {
	prefix := bidKey("")

	err := snap.Scan(prefix, func(key, value []byte) error {
		var bid storedBid

		err := cbor.Unmarshal(value, &bid)
		if err != nil {
			return xerrors.Errorf("failed to decode bid of '%s': %v", key[len(prefix):], err)
		}

		fn(Bid{Bidder: string(key[len(prefix):]), Amount: bid.Amount})

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to scan bids: %v", err)
	}

	return nil
}

func bidKey(bidder string) []byte {
	return prefixed.NewPrefixedKey([]byte(bidsNamespace), []byte(bidder))
}

package auction

import (
	"go.dedis.ch/auctioneer/core/execution/native"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/txn"
	"golang.org/x/xerrors"
)

// BidResponse is the standing of a bidder.
type BidResponse struct {
	Bidder string   `json:"bidder"`
	Amount txn.Coin `json:"amount"`
}

// StatusResponse is the public state of the auction.
type StatusResponse struct {
	Owner          string      `json:"owner"`
	Active         bool        `json:"active"`
	ItemTitle      string      `json:"item_title"`
	HighestBid     BidResponse `json:"highest_bid"`
	BiddersCount   int         `json:"bidders_count"`
	CommissionRate string      `json:"commission_rate"`
}

// Status returns the public state of the auction from a snapshot of the whole
// store.
//
// The queries wrap with %w, unlike the commands, so that a caller can tell
// ErrNotInitialized apart with xerrors.Is.
func (c Contract) Status(snap store.ReadSnapshot) (StatusResponse, error) {
	ns := native.NewReadable(c, snap)

	cfg, err := c.state.loadConfig(ns)
	if err != nil {
		return StatusResponse{}, xerrors.Errorf("failed to load config: %w", err)
	}

	active, err := c.state.isActive(ns)
	if err != nil {
		return StatusResponse{}, xerrors.Errorf("failed to read state: %w", err)
	}

	highest, err := c.ledger.HighestBid(ns)
	if err != nil {
		return StatusResponse{}, xerrors.Errorf("failed to get highest bid: %w", err)
	}

	count, err := c.ledger.Count(ns)
	if err != nil {
		return StatusResponse{}, err
	}

	resp := StatusResponse{
		Owner:     cfg.Owner,
		Active:    active,
		ItemTitle: cfg.ItemTitle,
		HighestBid: BidResponse{
			Bidder: highest.Bidder,
			Amount: txn.NewCoin(Denom, highest.Amount),
		},
		BiddersCount:   count,
		CommissionRate: cfg.CommissionRate.String(),
	}

	return resp, nil
}

// UserBid returns the standing of the bidder, which is zero when the bidder
// never took part.
func (c Contract) UserBid(snap store.ReadSnapshot, bidder string) (BidResponse, error) {
	amount, _, err := c.ledger.Get(native.NewReadable(c, snap), bidder)
	if err != nil {
		return BidResponse{}, err
	}

	resp := BidResponse{
		Bidder: bidder,
		Amount: txn.NewCoin(Denom, amount),
	}

	return resp, nil
}

// ContractInfo returns the contract and the version that initialized the
// auction.
func (c Contract) ContractInfo(snap store.ReadSnapshot) (Info, error) {
	info, err := c.state.loadInfo(native.NewReadable(c, snap))
	if err != nil {
		return Info{}, xerrors.Errorf("failed to load info: %w", err)
	}

	return info, nil
}

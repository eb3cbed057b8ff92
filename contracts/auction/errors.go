package auction

import (
	"fmt"

	"golang.org/x/xerrors"
)

// The messages of the errors are returned verbatim to the sender of the
// transaction as the reason of the refusal.
var (
	// ErrUnauthorized is matched by the error returned when a command is
	// reserved to the owner of the auction.
	ErrUnauthorized = xerrors.New("unauthorized")

	// ErrAuctionInactive is returned when a bid or a close is attempted on a
	// closed auction.
	ErrAuctionInactive = xerrors.New("Auction is not active")

	// ErrAuctionActive is returned when funds are retracted while the auction
	// is still open.
	ErrAuctionActive = xerrors.New("Cannot perform action while auction is active")

	// ErrInvalidBidAmount is returned when a bid does not carry a positive
	// amount of the bid denomination.
	ErrInvalidBidAmount = xerrors.New("Invalid bid amount")

	// ErrBidTooLow is matched by the error returned when a bid does not
	// exceed the highest bid.
	ErrBidTooLow = xerrors.New("bid too low")

	// ErrNothingToWithdraw is returned when the sender of a retraction is the
	// leader, or has no funds left in the auction.
	ErrNothingToWithdraw = xerrors.New("Nothing to withdraw")

	// ErrAlreadyInitialized is returned when the auction is initialized a
	// second time.
	ErrAlreadyInitialized = xerrors.New("auction already initialized")

	// ErrNotInitialized is returned when a command or a query reaches an
	// auction that has not been initialized.
	ErrNotInitialized = xerrors.New("auction not initialized")

	// ErrInvalidCommission is returned when the commission rate is not a
	// decimal between zero and one.
	ErrInvalidCommission = xerrors.New("invalid commission rate")

	// ErrEmptyLedger is returned when the highest bid of a ledger without any
	// entry is requested.
	ErrEmptyLedger = xerrors.New("no bid in the ledger")
)

// UnauthorizedError is returned when the sender is not the owner of the
// auction.
type UnauthorizedError struct {
	Owner string
}

// Error implements error.
func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("Unauthorized. Action only permitted for %s", e.Owner)
}

// Is returns true when the target is ErrUnauthorized.
func (e UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// BidTooLowError is returned when a bid does not strictly exceed the highest
// bid. It carries the amount to beat and the previous standing of the bidder.
type BidTooLowError struct {
	Minimum uint64
	Denom   string
	Current uint64
}

// Error implements error.
func (e BidTooLowError) Error() string {
	return fmt.Sprintf("Bid too low. Minimum bid is %d %s. Your current bid is %d",
		e.Minimum, e.Denom, e.Current)
}

// Is returns true when the target is ErrBidTooLow.
func (e BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}

// Package auction implements a native contract that runs an open ascending
// auction of a single item.
//
// The auction is created open by an INIT command and the bidders send BID
// commands carrying funds in the bid denomination. The contribution of a
// bidder is cumulative and a bid is accepted only when the new total strictly
// exceeds the highest bid. The owner closes the auction with CLOSE, after
// which every bidder except the winner can take their funds back with
// RETRACT.
package auction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.dedis.ch/auctioneer"
	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/bank"
	"go.dedis.ch/auctioneer/core/execution"
	"go.dedis.ch/auctioneer/core/execution/native"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/txn"
	"golang.org/x/xerrors"
)

// commands defines the commands of the auction contract. This interface helps
// in testing the contract.
type commands interface {
	initialize(snap store.Snapshot, step execution.Step) (native.Response, error)
	bid(snap store.Snapshot, step execution.Step) (native.Response, error)
	close(snap store.Snapshot, step execution.Step) (native.Response, error)
	retract(snap store.Snapshot, step execution.Step) (native.Response, error)
}

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/auctioneer.Auction"

	// ContractUID is the unique identifier of the contract, which is also the
	// namespace of its state.
	ContractUID = "AUCT"

	// Version is written in the state at initialization.
	Version = "0.1.0"

	// Denom is the only denomination accepted as bid.
	Denom = "ubtc"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "auction:command"

	// OwnerArg is the argument's name of the owner at initialization. The
	// sender is the owner when it is missing.
	OwnerArg = "auction:owner"

	// TitleArg is the argument's name of the title of the item.
	TitleArg = "auction:title"

	// CommissionArg is the argument's name of the commission rate at
	// initialization, as a decimal between 0 and 1.
	CommissionArg = "auction:commission"

	// DestinationArg is the argument's name of the recipient of a retraction.
	// The sender receives the funds when it is missing.
	DestinationArg = "auction:destination"
)

// DefaultCommission is the commission rate when none is provided.
var DefaultCommission = decimal.RequireFromString("0.05")

// Command defines a type of command for the auction contract.
type Command string

const (
	// CmdInit defines the command to create the auction.
	CmdInit Command = "INIT"

	// CmdBid defines the command to raise the bid of the sender.
	CmdBid Command = "BID"

	// CmdClose defines the command to stop accepting bids.
	CmdClose Command = "CLOSE"

	// CmdRetract defines the command to withdraw the funds of a losing bidder.
	CmdRetract Command = "RETRACT"
)

var promCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "auctioneer_auction_commands_total",
	Help: "total number of auction commands by status",
}, []string{"command", "status"})

func init() {
	auctioneer.PromCollectors = append(auctioneer.PromCollectors, promCommands)
}

// RegisterContract registers the auction contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the auction smart contract.
//
// - implements native.Contract
type Contract struct {
	// factory parses the identities given as arguments.
	factory access.IdentityFactory

	state  state
	ledger BidLedger
	logger zerolog.Logger

	// cmd provides the commands executions
	cmd commands
}

// NewContract creates a new auction contract.
func NewContract(factory access.IdentityFactory) Contract {
	contract := Contract{
		factory: factory,
		ledger:  NewBidLedger(),
		logger:  auctioneer.Logger.With().Str("contract", "auction").Logger(),
	}

	contract.cmd = auctionCommand{Contract: &contract}

	return contract
}

// UID implements native.Contract.
func (c Contract) UID() string {
	return ContractUID
}

// Execute implements native.Contract. It runs the appropriate command. The
// error of a command is returned as is so that the message reaches the sender.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) (native.Response, error) {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return native.Response{}, xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	var resp native.Response
	var err error

	switch Command(cmd) {
	case CmdInit:
		resp, err = c.cmd.initialize(snap, step)
	case CmdBid:
		resp, err = c.cmd.bid(snap, step)
	case CmdClose:
		resp, err = c.cmd.close(snap, step)
	case CmdRetract:
		resp, err = c.cmd.retract(snap, step)
	default:
		return native.Response{}, xerrors.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		promCommands.WithLabelValues(string(cmd), "rejected").Inc()
		c.logger.Debug().Err(err).Str("command", string(cmd)).Msg("command rejected")

		return native.Response{}, err
	}

	promCommands.WithLabelValues(string(cmd), "accepted").Inc()

	return resp, nil
}

// auctionCommand implements the commands of the auction contract
//
// - implements commands
type auctionCommand struct {
	*Contract
}

// initialize implements commands. It creates the auction and seeds the ledger
// with the funds attached by the sender.
func (c auctionCommand) initialize(snap store.Snapshot, step execution.Step) (native.Response, error) {
	found, err := c.state.initialized(snap)
	if err != nil {
		return native.Response{}, xerrors.Errorf("failed to read state: %v", err)
	}
	if found {
		return native.Response{}, ErrAlreadyInitialized
	}

	sender, err := access.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return native.Response{}, xerrors.Errorf("invalid sender: %v", err)
	}

	title := step.Current.GetArg(TitleArg)
	if len(title) == 0 {
		return native.Response{}, xerrors.Errorf("'%s' not found in tx arg", TitleArg)
	}

	owner := sender

	text := step.Current.GetArg(OwnerArg)
	if len(text) > 0 {
		owner, err = c.addressOf(text)
		if err != nil {
			return native.Response{}, xerrors.Errorf("invalid owner: %v", err)
		}
	}

	rate := DefaultCommission

	text = step.Current.GetArg(CommissionArg)
	if len(text) > 0 {
		rate, err = decimal.NewFromString(string(text))
		if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return native.Response{}, ErrInvalidCommission
		}
	}

	cfg := Config{
		Owner:          owner,
		ItemTitle:      string(title),
		CommissionRate: rate,
	}

	err = c.state.saveConfig(snap, cfg)
	if err != nil {
		return native.Response{}, xerrors.Errorf("failed to save config: %v", err)
	}

	err = c.state.setActive(snap, true)
	if err != nil {
		return native.Response{}, xerrors.Errorf("failed to open auction: %v", err)
	}

	err = c.state.saveInfo(snap, Info{Contract: ContractName, Version: Version})
	if err != nil {
		return native.Response{}, xerrors.Errorf("failed to save info: %v", err)
	}

	err = c.ledger.Set(snap, sender, step.Current.GetFunds().AmountOf(Denom))
	if err != nil {
		return native.Response{}, xerrors.Errorf("failed to seed ledger: %v", err)
	}

	c.logger.Info().
		Str("owner", owner).
		Str("title", cfg.ItemTitle).
		Msg("auction created")

	resp := native.Response{
		Attributes: []execution.Attribute{
			execution.NewAttribute("method", "instantiate"),
			execution.NewAttribute("sender", sender),
		},
	}

	return resp, nil
}

// bid implements commands. It adds the funds attached in the bid denomination
// to the standing of the sender. The funds are already in the custody of the
// contract.
func (c auctionCommand) bid(snap store.Snapshot, step execution.Step) (native.Response, error) {
	active, err := c.state.isActive(snap)
	if err != nil {
		return native.Response{}, err
	}
	if !active {
		return native.Response{}, ErrAuctionInactive
	}

	incoming := step.Current.GetFunds().AmountOf(Denom)
	if incoming == 0 {
		return native.Response{}, ErrInvalidBidAmount
	}

	sender, err := access.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return native.Response{}, xerrors.Errorf("invalid sender: %v", err)
	}

	amount, previous, err := c.ledger.RecordBid(snap, sender, incoming)
	if err != nil {
		return native.Response{}, err
	}

	c.logger.Info().
		Str("bidder", sender).
		Uint64("previous", previous).
		Uint64("amount", amount).
		Msg("bid accepted")

	resp := native.Response{
		Attributes: []execution.Attribute{
			execution.NewAttribute("action", "bid"),
			execution.NewAttribute("sender", sender),
			execution.NewAttribute("bid_amount", txn.NewCoin(Denom, amount).String()),
		},
	}

	return resp, nil
}

// close implements commands. It stops the bidding when the sender is the
// owner.
func (c auctionCommand) close(snap store.Snapshot, step execution.Step) (native.Response, error) {
	owner, err := c.state.loadOwner(snap)
	if err != nil {
		return native.Response{}, err
	}

	sender, err := access.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return native.Response{}, xerrors.Errorf("invalid sender: %v", err)
	}

	if sender != owner {
		return native.Response{}, UnauthorizedError{Owner: owner}
	}

	active, err := c.state.isActive(snap)
	if err != nil {
		return native.Response{}, err
	}
	if !active {
		return native.Response{}, ErrAuctionInactive
	}

	err = c.state.setActive(snap, false)
	if err != nil {
		return native.Response{}, xerrors.Errorf("failed to close auction: %v", err)
	}

	c.logger.Info().Msg("auction closed")

	resp := native.Response{
		Attributes: []execution.Attribute{
			execution.NewAttribute("action", "close_bidding"),
			execution.NewAttribute("sender", sender),
		},
	}

	return resp, nil
}

// retract implements commands. It pays back the standing of a losing bidder
// once the auction is closed.
func (c auctionCommand) retract(snap store.Snapshot, step execution.Step) (native.Response, error) {
	active, err := c.state.isActive(snap)
	if err != nil {
		return native.Response{}, err
	}
	if active {
		return native.Response{}, ErrAuctionActive
	}

	sender, err := access.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return native.Response{}, xerrors.Errorf("invalid sender: %v", err)
	}

	leader, err := c.ledger.HighestBid(snap)
	if err != nil {
		return native.Response{}, xerrors.Errorf("failed to get highest bid: %v", err)
	}

	if leader.Bidder == sender {
		return native.Response{}, ErrNothingToWithdraw
	}

	amount, _, err := c.ledger.Get(snap, sender)
	if err != nil {
		return native.Response{}, err
	}
	if amount == 0 {
		return native.Response{}, ErrNothingToWithdraw
	}

	to := sender

	text := step.Current.GetArg(DestinationArg)
	if len(text) > 0 {
		to, err = c.addressOf(text)
		if err != nil {
			return native.Response{}, xerrors.Errorf("invalid destination: %v", err)
		}
	}

	// The entry is zeroed before the transfer is emitted.
	err = c.ledger.Set(snap, sender, 0)
	if err != nil {
		return native.Response{}, err
	}

	c.logger.Info().
		Str("bidder", sender).
		Str("to", to).
		Uint64("amount", amount).
		Msg("funds retracted")

	resp := native.Response{
		Attributes: []execution.Attribute{
			execution.NewAttribute("action", "retract_funds"),
			execution.NewAttribute("sender", sender),
		},
		Transfers: []bank.Transfer{
			{To: to, Amount: txn.Coins{txn.NewCoin(Denom, amount)}},
		},
	}

	return resp, nil
}

// addressOf parses the identity and returns its canonical address.
func (c auctionCommand) addressOf(text []byte) (string, error) {
	ident, err := c.factory.IdentityOf(text)
	if err != nil {
		return "", err
	}

	return access.AddressOf(ident)
}

package auction

import (
	"go.dedis.ch/auctioneer/core/execution/native"
	"go.dedis.ch/auctioneer/core/txn"
)

// InitArgs returns the arguments of a transaction that creates the auction.
// The owner and the commission are optional and left to their default when
// empty.
func InitArgs(title, owner, commission string) []txn.Arg {
	args := commandArgs(CmdInit, txn.Arg{Key: TitleArg, Value: []byte(title)})

	if owner != "" {
		args = append(args, txn.Arg{Key: OwnerArg, Value: []byte(owner)})
	}

	if commission != "" {
		args = append(args, txn.Arg{Key: CommissionArg, Value: []byte(commission)})
	}

	return args
}

// BidArgs returns the arguments of a bid. The amount is the funds of the
// transaction.
func BidArgs() []txn.Arg {
	return commandArgs(CmdBid)
}

// CloseArgs returns the arguments of a transaction that closes the auction.
func CloseArgs() []txn.Arg {
	return commandArgs(CmdClose)
}

// RetractArgs returns the arguments of a retraction. The sender receives the
// funds when the destination is empty.
func RetractArgs(destination string) []txn.Arg {
	if destination == "" {
		return commandArgs(CmdRetract)
	}

	return commandArgs(CmdRetract, txn.Arg{Key: DestinationArg, Value: []byte(destination)})
}

func commandArgs(cmd Command, extra ...txn.Arg) []txn.Arg {
	args := []txn.Arg{
		{Key: native.ContractArg, Value: []byte(ContractName)},
		{Key: CmdArg, Value: []byte(cmd)},
	}

	return append(args, extra...)
}

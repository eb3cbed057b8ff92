package txn

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

var coinRegex = regexp.MustCompile(`^([0-9]+)([a-zA-Z][a-zA-Z0-9/:._-]{2,127})$`)

// Coin is an amount of a given denomination.
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount,string"`
}

// NewCoin returns a coin of the amount in the denomination.
func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: amount}
}

// String implements fmt.Stringer. It returns the amount followed by the
// denomination, for instance "100ubtc".
func (c Coin) String() string {
	return fmt.Sprintf("%d%s", c.Amount, c.Denom)
}

// Coins is a list of coins with distinct denominations.
type Coins []Coin

// ParseCoins parses a comma-separated list of coins like "100ubtc,5uatom".
// Coins of the same denomination are merged and zero amounts are dropped.
func ParseCoins(str string) (Coins, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return nil, nil
	}

	coins := Coins{}

	for _, part := range strings.Split(str, ",") {
		matches := coinRegex.FindStringSubmatch(strings.TrimSpace(part))
		if matches == nil {
			return nil, xerrors.Errorf("invalid coin expression '%s'", part)
		}

		amount, err := strconv.ParseUint(matches[1], 10, 64)
		if err != nil {
			return nil, xerrors.Errorf("invalid amount '%s': %v", matches[1], err)
		}

		coins, err = coins.Add(NewCoin(matches[2], amount))
		if err != nil {
			return nil, xerrors.Errorf("failed to add '%s': %v", part, err)
		}
	}

	return coins, nil
}

// AmountOf returns the amount of the denomination, or zero when absent.
func (cs Coins) AmountOf(denom string) uint64 {
	for _, c := range cs {
		if c.Denom == denom {
			return c.Amount
		}
	}

	return 0
}

// Add returns the sorted list of coins with the coin added. It returns an error
// if the amount overflows.
func (cs Coins) Add(coin Coin) (Coins, error) {
	res := make(Coins, 0, len(cs)+1)
	found := false

	for _, c := range cs {
		if c.Denom == coin.Denom {
			if c.Amount > math.MaxUint64-coin.Amount {
				return nil, xerrors.Errorf("amount overflow for '%s'", c.Denom)
			}

			c.Amount += coin.Amount
			found = true
		}

		res = append(res, c)
	}

	if !found {
		res = append(res, coin)
	}

	return res.normalize(), nil
}

// IsZero returns true when the list does not contain any positive amount.
func (cs Coins) IsZero() bool {
	for _, c := range cs {
		if c.Amount > 0 {
			return false
		}
	}

	return true
}

// String implements fmt.Stringer.
func (cs Coins) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}

	return strings.Join(parts, ",")
}

func (cs Coins) normalize() Coins {
	res := cs[:0]
	for _, c := range cs {
		if c.Amount > 0 {
			res = append(res, c)
		}
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Denom < res[j].Denom
	})

	return res
}

package controller

import (
	"os"

	"go.dedis.ch/auctioneer/core/txn"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// genesisFile is the content of the genesis file, for instance:
//
//	balances:
//	  schnorr:8b4c...: 1000000ubtc
//	  schnorr:02fa...: 500000ubtc,10uatom
type genesisFile struct {
	Balances map[string]string `yaml:"balances"`
}

// ReadGenesis reads the balances of the genesis file. A missing file is an
// empty genesis.
func ReadGenesis(path string) (map[string]txn.Coins, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]txn.Coins{}, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("failed to read file: %v", err)
	}

	var file genesisFile

	err = yaml.UnmarshalStrict(data, &file)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode '%s': %v", path, err)
	}

	balances := make(map[string]txn.Coins, len(file.Balances))

	for account, expr := range file.Balances {
		coins, err := txn.ParseCoins(expr)
		if err != nil {
			return nil, xerrors.Errorf("account '%s': %v", account, err)
		}

		balances[account] = coins
	}

	return balances, nil
}

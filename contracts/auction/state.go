package auction

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
	"go.dedis.ch/auctioneer/core/store"
	"golang.org/x/xerrors"
)

// Keys of the single-value slots in the namespace of the contract.
const (
	ownerKey      = "owner"
	titleKey      = "item_title"
	commissionKey = "commission_rate"
	activeKey     = "active"
	infoKey       = "contract_info"
)

// encMode encodes the values in the canonical form of CBOR so that every node
// writes the same bytes for the same state.
var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	return mode
}

// Config is the write-once configuration of the auction.
type Config struct {
	Owner          string
	ItemTitle      string
	CommissionRate decimal.Decimal
}

// Info records which contract and which version initialized the namespace.
type Info struct {
	Contract string `cbor:"contract"`
	Version  string `cbor:"version"`
}

// slot is a single value of the namespace, stored under a fixed key.
type slot string

// load decodes the value of the slot. It returns false when the slot is
// empty.
func (s slot) load(r store.Readable, v interface{}) (bool, error) {
	data, err := r.Get([]byte(s))
	if err != nil {
		return false, xerrors.Errorf("failed to read '%s': %v", s, err)
	}

	if data == nil {
		return false, nil
	}

	err = cbor.Unmarshal(data, v)
	if err != nil {
		return false, xerrors.Errorf("failed to decode '%s': %v", s, err)
	}

	return true, nil
}

func (s slot) save(w store.Writable, v interface{}) error {
	data, err := encMode.Marshal(v)
	if err != nil {
		return xerrors.Errorf("failed to encode '%s': %v", s, err)
	}

	err = w.Set([]byte(s), data)
	if err != nil {
		return xerrors.Errorf("failed to write '%s': %v", s, err)
	}

	return nil
}

// state gives a typed access to the slots of the auction.
type state struct{}

func (state) initialized(r store.Readable) (bool, error) {
	var owner string
	return slot(ownerKey).load(r, &owner)
}

func (state) saveConfig(w store.Writable, cfg Config) error {
	err := slot(ownerKey).save(w, cfg.Owner)
	if err != nil {
		return err
	}

	err = slot(titleKey).save(w, cfg.ItemTitle)
	if err != nil {
		return err
	}

	// The decimal is kept in its text form which is exact.
	return slot(commissionKey).save(w, cfg.CommissionRate.String())
}

func (s state) loadConfig(r store.Readable) (Config, error) {
	var cfg Config

	found, err := slot(ownerKey).load(r, &cfg.Owner)
	if err != nil {
		return cfg, err
	}
	if !found {
		return cfg, ErrNotInitialized
	}

	_, err = slot(titleKey).load(r, &cfg.ItemTitle)
	if err != nil {
		return cfg, err
	}

	var rate string
	_, err = slot(commissionKey).load(r, &rate)
	if err != nil {
		return cfg, err
	}

	cfg.CommissionRate, err = decimal.NewFromString(rate)
	if err != nil {
		return cfg, xerrors.Errorf("failed to parse commission: %v", err)
	}

	return cfg, nil
}

func (state) loadOwner(r store.Readable) (string, error) {
	var owner string

	found, err := slot(ownerKey).load(r, &owner)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotInitialized
	}

	return owner, nil
}

func (state) isActive(r store.Readable) (bool, error) {
	var active bool

	found, err := slot(activeKey).load(r, &active)
	if err != nil {
		return false, err
	}
	if !found {
		return false, ErrNotInitialized
	}

	return active, nil
}

func (state) setActive(w store.Writable, active bool) error {
	return slot(activeKey).save(w, active)
}

func (state) saveInfo(w store.Writable, info Info) error {
	return slot(infoKey).save(w, info)
}

func (state) loadInfo(r store.Readable) (Info, error) {
	var info Info

	found, err := slot(infoKey).load(r, &info)
	if err != nil {
		return info, err
	}
	if !found {
		return info, ErrNotInitialized
	}

	return info, nil
}

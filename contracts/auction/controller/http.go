// This file implements the HTTP endpoints of the auction, served by the proxy
// of the node.

package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.dedis.ch/auctioneer"
	"go.dedis.ch/auctioneer/cli/node"
	"go.dedis.ch/auctioneer/contracts/auction"
	"go.dedis.ch/auctioneer/core/ordering"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/proxy"
	"golang.org/x/xerrors"
)

const (
	statusPath = "/auction/status"
	bidsPath   = "/auction/bids/{bidder}"
)

// proxyAction registers the endpoints of the auction to the proxy.
//
// - implements node.ActionTemplate
type proxyAction struct{}

// Execute implements node.ActionTemplate. The proxy must be started
// beforehand.
func (proxyAction) Execute(ctx node.Context) error {
	var p proxy.Proxy
	err := ctx.Injector.Resolve(&p)
	if err != nil {
		return xerrors.Errorf("failed to resolve proxy: %v", err)
	}

	var srvc ordering.Service
	err = ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve ordering service: %v", err)
	}

	var contract auction.Contract
	err = ctx.Injector.Resolve(&contract)
	if err != nil {
		return xerrors.Errorf("failed to resolve contract: %v", err)
	}

	h := handlers{
		srvc:     srvc,
		contract: contract,
		logger:   auctioneer.Logger.With().Str("component", "auction-http").Logger(),
	}

	p.RegisterHandler(statusPath, h.status)
	p.RegisterHandler(bidsPath, h.bid)

	fmt.Fprintf(ctx.Out, "registered auction handlers on %s and %s", statusPath, bidsPath)

	return nil
}

type handlers struct {
	srvc     ordering.Service
	contract auction.Contract
	logger   zerolog.Logger
}

// status serves the state of the auction.
func (h handlers) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var status auction.StatusResponse

	err := h.srvc.View(func(snap store.ReadSnapshot) error {
		var err error
		status, err = h.contract.Status(snap)

		return err
	})

	h.reply(w, status, err)
}

// bid serves the bid of the identity in the path.
func (h handlers) bid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bidder := mux.Vars(r)["bidder"]

	var bid auction.BidResponse

	err := h.srvc.View(func(snap store.ReadSnapshot) error {
		var err error
		bid, err = h.contract.UserBid(snap, bidder)

		return err
	})

	h.reply(w, bid, err)
}

func (h handlers) reply(w http.ResponseWriter, v interface{}, err error) {
	if xerrors.Is(err, auction.ErrNotInitialized) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if err != nil {
		h.logger.Err(err).Msg("query failed")
		http.Error(w, "failed to read the auction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	err = json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to write response")
	}
}

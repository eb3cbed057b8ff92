// Package mem implements a transaction pool that only accepts transactions of
// the local node.
package mem

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/auctioneer"
	"go.dedis.ch/auctioneer/core/txn"
	"go.dedis.ch/auctioneer/core/txn/pool"
	"golang.org/x/xerrors"
)

var pendingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "auctioneer_pool_pending_txs",
	Help: "number of transactions waiting in the pool",
})

func init() {
	auctioneer.PromCollectors = append(auctioneer.PromCollectors, pendingGauge)
}

// Pool is a in-memory transaction pool. It only accepts transactions from a
// local client.
//
// - implements pool.Pool
type Pool struct {
	gatherer pool.Gatherer
}

// NewPool creates a new service.
func NewPool() *Pool {
	return &Pool{
		gatherer: pool.NewSimpleGatherer(),
	}
}

// Len implements pool.Pool. It returns the number of pending transactions.
func (p *Pool) Len() int {
	return p.gatherer.Len()
}

// Add implements pool.Pool. It adds the transaction to the pool of waiting
// transactions.
func (p *Pool) Add(tx txn.Transaction) error {
	err := p.gatherer.Add(tx)
	if err != nil {
		return xerrors.Errorf("store failed: %v", err)
	}

	pendingGauge.Set(float64(p.gatherer.Len()))

	return nil
}

// Remove implements pool.Pool. It removes the transaction from the pool if it
// exists, otherwise it returns an error.
func (p *Pool) Remove(tx txn.Transaction) error {
	err := p.gatherer.Remove(tx)
	if err != nil {
		return xerrors.Errorf("store failed: %v", err)
	}

	pendingGauge.Set(float64(p.gatherer.Len()))

	return nil
}

// Gather implements pool.Pool. It gathers the transactions of the pool and
// return them.
func (p *Pool) Gather(ctx context.Context, cfg pool.Config) []txn.Transaction {
	return p.gatherer.Wait(ctx, cfg)
}

// Close implements pool.Pool. It cleans the resources of the gatherer.
func (p *Pool) Close() error {
	p.gatherer.Close()

	return nil
}

// Package serial implements an ordering service for a single node. It gathers
// the transactions of the pool in order of arrival, validates them one after
// the other and commits every batch atomically to the database.
package serial

import (
	"context"
	"encoding/binary"
	"sync"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/auctioneer"
	"go.dedis.ch/auctioneer/core"
	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/bank"
	"go.dedis.ch/auctioneer/core/ordering"
	"go.dedis.ch/auctioneer/core/store"
	"go.dedis.ch/auctioneer/core/store/kv"
	"go.dedis.ch/auctioneer/core/txn"
	"go.dedis.ch/auctioneer/core/txn/pool"
	"go.dedis.ch/auctioneer/core/validation"
	"go.dedis.ch/auctioneer/internal/tracing"
	"golang.org/x/xerrors"
)

const (
	// DefaultBatchSize is the maximum number of transactions in a batch.
	DefaultBatchSize = 100

	stateBucket = "state"
	metaBucket  = "meta"
)

var (
	indexKey   = []byte("index")
	genesisKey = []byte("genesis")
)

var (
	txsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auctioneer_ordering_txs_total",
		Help: "number of transactions processed by the ordering service",
	}, []string{"status"})

	batchGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auctioneer_ordering_batch_index",
		Help: "index of the next batch",
	})
)

func init() {
	auctioneer.PromCollectors = append(auctioneer.PromCollectors, txsCounter, batchGauge)
}

// ServiceParam is the list of parameters to create a serial ordering service.
type ServiceParam struct {
	Pool       pool.Pool
	Validation validation.Service
	DB         kv.DB
	Tracer     opentracing.Tracer
	BatchSize  int
}

// Service is an ordering service that applies the batches of transactions on
// the local database.
//
// - implements ordering.Service
type Service struct {
	sync.Mutex

	logger    zerolog.Logger
	pool      pool.Pool
	val       validation.Service
	db        kv.DB
	tracer    opentracing.Tracer
	batchSize int
	watcher   *core.Watcher
	index     uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new service. The main loop is not started until Start
// is called.
func NewService(param ServiceParam) (*Service, error) {
	s := &Service{
		logger:    auctioneer.Logger.With().Str("service", "ordering").Logger(),
		pool:      param.Pool,
		val:       param.Validation,
		db:        param.DB,
		tracer:    param.Tracer,
		batchSize: param.BatchSize,
		watcher:   core.NewWatcher(),
	}

	if s.tracer == nil {
		s.tracer = opentracing.NoopTracer{}
	}

	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}

	err := s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket([]byte(metaBucket))
		if bucket == nil {
			return nil
		}

		value := bucket.Get(indexKey)
		if len(value) == 8 {
			s.index = binary.BigEndian.Uint64(value)
		}

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read index: %v", err)
	}

	batchGauge.Set(float64(s.index))

	return s, nil
}

// Genesis mints the balances of the accounts if the ledger has never been
// initialized. It returns false when the genesis was already applied.
func (s *Service) Genesis(balances map[string]txn.Coins) (bool, error) {
	applied := false

	err := s.db.Update(func(tx kv.WritableTx) error {
		meta, err := tx.GetBucketOrCreate([]byte(metaBucket))
		if err != nil {
			return err
		}

		if meta.Get(genesisKey) != nil {
			return nil
		}

		bucket, err := tx.GetBucketOrCreate([]byte(stateBucket))
		if err != nil {
			return err
		}

		snap := kv.NewSnapshot(bucket)
		ledger := bank.NewLedger()

		for account, coins := range balances {
			err = ledger.Mint(snap, account, coins)
			if err != nil {
				return xerrors.Errorf("account '%s': %v", account, err)
			}
		}

		applied = true

		return meta.Set(genesisKey, []byte{1})
	})
	if err != nil {
		return false, xerrors.Errorf("failed to apply genesis: %v", err)
	}

	if applied {
		s.logger.Info().Int("accounts", len(balances)).Msg("genesis applied")
	}

	return applied, nil
}

// Start starts the main loop of the service.
func (s *Service) Start() {
	s.Lock()
	defer s.Unlock()

	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		err := s.main(ctx)
		if err != nil {
			s.logger.Err(err).Msg("main loop stopped")
		}
	}()
}

// Close implements ordering.Service. It stops the main loop and waits for the
// current batch to complete.
func (s *Service) Close() error {
	s.Lock()
	defer s.Unlock()

	if s.done == nil {
		return nil
	}

	s.cancel()
	<-s.done

	s.done = nil

	return nil
}

// Watch implements ordering.Service. It returns a channel populated with the
// events of the batches until the context is done.
func (s *Service) Watch(ctx context.Context) <-chan ordering.Event {
	ch := make(chan ordering.Event, 10)

	obs := observer{ch: ch, ctx: ctx}
	s.watcher.Add(obs)

	go func() {
		<-ctx.Done()
		s.watcher.Remove(obs)
	}()

	return ch
}

// View implements ordering.Service. It calls the function with a read-only
// snapshot of the latest committed state.
func (s *Service) View(fn func(snap store.ReadSnapshot) error) error {
	return s.db.View(func(tx kv.ReadableTx) error {
		return fn(kv.NewReadSnapshot(tx.GetBucket([]byte(stateBucket))))
	})
}

// GetNonce implements ordering.Service and signed.Client. It returns the nonce
// of the next transaction of the identity.
func (s *Service) GetNonce(ident access.Identity) (uint64, error) {
	var nonce uint64

	err := s.View(func(snap store.ReadSnapshot) error {
		var err error
		nonce, err = s.val.GetNonce(snap, ident)

		return err
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	return nonce, nil
}

func (s *Service) main(ctx context.Context) error {
	s.logger.Info().Uint64("index", s.index).Msg("ordering has started")

	for {
		txs := s.pool.Gather(ctx, pool.Config{Min: 1, Max: s.batchSize})

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("ordering has stopped")
			return nil
		default:
		}

		if len(txs) == 0 {
			continue
		}

		err := s.doBatch(txs)
		if err != nil {
			// A failed batch leaves the pool, otherwise it is gathered again.
			s.logger.Err(err).Uint64("index", s.index).Int("txs", len(txs)).
				Msg("batch failed, transactions are dropped")

			s.drop(txs)
		}
	}
}

func (s *Service) drop(txs []txn.Transaction) {
	for _, tx := range txs {
		err := s.pool.Remove(tx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to remove transaction from the pool")
		}
	}
}

func (s *Service) doBatch(txs []txn.Transaction) error {
	span := s.tracer.StartSpan("batch")
	span.SetTag(tracing.BatchTag, s.index)
	defer span.Finish()

	var res validation.Result

	err := s.db.Update(func(tx kv.WritableTx) error {
		bucket, err := tx.GetBucketOrCreate([]byte(stateBucket))
		if err != nil {
			return xerrors.Errorf("state: %v", err)
		}

		res, err = s.val.Validate(kv.NewSnapshot(bucket), txs)
		if err != nil {
			return xerrors.Errorf("validation: %v", err)
		}

		meta, err := tx.GetBucketOrCreate([]byte(metaBucket))
		if err != nil {
			return xerrors.Errorf("meta: %v", err)
		}

		buffer := make([]byte, 8)
		binary.BigEndian.PutUint64(buffer, s.index+1)

		return meta.Set(indexKey, buffer)
	})
	if err != nil {
		span.SetTag("error", true)
		return xerrors.Errorf("failed to commit: %v", err)
	}

	s.drop(txs)

	event := ordering.Event{
		Index:        s.index,
		Transactions: res.GetTransactionResults(),
	}

	for _, txRes := range event.Transactions {
		accepted, reason := txRes.GetStatus()

		txSpan := s.tracer.StartSpan("tx", opentracing.ChildOf(span.Context()))
		txSpan.SetTag(tracing.TxTag, txRes.GetTransaction().GetID())

		if accepted {
			txsCounter.WithLabelValues("accepted").Inc()
		} else {
			txsCounter.WithLabelValues("refused").Inc()
			txSpan.LogKV("reason", reason)

			s.logger.Debug().
				Hex("tx", txRes.GetTransaction().GetID()).
				Str("reason", reason).
				Msg("transaction refused")
		}

		txSpan.Finish()
	}

	s.index++
	batchGauge.Set(float64(s.index))

	s.logger.Info().
		Uint64("index", event.Index).
		Int("txs", len(txs)).
		Msg("batch committed")

	s.watcher.Notify(event)

	return nil
}

type observer struct {
	ch  chan ordering.Event
	ctx context.Context
}

func (obs observer) NotifyCallback(event interface{}) {
	select {
	case obs.ch <- event.(ordering.Event):
	case <-obs.ctx.Done():
	}
}

// Package controller implements the controller of a single node ledger. It
// opens the database, starts the ordering service with its pool and its
// validation, and applies the genesis balances on the first start.
package controller

import (
	"path/filepath"

	opentracing "github.com/opentracing/opentracing-go"
	"go.dedis.ch/auctioneer"
	"go.dedis.ch/auctioneer/cli"
	"go.dedis.ch/auctioneer/cli/node"
	"go.dedis.ch/auctioneer/core/access"
	"go.dedis.ch/auctioneer/core/execution/native"
	"go.dedis.ch/auctioneer/core/ordering"
	"go.dedis.ch/auctioneer/core/ordering/serial"
	"go.dedis.ch/auctioneer/core/store/kv"
	"go.dedis.ch/auctioneer/core/txn/pool"
	"go.dedis.ch/auctioneer/core/txn/pool/mem"
	"go.dedis.ch/auctioneer/core/validation/simple"
	"go.dedis.ch/auctioneer/crypto"
	"go.dedis.ch/auctioneer/crypto/ed25519"
	"go.dedis.ch/auctioneer/crypto/loader"
	"go.dedis.ch/auctioneer/internal/tracing"
	"golang.org/x/xerrors"
)

const (
	// DBName is the name of the database in the config folder.
	DBName = "auctioneer.db"

	// KeyName is the name of the private key of the node in the config folder.
	KeyName = "private.key"

	// GenesisName is the default name of the genesis file in the config
	// folder.
	GenesisName = "genesis.yaml"

	genesisFlag   = "genesis"
	batchSizeFlag = "batchsize"
	tracingFlag   = "tracing"
	accountFlag   = "account"

	tracerName = "auctioneer-ordering"
)

// getTracer is the function called to get the tracer of the ordering service
// when tracing is enabled. It allows us to use a different tracer for the
// tests.
var getTracer = tracing.GetTracer

type minimal struct{}

// NewController creates a new controller for the serial ordering service.
//
// - implements node.Initializer
func NewController() node.Initializer {
	return minimal{}
}

// SetCommands implements node.Initializer. It sets the flags of the start
// command and the commands to inspect the ledger.
func (minimal) SetCommands(builder node.Builder) {
	builder.SetStartFlags(
		cli.StringFlag{
			Name:  genesisFlag,
			Usage: "path to the genesis balances, <config>/genesis.yaml by default",
		},
		cli.IntFlag{
			Name:  batchSizeFlag,
			Usage: "maximum number of transactions in a batch",
			Value: serial.DefaultBatchSize,
		},
		cli.BoolFlag{
			Name:    tracingFlag,
			Usage:   "report the spans to the jaeger agent of the environment",
			EnvVars: []string{"AUCTIONEER_TRACING"},
		},
	)

	cmd := builder.SetCommand("ordering")
	cmd.SetDescription("ledger administration")

	sub := cmd.SetSubCommand("export")
	sub.SetDescription("print the identity of the node")
	sub.SetAction(builder.MakeAction(exportAction{}))

	sub = cmd.SetSubCommand("balance")
	sub.SetDescription("print the balances of an account")
	sub.SetFlags(cli.StringFlag{
		Name:     accountFlag,
		Usage:    "identity of the account",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(balanceAction{}))
}

// OnStart implements node.Initializer. It creates the components of the
// ledger, injects them and starts the ordering service.
func (m minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	dir := flags.Path("config")

	signer, err := loadSigner(filepath.Join(dir, KeyName))
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	genesisPath := flags.Path(genesisFlag)
	if genesisPath == "" {
		genesisPath = filepath.Join(dir, GenesisName)
	}

	balances, err := ReadGenesis(genesisPath)
	if err != nil {
		return xerrors.Errorf("genesis: %v", err)
	}

	var tracer opentracing.Tracer
	if flags.Bool(tracingFlag) {
		tracer, err = getTracer(tracerName)
		if err != nil {
			return xerrors.Errorf("tracer: %v", err)
		}
	}

	dbPath := filepath.Join(dir, DBName)

	db, err := kv.New(dbPath)
	if err != nil {
		return xerrors.Errorf("db: %v", err)
	}

	exec := native.NewExecution()
	vs := simple.NewService(exec)
	p := mem.NewPool()

	param := serial.ServiceParam{
		Pool:       p,
		Validation: vs,
		DB:         db,
		Tracer:     tracer,
		BatchSize:  flags.Int(batchSizeFlag),
	}

	srvc, err := serial.NewService(param)
	if err != nil {
		db.Close()
		return xerrors.Errorf("service: %v", err)
	}

	_, err = srvc.Genesis(balances)
	if err != nil {
		db.Close()
		return xerrors.Errorf("service: %v", err)
	}

	addr, err := access.AddressOf(signer.GetPublicKey())
	if err != nil {
		db.Close()
		return xerrors.Errorf("identity: %v", err)
	}

	auctioneer.Logger.Info().Str("identity", addr).Str("db", dbPath).Msg("ledger is ready")

	inj.Inject(db)
	inj.Inject(signer)
	inj.Inject(exec)
	inj.Inject(vs)
	inj.Inject(p)
	inj.Inject(srvc)

	// The loop waits for the transactions of the pool, which are only sent
	// after every controller has started.
	srvc.Start()

	return nil
}

// OnStop implements node.Initializer. It stops the ordering service before
// closing the pool and the database.
func (minimal) OnStop(inj node.Injector) error {
	var srvc ordering.Service
	err := inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = srvc.Close()
	if err != nil {
		return xerrors.Errorf("while closing service: %v", err)
	}

	var p pool.Pool
	err = inj.Resolve(&p)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = p.Close()
	if err != nil {
		return xerrors.Errorf("while closing pool: %v", err)
	}

	var db kv.DB
	err = inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = db.Close()
	if err != nil {
		return xerrors.Errorf("while closing db: %v", err)
	}

	err = tracing.CloseAll()
	if err != nil {
		return xerrors.Errorf("while closing tracers: %v", err)
	}

	return nil
}

// loadSigner loads the private key of the node, or creates it on the first
// start.
func loadSigner(path string) (crypto.Signer, error) {
	data, err := loader.NewFileLoader(path).LoadOrCreate(generator{})
	if err != nil {
		return nil, xerrors.Errorf("while loading: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("while unmarshaling: %v", err)
	}

	return signer, nil
}

// generator is an Ed25519 private key generator.
//
// - implements loader.Generator
type generator struct{}

// Generate implements loader.Generator. It returns the serialized data of a new
// signer.
func (generator) Generate() ([]byte, error) {
	signer := ed25519.NewSigner()

	data, err := signer.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal signer: %v", err)
	}

	return data, nil
}

package node

import (
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/auctioneer/cli"
	"go.dedis.ch/auctioneer/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestCliBuilder_SetStartFlags(t *testing.T) {
	builder := NewBuilder()

	builder.SetStartFlags(cli.StringFlag{}, cli.IntFlag{})
	require.Len(t, builder.startFlags, 2)
}

func TestCliBuilder_Start(t *testing.T) {
	dir, err := os.MkdirTemp(os.TempDir(), "auctioneer")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	builder := NewBuilderWithCfg(make(chan os.Signal, 1), io.Discard, fakeInitializer{})
	builder.daemonFactory = fakeFactory{}
	builder.sigs <- syscall.SIGTERM

	fset := flag.NewFlagSet("", 0)
	fset.String("config", filepath.Join(dir, "node"), "")

	err = builder.start(urfave.NewContext(nil, fset, nil))
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(dir, "node"))

	builder.daemonFactory = fakeFactory{err: xerrors.New("oops")}
	err = builder.start(nil)
	require.EqualError(t, err, "couldn't make daemon: oops")

	builder.daemonFactory = fakeFactory{errDaemon: xerrors.New("oops")}
	err = builder.start(nil)
	require.EqualError(t, err, "couldn't start the daemon: oops")
}

func TestCliBuilder_BadPath_Start(t *testing.T) {
	dir, err := os.MkdirTemp(os.TempDir(), "auctioneer")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte{}, 0600))

	builder := NewBuilderWithCfg(make(chan os.Signal, 1), io.Discard)

	fset := flag.NewFlagSet("", 0)
	fset.String("config", filepath.Join(file, "node"), "")

	err = builder.start(urfave.NewContext(nil, fset, nil))
	require.Error(t, err)
	require.Contains(t, err.Error(), "couldn't make path: ")
}

func TestCliBuilder_FailController_Start(t *testing.T) {
	builder := NewBuilderWithCfg(make(chan os.Signal, 1), io.Discard,
		fakeInitializer{err: xerrors.New("oops")})
	builder.daemonFactory = fakeFactory{}
	builder.sigs <- syscall.SIGTERM

	err := builder.start(nil)
	require.EqualError(t, err, "couldn't run the controller: oops")

	builder = NewBuilderWithCfg(make(chan os.Signal, 1), io.Discard,
		fakeInitializer{errStop: xerrors.New("oops")})
	builder.daemonFactory = fakeFactory{}
	builder.sigs <- syscall.SIGTERM

	err = builder.start(nil)
	require.EqualError(t, err, "couldn't stop controller: oops")
}

func TestCliBuilder_MakeAction(t *testing.T) {
	calls := &fake.Call{}
	builder := &CLIBuilder{
		actions:       &actionMap{},
		daemonFactory: fakeFactory{calls: calls},
	}

	fset := flag.NewFlagSet("", 0)
	fset.Var(urfave.NewStringSlice("10ubtc", "5uatom"), "funds", "")
	fset.Int("nonce", 20, "")

	ctx := urfave.NewContext(makeApp(), fset, nil)

	err := builder.MakeAction(fakeAction{})(ctx)
	require.NoError(t, err)

	data := string(calls.Get(0, 0).([]byte))
	require.Equal(t, "\x00\x00"+`{"funds":["10ubtc","5uatom"],"nonce":20}`, data)

	builder.daemonFactory = fakeFactory{err: xerrors.New("oops")}
	err = builder.MakeAction(fakeAction{})(ctx)
	require.EqualError(t, err, "couldn't make client: oops")

	builder.daemonFactory = fakeFactory{errClient: xerrors.New("oops")}
	err = builder.MakeAction(fakeAction{})(ctx)
	require.EqualError(t, err, "oops")
}

func TestCliBuilder_Build(t *testing.T) {
	calls := &fake.Call{}

	builder := NewBuilderWithCfg(make(chan os.Signal, 1), io.Discard, fakeInitializer{})
	builder.daemonFactory = fakeFactory{calls: calls}

	cb := builder.SetCommand("auction")
	cb.SetDescription("auction commands")

	sub := cb.SetSubCommand("bid")
	sub.SetDescription("place a bid")
	sub.SetFlags(cli.StringSliceFlag{Name: "funds"}, cli.IntFlag{Name: "nonce"})
	sub.SetAction(builder.MakeAction(fakeAction{}))

	cb = builder.SetCommand("last")
	cb.SetAction(func(cli.Flags) error {
		return xerrors.New("oops")
	})

	app := builder.Build().(*urfave.App)
	app.Writer = io.Discard

	// auction, last, start and help
	require.Len(t, app.Commands, 4)
	require.Equal(t, "start", app.Commands[2].Name)

	err := app.Run([]string{"auctioneer", "--config", "/tmp/node",
		"auction", "bid", "--funds", "10ubtc", "--nonce", "2"})
	require.NoError(t, err)

	require.Equal(t, 1, calls.Len())

	fset := make(FlagSet)
	data := calls.Get(0, 0).([]byte)
	require.NoError(t, json.Unmarshal(data[2:], &fset))
	require.Equal(t, "/tmp/node", fset.Path("config"))
	require.Equal(t, []string{"10ubtc"}, fset.StringSlice("funds"))
	require.Equal(t, 2, fset.Int("nonce"))

	err = app.Run([]string{"auctioneer", "last"})
	require.EqualError(t, err, "oops")
}

func TestCliBuilder_UnknownType_Build(t *testing.T) {
	defer func() {
		r := recover()
		require.Equal(t, "flag type '<nil>' not supported", r)
	}()

	builder := NewBuilder()
	builder.SetStartFlags((cli.Flag)(nil))

	builder.Build()
}

func TestActionMap(t *testing.T) {
	actions := &actionMap{}

	require.Equal(t, uint16(0), actions.Set(fakeAction{}))
	require.Equal(t, uint16(1), actions.Set(fakeAction{}))
	require.NotNil(t, actions.Get(1))
	require.Nil(t, actions.Get(2))
}

// -----------------------------------------------------------------------------
// Utility functions

func makeApp() *urfave.App {
	return &urfave.App{
		Flags: []urfave.Flag{
			&urfave.StringSliceFlag{Name: "funds"},
			&urfave.IntFlag{Name: "nonce"},
		},
	}
}

// Package main implements the auctioneer daemon. A single node orders the
// transactions of the auction and serves its state.
//
//	auctiond --config /tmp/node start --genesis genesis.yaml
//	auctiond --config /tmp/node ordering export
//	auctiond --config /tmp/node auction init --title Painting\
//	  --key alice.key --funds 100000ubtc --wait 10s
//	auctiond --config /tmp/node auction bid --key bob.key --funds 150000ubtc
//	auctiond --config /tmp/node auction status
//	auctiond --config /tmp/node proxy start --clientaddr 127.0.0.1:8080
//	auctiond --config /tmp/node auction proxy
//
// The environment can be populated from a .env file in the working directory,
// or from the file named by AUCTIONEER_ENV.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.dedis.ch/auctioneer"
	"go.dedis.ch/auctioneer/cli/node"
	auction "go.dedis.ch/auctioneer/contracts/auction/controller"
	ordering "go.dedis.ch/auctioneer/core/ordering/serial/controller"
	pool "go.dedis.ch/auctioneer/core/txn/pool/controller"
	proxy "go.dedis.ch/auctioneer/proxy/http/controller"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// EnvFile is the environment variable to load a different .env file.
	EnvFile = "AUCTIONEER_ENV"

	// EnvLogFile is the environment variable to copy the logs to a file. The
	// file is rotated when it grows too large.
	EnvLogFile = "AUCTIONEER_LOGFILE"

	defaultEnvFile = ".env"
)

type config struct {
	Channel chan os.Signal
	Writer  io.Writer
}

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	return runWithCfg(args, config{})
}

func runWithCfg(args []string, cfg config) error {
	loadEnv()

	path := os.Getenv(EnvLogFile)
	if path != "" {
		logfile := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxAge:     28, // days
			MaxBackups: 3,
		}

		defer logfile.Close()

		auctioneer.TeeLogger(logfile)
	}

	builder := node.NewBuilderWithCfg(
		cfg.Channel,
		cfg.Writer,
		ordering.NewController(),
		pool.NewController(),
		auction.NewController(),
		proxy.NewController(),
	)

	app := builder.Build()

	return app.Run(args)
}

// loadEnv reads the .env file, if any, without overriding the variables
// already set, and reloads the logging level.
func loadEnv() {
	path := os.Getenv(EnvFile)
	if path == "" {
		path = defaultEnvFile
	}

	_, err := os.Stat(path)
	if err == nil {
		err = godotenv.Load(path)
		if err != nil {
			auctioneer.Logger.Warn().Err(err).Str("file", path).Msg("failed to load environment")
		}
	}

	auctioneer.LoadLevel()
}

// Package controller implements the commands to start the HTTP proxy of a
// node and to expose its metrics.
package controller

import (
	"go.dedis.ch/auctioneer/cli"
	"go.dedis.ch/auctioneer/cli/node"
	"go.dedis.ch/auctioneer/proxy"
)

const defaultAddr = "127.0.0.1:8080"

const defaultProm = "/metrics"

// NewController returns a new minimal initializer
func NewController() node.Initializer {
	return minimal{}
}

// minimal is an initializer with the minimum set of commands. The proxy is
// created by the start command of the proxy, not when the node starts.
//
// - implements node.Initializer
type minimal struct{}

// SetCommands implements node.Initializer.
func (m minimal) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("proxy")
	cmd.SetDescription("serve the endpoints of the node over HTTP")

	sub := cmd.SetSubCommand("start")
	sub.SetDescription("start the proxy http server")
	sub.SetFlags(cli.StringFlag{
		Name:     "clientaddr",
		Required: false,
		Usage:    "the address of the http client",
		EnvVars:  []string{"AUCTIONEER_PROXY_ADDR"},
		Value:    defaultAddr,
	})
	sub.SetAction(builder.MakeAction(startAction{}))

	sub = cmd.SetSubCommand("prom")
	sub.SetDescription("registers the collectors and starts a prometheus handler. " +
		"Will panic if the path is used more than once.")
	sub.SetFlags(cli.StringFlag{
		Name:     "path",
		Required: false,
		Usage:    "the handler path",
		Value:    defaultProm,
	})
	sub.SetAction(builder.MakeAction(promAction{}))
}

// OnStart implements node.Initializer.
func (m minimal) OnStart(ctx cli.Flags, inj node.Injector) error {
	return nil
}

// OnStop implements node.Initializer. It stops the http server if it has been
// started.
func (m minimal) OnStop(inj node.Injector) error {
	var p proxy.Proxy
	err := inj.Resolve(&p)
	if err == nil && p.GetAddr() != nil {
		p.Stop()
	}

	return nil
}

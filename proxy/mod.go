// Package proxy defines the interface of the HTTP server of a node, which
// exposes read-only endpoints to the clients.
package proxy

import (
	"net"
	"net/http"
)

// Proxy defines the primitives to implement an http server that handles
// client side requests
type Proxy interface {
	// Listen starts the proxy server. This call is assumed to be blocking
	Listen()

	// Stop stops the proxy server
	Stop()

	// GetAddr returns the address of the server, or nil while it is not
	// listening.
	GetAddr() net.Addr

	// RegisterHandler registers a new handler. The path can contain variables
	// like /auction/bids/{bidder}.
	RegisterHandler(path string, handler func(http.ResponseWriter, *http.Request))
}

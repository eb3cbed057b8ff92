// Package http implements a proxy based on a gorilla router. The requests are
// logged and tagged with a request ID, and cross-origin requests are allowed
// so that a web page can follow the auction.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.dedis.ch/auctioneer"
)

type key int

const (
	requestIDKey key = 0

	// RequestIDHeader is the header that carries the ID of a request.
	RequestIDHeader = "X-Request-Id"

	shutdownTimeout = 10 * time.Second
)

// HTTP defines a proxy http
//
// - implements proxy.Proxy
type HTTP struct {
	sync.Mutex

	router     *mux.Router
	server     *http.Server
	logger     zerolog.Logger
	listenAddr string
	ln         net.Listener
	quit       chan struct{}
}

// NewHTTP creates a new proxy http
func NewHTTP(listenAddr string) *HTTP {
	logger := auctioneer.Logger.With().Str("role", "http proxy").Logger()

	nextRequestID := func() string {
		return uuid.NewString()
	}

	router := mux.NewRouter()

	handler := cors.Default().Handler(tracing(nextRequestID)(logging(logger)(router)))

	return &HTTP{
		router: router,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:     logger,
		listenAddr: listenAddr,
		quit:       make(chan struct{}),
	}
}

// Listen implements proxy.Proxy. This function can be called multiple times
// provided the server is not running, ie. Stop() has been called. An empty
// address listens on a random port of the loopback interface.
func (h *HTTP) Listen() {
	h.logger.Info().Msg("Client server is starting...")

	addr := h.listenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		h.logger.Error().Err(err).Msgf("failed to create conn '%s'", h.listenAddr)
		panic(fmt.Sprintf("failed to create conn '%s': %v", h.listenAddr, err))
	}

	h.Lock()
	h.ln = ln
	h.Unlock()

	done := make(chan struct{})

	go func() {
		<-h.quit
		h.logger.Info().Msg("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		h.server.SetKeepAlivesEnabled(false)

		err := h.server.Shutdown(ctx)
		if err != nil {
			h.logger.Err(err).Msg("Could not gracefully shutdown the server")
			h.server.Close()
		}

		close(done)
	}()

	h.logger.Info().Msgf("Server is ready to handle requests at http://%s", ln.Addr())

	err = h.server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		h.logger.Err(err).Msgf("Could not listen on %s", ln.Addr())
	}

	<-done

	h.Lock()
	h.ln = nil
	h.Unlock()

	h.logger.Info().Msg("Server stopped")
}

// Stop implements proxy.Proxy. It should be called only once in order to make a
// new Listen() successful.
func (h *HTTP) Stop() {
	// we don't close it so it can be called multiple times without harm
	h.quit <- struct{}{}
}

// GetAddr implements proxy.Proxy.
func (h *HTTP) GetAddr() net.Addr {
	h.Lock()
	defer h.Unlock()

	if h.ln == nil {
		return nil
	}

	return h.ln.Addr()
}

// RegisterHandler implements proxy.Proxy
func (h *HTTP) RegisterHandler(path string, handler func(http.ResponseWriter,
	*http.Request)) {

	h.router.HandleFunc(path, handler)
}

// logging is a utility function that logs the http server events
func logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			defer func() {
				requestID, ok := r.Context().Value(requestIDKey).(string)
				if !ok {
					requestID = "unknown"
				}

				logger.Info().Str("requestID", requestID).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Str("remoteAddr", r.RemoteAddr).
					Str("agent", r.UserAgent()).
					Dur("duration", time.Since(start)).Msg("")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// tracing is a utility function that adds header tracing
func tracing(nextRequestID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = nextRequestID()
			}

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set(RequestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

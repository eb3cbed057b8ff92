package http

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestHTTP_Listen(t *testing.T) {
	proxy := NewHTTP("127.0.0.1:0")
	proxy.RegisterHandler("/fake/{name}", fakeHandler)

	go proxy.Listen()
	waitAddr(t, proxy)

	defer proxy.Stop()

	res, err := http.Get("http://" + proxy.GetAddr().String() + "/fake/alice")
	require.NoError(t, err)

	defer res.Body.Close()

	output, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, "hello alice", string(output))

	_, err = uuid.Parse(res.Header.Get(RequestIDHeader))
	require.NoError(t, err)

	res, err = http.Get("http://" + proxy.GetAddr().String() + "/unknown")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHTTP_Listen_EmptyAddr(t *testing.T) {
	// in this case it will use a random free port
	proxy := NewHTTP("")

	require.Nil(t, proxy.GetAddr())

	go proxy.Listen()
	waitAddr(t, proxy)

	proxy.Stop()

	require.Eventually(t, func() bool { return proxy.GetAddr() == nil },
		time.Second, 10*time.Millisecond)
}

func TestHTTP_Listen_BadAddr(t *testing.T) {
	proxy := NewHTTP("bad://xx")

	out := new(bytes.Buffer)
	proxy.logger = zerolog.New(out)

	defer func() {
		res := recover()
		require.Regexp(t, "^failed to create conn 'bad://xx': ", res)
		require.Contains(t, out.String(), "failed to create conn 'bad://xx'")
	}()

	proxy.Listen()
}

func TestTracing(t *testing.T) {
	handler := tracing(func() string { return "abc" })(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(r.Context().Value(requestIDKey).(string)))
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "abc", rec.Body.String())
	require.Equal(t, "abc", rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "xyz")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "xyz", rec.Body.String())
}

func TestLogging(t *testing.T) {
	out := new(bytes.Buffer)

	handler := logging(zerolog.New(out))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auction/status", nil))

	require.Contains(t, out.String(), `"requestID":"unknown"`)
	require.Contains(t, out.String(), `"url":"/auction/status"`)
}

// -----------------------------------------------------------------------------
// Utility functions

func waitAddr(t *testing.T, proxy *HTTP) {
	require.Eventually(t, func() bool { return proxy.GetAddr() != nil },
		time.Second, 10*time.Millisecond)
}

func fakeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("hello " + mux.Vars(r)["name"]))
}

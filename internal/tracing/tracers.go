// Package tracing provides the opentracing tracers of the services. The
// tracers are configured from the environment variables of Jaeger, for instance
// JAEGER_AGENT_HOST or JAEGER_SAMPLER_TYPE.
package tracing

import (
	"io"
	"sync"

	opentracing "github.com/opentracing/opentracing-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"golang.org/x/xerrors"
)

const (
	// BatchTag is the span tag of the index of a batch.
	BatchTag = "batch"

	// TxTag is the span tag of the identifier of a transaction.
	TxTag = "tx"
)

type tracerCatalog struct {
	sync.Mutex
	tracers map[string]closableTracer
}

type closableTracer struct {
	tracer opentracing.Tracer
	closer io.Closer
}

var catalog = tracerCatalog{
	tracers: make(map[string]closableTracer),
}

// GetTracer returns an `opentracing.Tracer` instance for the given service
// name. Since the tracers are cached, it returns an existing one if it has been
// initialized before.
func GetTracer(service string) (opentracing.Tracer, error) {
	catalog.Lock()
	defer catalog.Unlock()

	tc, ok := catalog.tracers[service]
	if ok {
		return tc.tracer, nil
	}

	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, xerrors.Errorf("error parsing jaeger configuration from environment: %v", err)
	}

	cfg.ServiceName = service

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, xerrors.Errorf("error creating new tracer: %v", err)
	}

	catalog.tracers[service] = closableTracer{
		tracer: tracer,
		closer: closer,
	}

	return tracer, nil
}

// CloseAll closes all the tracer instances.
func CloseAll() error {
	catalog.Lock()
	defer catalog.Unlock()

	for service, tc := range catalog.tracers {
		err := tc.closer.Close()
		if err != nil {
			return xerrors.Errorf("failed to close tracer of '%s': %v", service, err)
		}

		delete(catalog.tracers, service)
	}

	return nil
}

package fake

import opentracing "github.com/opentracing/opentracing-go"

// GetTracerForServiceWithError is used to mock `tracing.GetTracer` with an
// error.
func GetTracerForServiceWithError(string) (opentracing.Tracer, error) {
	return nil, fakeErr
}

// GetTracerForServiceEmpty is used to mock `tracing.GetTracer` with an empty
// tracer.
func GetTracerForServiceEmpty(string) (opentracing.Tracer, error) {
	return opentracing.NoopTracer{}, nil
}

package interceptors

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/toyz/synapse/pkg/synapse"
)

// Tracing wraps each handler in a server span. The incoming trace context is
// extracted from the request headers and the span context replaces the
// request context for everything downstream.
type Tracing struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracing creates a tracing interceptor. A nil tracer uses the global provider.
func NewTracing(tracer trace.Tracer) *Tracing {
	if tracer == nil {
		tracer = otel.Tracer("github.com/toyz/synapse")
	}
	return &Tracing{tracer: tracer, propagator: otel.GetTextMapPropagator()}
}

func (t *Tracing) Intercept(ec *synapse.ExecutionContext, next synapse.CallHandler) (any, error) {
	route := ec.Route()
	req := ec.Request()

	ctx := ec.Context()
	if req != nil && req.Header != nil {
		ctx = t.propagator.Extract(ctx, propagation.HeaderCarrier(req.Header))
	}

	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("%s %s", route.Method, route.Path),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", route.Method),
			attribute.String("http.route", route.Path),
			attribute.String("http.request_id", ec.RequestID()),
			attribute.String("synapse.handler", route.Controller.Name()+"."+route.MethodName),
		),
	)
	defer span.End()

	prev := ec.Context()
	ec.SetContext(ctx)
	defer ec.SetContext(prev)

	result, err := next.Handle()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var httpErr *synapse.HttpError
		if errors.As(err, &httpErr) {
			span.SetAttributes(attribute.Int("http.status_code", httpErr.StatusCode))
		}
		return result, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

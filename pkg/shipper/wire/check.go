package wire

import (
	"context"
	"errors"

	"github.com/tournevent/courierhub/pkg/shipper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// CheckResult converts the outcome of a credential sample into a CredentialCheck.
func CheckResult(carrier shipper.Code, err error) shipper.CredentialCheck {
	check := shipper.CredentialCheck{Carrier: carrier, Success: err == nil}
	if err == nil {
		return check
	}
	check.Detail = err.Error()

	switch {
	case errors.Is(err, shipper.ErrMissingCredentials):
		check.Failure = shipper.CheckMissingConfiguration
	case shipper.IsUnauthorized(err):
		check.Failure = shipper.CheckBadCredentials
	case shipper.Classify(err) == shipper.ClassTransient:
		check.Failure = shipper.CheckUnreachable
	default:
		check.Failure = shipper.CheckUnexpected
	}
	return check
}

// Tracer returns t, or a no-op tracer when t is nil.
func Tracer(t trace.Tracer) trace.Tracer {
	if t == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return t
}

// StartSpan opens a span named "<carrier>.<operation>".
func StartSpan(ctx context.Context, t trace.Tracer, carrier shipper.Code, operation string) (context.Context, trace.Span) {
	return Tracer(t).Start(ctx, string(carrier)+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("carrier", string(carrier))),
	)
}

// EndSpan records err on span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

package observability

import (
	"context"
	"errors"

	"github.com/oriys/inkwell/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new internal span with the given name and attributes
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartServerSpan creates a new server span (for incoming requests)
func StartServerSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// EndSpan records the outcome of an operation and ends the span. Not-found
// and validation outcomes are expected client errors and leave the span
// status unset.
func EndSpan(span trace.Span, err error) {
	defer span.End()
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, domain.ErrNotFound), domain.IsValidation(err):
		span.SetAttributes(AttrOutcome.String(err.Error()))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// Common attribute keys for Inkwell spans
var (
	AttrPostID      = attribute.Key("inkwell.post.id")
	AttrCommentID   = attribute.Key("inkwell.comment.id")
	AttrSearch      = attribute.Key("inkwell.search")
	AttrPage        = attribute.Key("inkwell.page")
	AttrPageSize    = attribute.Key("inkwell.page_size")
	AttrMatches     = attribute.Key("inkwell.matches")
	AttrCacheResult = attribute.Key("inkwell.cache.result")
	AttrRequestID   = attribute.Key("inkwell.request_id")
	AttrOutcome     = attribute.Key("inkwell.outcome")
)

package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oriys/inkwell/internal/domain"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestDisabledTracerIsUsable(t *testing.T) {
	if err := Init(context.Background(), Config{Enabled: false}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Enabled() {
		t.Fatal("expected tracing disabled")
	}
	_, span := StartSpan(context.Background(), "post.get", AttrPostID.Int64(1))
	EndSpan(span, fmt.Errorf("wrapped: %w", domain.ErrPostNotFound))
	_, span = StartSpan(context.Background(), "post.get")
	EndSpan(span, errors.New("store down"))
	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestHTTPMiddlewareWithDiscardExporter(t *testing.T) {
	ctx := context.Background()
	if err := Init(ctx, Config{Enabled: true, Exporter: "discard", ServiceName: "inkwell-test", SampleRate: 1}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() {
		_ = Shutdown(ctx)
		_ = Init(ctx, Config{})
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})
	rec := httptest.NewRecorder()
	HTTPMiddleware(mux).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/3", nil))
	if rec.Code != http.StatusTeapot || rec.Body.String() != "ok" {
		t.Fatalf("middleware altered the response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestShutdownRevertsToNoop(t *testing.T) {
	ctx := context.Background()
	if err := Init(ctx, Config{Enabled: true, Exporter: "discard"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !Enabled() {
		t.Fatal("expected tracing enabled")
	}
	if err := Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if Enabled() {
		t.Fatal("expected no-op tracer after Shutdown")
	}
	_, span := StartSpan(ctx, "after.shutdown")
	if span.SpanContext().IsValid() {
		t.Fatal("no-op spans carry no context")
	}
	EndSpan(span, nil)
}

func TestSamplerHonorsParent(t *testing.T) {
	s := newSampler(0)
	params := func(sampled bool) sdktrace.SamplingParameters {
		flags := trace.TraceFlags(0)
		if sampled {
			flags = trace.FlagsSampled
		}
		parent := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{1},
			SpanID:     trace.SpanID{1},
			TraceFlags: flags,
			Remote:     true,
		})
		return sdktrace.SamplingParameters{
			ParentContext: trace.ContextWithSpanContext(context.Background(), parent),
			TraceID:       trace.TraceID{1},
			Name:          "GET /posts",
		}
	}
	if got := s.ShouldSample(params(true)).Decision; got != sdktrace.RecordAndSample {
		t.Fatalf("sampled parent: decision %v", got)
	}
	if got := s.ShouldSample(params(false)).Decision; got != sdktrace.Drop {
		t.Fatalf("unsampled parent: decision %v", got)
	}
	root := sdktrace.SamplingParameters{ParentContext: context.Background(), TraceID: trace.TraceID{2}}
	if got := s.ShouldSample(root).Decision; got != sdktrace.Drop {
		t.Fatalf("root at rate 0: decision %v", got)
	}
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	err := Init(context.Background(), Config{Enabled: true, Exporter: "zipkin"})
	if err == nil {
		t.Fatal("expected error for unknown exporter")
	}
	_ = Init(context.Background(), Config{})
}

package telemetry

import (
	"context"
	"testing"

	"github.com/chavepixclub/backend/internal/config"
	"go.opentelemetry.io/otel"
)

func TestNewDisabled(t *testing.T) {
	ctx := context.Background()
	tel, err := New(ctx, config.OtelConfig{Enabled: false, ServiceName: "test"}, config.AppConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tel.Shutdown(ctx)

	if TraceID(ctx) != "" {
		t.Error("expected empty trace id outside a span")
	}

	spanCtx, span := otel.Tracer("test").Start(ctx, "op")
	defer span.End()
	if TraceID(spanCtx) == "" {
		t.Error("expected trace id inside a span")
	}
}

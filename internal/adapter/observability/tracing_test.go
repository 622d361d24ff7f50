package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/interview-feedback/internal/config"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	prevProp := otel.GetTextMapPropagator()
	prevTP := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetTextMapPropagator(prevProp)
		otel.SetTracerProvider(prevTP)
	})
}

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	restoreGlobals(t)
	shutdown, err := SetupTracing(config.Config{OTLPEndpoint: ""})
	require.NoError(t, err)
	assert.Nil(t, shutdown)
}

func TestSetupTracing_InstallsPropagatorAndProvider(t *testing.T) {
	restoreGlobals(t)
	shutdown, err := SetupTracing(config.Config{
		OTLPEndpoint:    "localhost:4317",
		AppEnv:          "test",
		OTELServiceName: "interview-feedback",
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	t.Cleanup(func() {
		cancel()
		_ = shutdown(ctx)
	})

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, "baggage")

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
}

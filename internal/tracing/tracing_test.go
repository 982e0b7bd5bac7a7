package tracing_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"autoposter/internal/config"
	"autoposter/internal/tracing"
)

func TestSpansAreRecorded(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider, err := tracing.NewWithProcessor(recorder, "test")
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	_, span := tracing.StartSpan(context.Background(), provider.Tracer(), "agent.writer", attribute.String("agent", "writer"))
	tracing.EndSpan(span, nil)

	_, failed := tracing.StartSpan(context.Background(), provider.Tracer(), "agent.editor")
	tracing.EndSpan(failed, errors.New("boom"))

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "agent.writer", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.String("agent", "writer"))
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "boom", ended[1].Status().Description)
}

func TestDisabledTracingIsNoop(t *testing.T) {
	provider, err := tracing.Setup(config.Tracing{Enabled: false}, "test")
	require.NoError(t, err)
	_, span := tracing.StartSpan(context.Background(), provider.Tracer(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	tracing.EndSpan(span, nil)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNilProviderAndTracer(t *testing.T) {
	var provider *tracing.Provider
	assert.NotNil(t, provider.Tracer())
	_, span := tracing.StartSpan(context.Background(), nil, "nil-tracer")
	tracing.EndSpan(span, nil)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.json")
	provider, err := tracing.Setup(config.Tracing{Enabled: true, OutputFile: path}, "test")
	require.NoError(t, err)

	_, span := tracing.StartSpan(context.Background(), provider.Tracer(), "morgan.run")
	tracing.EndSpan(span, nil)
	require.NoError(t, provider.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "morgan.run")
}

package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReturnsNoopTracerWhenDisabled(t *testing.T) {
	tracer, shutdown, err := New(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tracer)

	ctx, span := StartTurn(context.Background(), tracer, "sess-1", "/tmp/p")
	assert.NotNil(t, ctx)
	EndTurn(span, "result")

	require.NoError(t, shutdown(context.Background()))
}

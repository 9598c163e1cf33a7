package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_ExportsSpans(t *testing.T) {
	// Arrange
	var out bytes.Buffer
	tp, err := InitTracing("thoughtgraph-test", "test", &out)
	require.NoError(t, err)
	tracer := NewTracer("graph-client")

	// Act
	err = tracer.TraceFunction(context.Background(), "get_graph", func(ctx context.Context) error {
		tracer.AddAnnotation(ctx, "graph.id", "g1")
		return errors.New("boom")
	})
	require.NoError(t, tp.Shutdown(context.Background()))

	// Assert
	assert.EqualError(t, err, "boom")
	assert.Contains(t, out.String(), "graph-client.get_graph")
	assert.Contains(t, out.String(), "graph.id")
	assert.Contains(t, out.String(), "boom")
}

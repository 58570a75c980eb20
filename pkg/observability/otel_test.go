package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracer_None(t *testing.T) {
	t.Parallel()

	tp, shutdown, err := InitTracer(context.Background(), Config{Exporter: "none"}, nil)
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_Stdout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tp, shutdown, err := initTracer(context.Background(), Config{Exporter: "stdout", ServiceName: "test"}, &buf, nil)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "queue.push")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "queue.push")
}

func TestInitTracer_UnknownExporter(t *testing.T) {
	t.Parallel()

	_, _, err := InitTracer(context.Background(), Config{Exporter: "zipkin"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

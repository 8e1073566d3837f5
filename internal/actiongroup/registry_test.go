package actiongroup

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry[int](testLogger())
	require.NoError(t, r.Register("b", 2))
	require.NoError(t, r.Register("a", 1))
	assert.Error(t, r.Register("a", 3))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	_, err = r.Get("missing")
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Panics(t, func() { r.MustRegister("b", 4) })
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFieldsAreCarried(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{ServiceName: "cartflow", Output: &buf})

	ctx := l.WithSession(context.Background(), "sess-1")
	l.Warn(ctx, "malformed cart state", errors.New("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "cartflow", line["service"])
	assert.Equal(t, "sess-1", line["cart_session"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "warn", line["level"])
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: zerolog.InfoLevel, Output: &buf})
	l.Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

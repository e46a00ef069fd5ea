package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/catalogicsoftware/vstor-zfs/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiHandler_DispatchesToAllHandlers(t *testing.T) {
	var bufA, bufB bytes.Buffer
	handlerA := slog.NewTextHandler(&bufA, &slog.HandlerOptions{Level: slog.LevelInfo})
	handlerB := slog.NewTextHandler(&bufB, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(logging.NewMultiHandler(handlerA, handlerB))
	logger.Info("hello", "key", "value")

	assert.Contains(t, bufA.String(), "hello")
	assert.Contains(t, bufB.String(), "hello")
	assert.Contains(t, bufB.String(), "key=value")
}

func TestMultiHandler_RespectsPerHandlerLevels(t *testing.T) {
	var info, debug bytes.Buffer
	infoHandler := slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug})

	multi := logging.NewMultiHandler(infoHandler, debugHandler)
	require.True(t, multi.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(multi)
	logger.Debug("only debug")

	assert.Empty(t, info.String())
	assert.Contains(t, debug.String(), "only debug")
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(logging.NewMultiHandler(handler)).With("run_id", "abc")
	logger.Info("tagged")

	assert.Contains(t, buf.String(), "run_id=abc")
}

func TestGenerateRunID_Uniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		id := logging.GenerateRunID()
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate run ID %s", id)
		seen[id] = struct{}{}
	}
}

package logger_test

import (
	"context"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/pharmacy-ledger/logger"
)

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := logger.New(logger.Config{Level: "chatty"})
	require.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zap.InfoLevel))
}

func TestFromContext_CarriesRequestID(t *testing.T) {
	// GIVEN: A logger in a context that also carries a chi request id
	core, logs := observer.New(zap.InfoLevel)
	base := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	ctx := logger.WithLogger(context.Background(), base.WithComponent("test"))
	ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-42")

	// WHEN: Logging through the context logger
	logger.FromContext(ctx).Infow("hello", "k", 1)

	// THEN: The line carries component and request id
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "test", fields["component"])
	assert.Equal(t, "req-42", fields["request_id"])
	assert.EqualValues(t, 1, fields["k"])
}

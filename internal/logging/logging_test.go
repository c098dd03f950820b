package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactingCoreMasksPII(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(core))

	logger.Info("contact captured",
		zap.String("email", "john@example.com"),
		zap.String("session_id", "s-1"),
		zap.String("api_key", "sk-abc"),
		zap.Any("client_name", struct{ First string }{"John"}),
		zap.Error(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "j**************m", fields["email"])
	assert.Equal(t, "s-1", fields["session_id"])
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "[REDACTED]", fields["client_name"])
	assert.Equal(t, "boom", fields["error"])
}

func TestRedactingCoreMasksWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(core)).With(zap.String("phone", "5552345678"))

	logger.Info("x")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "5********8", logs.All()[0].ContextMap()["phone"])
}

func TestPIIIsStableUnderDoubleMasking(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(core))

	logger.Info("x", PII("name", "John Smith"))

	assert.Equal(t, "J********h", logs.All()[0].ContextMap()["name"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	logger, err := New(Options{Level: "warn", JSON: true})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestWrapNil(t *testing.T) {
	assert.NotNil(t, Wrap(nil))
}

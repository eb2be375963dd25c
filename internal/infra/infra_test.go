package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("debug", "json")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = NewLogger("warn", "console")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger("loud", "json")
	assert.Error(t, err)
}

func TestConnectNATSDisabled(t *testing.T) {
	nc, err := ConnectNATS("", zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, nc)
}

func TestInitPostgresqlRequiresDSN(t *testing.T) {
	_, err := InitPostgresql("", zap.NewNop())
	assert.Error(t, err)
}

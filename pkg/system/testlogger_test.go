package system

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger()
	require.NotNil(t, logger)
	logger.Infow("sweep pass", "tasks", 3)
}

func TestNewTestZapLogger(t *testing.T) {
	logger := NewTestZapLogger()
	require.NotNil(t, logger)
	logger.Info("listener ready")
	require.NotNil(t, logger.Sugar())
}

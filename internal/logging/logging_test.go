package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	quiet, err := New(false)
	require.NoError(t, err)
	assert.False(t, quiet.Core().Enabled(zap.DebugLevel))
	assert.True(t, quiet.Core().Enabled(zap.InfoLevel))

	verbose, err := New(true)
	require.NoError(t, err)
	assert.True(t, verbose.Core().Enabled(zap.DebugLevel))
}

func TestMust(t *testing.T) {
	assert.NotNil(t, Must(false))
}

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"debug": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"ERROR": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		logger, err := New(in)
		require.NoError(t, err, in)
		assert.True(t, logger.Core().Enabled(want), in)
		if want > zapcore.DebugLevel {
			assert.False(t, logger.Core().Enabled(want-1), in)
		}
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud")
	assert.Error(t, err)
}

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		format   string
		encoding string
		want     zapcore.Level
	}{
		{"console default", "info", "", "console", zapcore.InfoLevel},
		{"console debug", "DEBUG", "console", "console", zapcore.DebugLevel},
		{"json warn", "warn", "json", "json", zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Config(tt.level, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.encoding, cfg.Encoding)
			assert.Equal(t, tt.want, cfg.Level.Level())
			assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
		})
	}
}

func TestConfig_Errors(t *testing.T) {
	_, err := Config("loud", "json")
	assert.Error(t, err)

	_, err = Config("info", "xml")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	log, err := New("error", "json")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.ErrorLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))

	log := zap.NewExample()
	assert.Same(t, log, OrNop(log))
}

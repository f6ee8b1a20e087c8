package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Setenv(EnvLevel, "")

	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{input: "", want: zapcore.WarnLevel},
		{input: "debug", want: zapcore.DebugLevel},
		{input: "INFO", want: zapcore.InfoLevel},
		{input: "error", want: zapcore.ErrorLevel},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveLevel(t *testing.T) {
	tests := []struct {
		name       string
		flag       string
		env        string
		configured string
		want       string
	}{
		{name: "flag beats env", flag: "debug", env: "error", configured: "info", want: "debug"},
		{name: "env beats config", env: "error", configured: "info", want: "error"},
		{name: "config", configured: "info", want: "info"},
		{name: "default", want: DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvLevel, tt.env)
			assert.Equal(t, tt.want, EffectiveLevel(tt.flag, tt.configured))
		})
	}
}

func TestNewLoggerTo(t *testing.T) {
	t.Setenv(EnvLevel, "")

	var buf bytes.Buffer
	logger, err := NewLoggerTo(&buf, "info")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.ForFile("notes.txt").Info("staged", zap.String("hash", "abc"))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "staged")
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "INFO")
}

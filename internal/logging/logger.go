package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLevel overrides the configured log level when set.
const EnvLevel = "MYVCS_LOG_LEVEL"

const DefaultLevel = "warn"

type Logger struct {
	*zap.Logger
}

// NewLogger builds a console logger on stderr. Stdout is left to command
// output so callers can parse it.
func NewLogger(level string) (*Logger, error) {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo builds a console logger writing to w.
func NewLoggerTo(w io.Writer, level string) (*Logger, error) {
	zapLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(zapLevel),
	)

	return &Logger{zap.New(core)}, nil
}

// EffectiveLevel picks the level to log at: an explicit flag wins over
// MYVCS_LOG_LEVEL, which wins over the configured level.
func EffectiveLevel(flag, configured string) string {
	if flag = strings.TrimSpace(flag); flag != "" {
		return flag
	}
	if env := strings.TrimSpace(os.Getenv(EnvLevel)); env != "" {
		return env
	}
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}
	return DefaultLevel
}

// ParseLevel parses a level name. Empty means DefaultLevel.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		level = DefaultLevel
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapLevel, err
	}
	return zapLevel, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap.NewNop()}
}

// ForFile scopes the logger to a tracked file.
func (l *Logger) ForFile(name string) *zap.Logger {
	return l.With(zap.String("file", name))
}

package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// root is the shared zerolog instance. Defaults to info; ENV=development
// or LOG_LEVEL override it.
var root zerolog.Logger

func init() {
	level := zerolog.InfoLevel
	if os.Getenv("ENV") == "development" {
		level = zerolog.DebugLevel
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}

	root = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

// Logger is a component-scoped logger. Each package creates one with its
// component name so log lines are attributable.
type Logger struct {
	zl zerolog.Logger
}

// New creates a new logger for a specific component.
func New(component string) *Logger {
	return &Logger{zl: root.With().Str("component", component).Logger()}
}

// SetLevel changes the minimum level for loggers created after the call.
func SetLevel(level zerolog.Level) {
	root = root.Level(level)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// GetAppEnv returns the current application environment.
func GetAppEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "development"
	}
	return env
}

// IsDevelopment returns true if the current environment is development.
func IsDevelopment() bool {
	return GetAppEnv() == "development"
}

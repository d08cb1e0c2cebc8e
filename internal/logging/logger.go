package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/muurk/thermodial/internal/climate"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "THERMODIAL_LOG_LEVEL"

// LogFileEnvVar names a file to write logs to instead of stderr. The dial
// takes over the terminal, so interactive sessions should log to a file.
const LogFileEnvVar = "THERMODIAL_LOG_FILE"

// Options controls logger construction.
type Options struct {
	Level string // debug, info, warn, error; empty means THERMODIAL_LOG_LEVEL
	File  string // log file path; empty means THERMODIAL_LOG_FILE, then stderr
	JSON  bool   // JSON encoding instead of console
}

// Initialize creates a new logger with the specified level.
// If level is empty, it checks THERMODIAL_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	return InitializeWithOptions(Options{Level: level})
}

// InitializeFromEnv initializes the logger from THERMODIAL_LOG_LEVEL and
// THERMODIAL_LOG_FILE. CLI commands use it to stay silent by default.
func InitializeFromEnv() error {
	return InitializeWithOptions(Options{})
}

// InitializeWithOptions builds the global logger.
func InitializeWithOptions(opts Options) error {
	level := opts.Level
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	file := opts.File
	if file == "" {
		file = os.Getenv(LogFileEnvVar)
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if opts.JSON {
		config.Encoding = "json"
		config.EncoderConfig = zap.NewProductionEncoderConfig()
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	if file == "" && !opts.JSON {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		config.OutputPaths = []string{file}
		config.ErrorOutputPaths = []string{file}
	}

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = built
	return nil
}

// ParseLevel maps a level name onto a zap level. Unknown names give info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Silent until initialized so CLI output stays clean
		logger = zap.NewNop()
	}
	return logger
}

// Named returns a child logger for one component.
func Named(name string) *zap.Logger {
	return GetLogger().Named(name)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogConnection logs a connection event
func LogConnection(remote string, event string, fields ...zap.Field) {
	Info("Connection event", append([]zap.Field{
		zap.String("remote", remote),
		zap.String("event", event),
	}, fields...)...)
}

// LogStatePush logs a climate state received from a backend.
func LogStatePush(source string, st climate.State) {
	Debug("State push",
		zap.String("source", source),
		zap.String("entity_id", st.EntityID),
		zap.String("hvac_mode", st.Mode),
		zap.String("hvac_action", st.Action),
		zap.Stringp("ambient", fmtOpt(st.Ambient)),
		zap.Stringp("target", fmtOpt(st.Target)),
		zap.Stringp("target_low", fmtOpt(st.TargetLow)),
		zap.Stringp("target_high", fmtOpt(st.TargetHigh)),
	)
}

// LogCommit logs a set-point write leaving the dial.
func LogCommit(entityID string, req climate.TemperatureRequest, err error) {
	if err != nil {
		Warn("Set-point write failed",
			zap.String("entity_id", entityID),
			zap.Stringer("request", req),
			zap.Error(err),
		)
		return
	}
	Info("Set-point written",
		zap.String("entity_id", entityID),
		zap.Stringer("request", req),
	)
}

// LogModeChange logs an hvac mode write.
func LogModeChange(entityID, mode string, err error) {
	if err != nil {
		Warn("Mode change failed",
			zap.String("entity_id", entityID),
			zap.String("hvac_mode", mode),
			zap.Error(err),
		)
		return
	}
	Info("Mode changed",
		zap.String("entity_id", entityID),
		zap.String("hvac_mode", mode),
	)
}

// LogMessage logs a raw protocol message at debug level. Payloads are
// truncated so state dumps do not flood the log.
func LogMessage(remote, direction string, data []byte) {
	if !GetLogger().Core().Enabled(zapcore.DebugLevel) {
		return
	}
	Debug("Protocol message",
		zap.String("remote", remote),
		zap.String("direction", direction),
		zap.Int("length", len(data)),
		zap.String("content", truncate(data, 512)),
	)
}

func fmtOpt(p *float64) *string {
	if p == nil {
		return nil
	}
	s := fmt.Sprintf("%.1f", *p)
	return &s
}

func truncate(data []byte, max int) string {
	if len(data) <= max {
		return string(data)
	}
	return string(data[:max]) + "..."
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

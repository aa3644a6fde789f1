package logging

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/aviarysound/playlistcore/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Package logging provides structured logging capabilities using slog.

// global logger instance, initialized in Init()
var (
	structuredLogger *slog.Logger
	loggerMu         sync.RWMutex // protects structuredLogger
)

// currentLogLevel stores the dynamic level for the global logger.
var currentLogLevel = new(slog.LevelVar)
var initOnce sync.Once

// defaultReplaceAttr provides common attribute formatting for all loggers.
// It formats time, customizes level names, and truncates floats to 2 decimal places.
func defaultReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	// Format time to second precision (RFC3339 without sub-seconds)
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().Format("2006-01-02T15:04:05Z07:00"))
	}
	// Truncate float64 values to 2 decimal places
	if a.Value.Kind() == slog.KindFloat64 {
		// Multiply by 100, truncate the decimal part, then divide by 100.0
		truncatedVal := math.Trunc(a.Value.Float64()*100) / 100.0
		a.Value = slog.Float64Value(truncatedVal)
	}
	return a
}

// Init initializes the global structured (JSON) logger based on
// configuration, rotating through lumberjack the same way a package's own
// NewFileLogger-backed logger does.
func Init() {
	initOnce.Do(func() {
		level := slog.LevelInfo
		if err := level.UnmarshalText([]byte(config.Setting().Log.Level)); err != nil {
			level = slog.LevelInfo
		}
		currentLogLevel.Set(level)

		path := config.Setting().Log.Path
		if path == "" {
			path = filepath.Join("logs", "app.log")
		}

		logger, _, err := NewFileLogger(path, "playlistcore", currentLogLevel)
		if err != nil {
			fmt.Printf("failed to initialize app log file, falling back to stderr: %v\n", err)
			logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level:       currentLogLevel,
				ReplaceAttr: defaultReplaceAttr,
			}))
		}

		loggerMu.Lock()
		structuredLogger = logger
		loggerMu.Unlock()

		slog.SetDefault(structuredLogger)
	})
}

// ForService creates a new logger instance with the 'service' attribute added.
// It uses the global structured logger as the base.
// Returns nil if Init() has not been called.
func ForService(serviceName string) *slog.Logger {
	loggerMu.RLock()
	logger := structuredLogger
	loggerMu.RUnlock()

	if logger == nil {
		return nil
	}
	return logger.With("service", serviceName)
}

// NewFileLogger creates a new slog.Logger instance configured to write JSON logs
// to the specified file path using lumberjack for rotation based on global config.
// It includes a 'service' attribute in all logs.
// It returns the logger, a function to close the underlying log writer, and an error if setup fails.
func NewFileLogger(filePath, serviceName string, levelVar *slog.LevelVar) (*slog.Logger, func() error, error) {
	// Ensure the directory exists (lumberjack doesn't create directories)
	logDir := filepath.Dir(filePath)
	if logDir != "." { // Avoid trying to create the current directory if filePath is just a filename
		if err := os.MkdirAll(logDir, 0o755); err != nil { //nolint:gosec // accept 0o755 for now
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	// Configure lumberjack logger based on global config settings
	logConf := config.Setting().Log

	lj := &lumberjack.Logger{
		Filename: filePath,
		Compress: false,
	}

	// Apply rotation settings from config
	maxSizeMB := 100
	maxBackups := 3
	maxAge := 28 // days

	configMaxSizeMB := int(logConf.MaxSize / (1024 * 1024))
	if configMaxSizeMB > 0 {
		maxSizeMB = configMaxSizeMB
	}

	switch logConf.Rotation {
	case config.RotationDaily:
		maxAge = 1
		maxBackups = 30
	case config.RotationWeekly:
		maxAge = 7
		maxBackups = 4
	case config.RotationSize:
		// Size-based rotation uses maxSizeMB derived from config (or default)
	default:
		slog.Warn("unknown log rotation type in config, using size-based defaults", "configuredType", logConf.Rotation)
	}

	lj.MaxSize = maxSizeMB
	lj.MaxBackups = maxBackups
	lj.MaxAge = maxAge

	handler := slog.NewJSONHandler(lj, &slog.HandlerOptions{
		AddSource:   false,
		Level:       levelVar,
		ReplaceAttr: defaultReplaceAttr,
	})

	logger := slog.New(handler).With("service", serviceName)

	// lumberjack.Logger.Close() releases its internal state; rotation itself
	// manages the underlying file handle.
	closeFunc := func() error {
		return lj.Close()
	}

	return logger, closeFunc, nil
}

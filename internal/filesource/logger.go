package filesource

import (
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/aviarysound/playlistcore/internal/logging"
)

// Package-level logger for filesource operations, following the teacher's
// per-package rotating file logger convention.
var (
	logger         *slog.Logger
	loggerInitOnce sync.Once
	levelVar       = new(slog.LevelVar)
	closeLogger    func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "filesource.log")
	levelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, component, levelVar)
	if err != nil {
		log.Printf("failed to initialize filesource file logger at %s: %v. using discard logger.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: levelVar})
		logger = slog.New(fbHandler).With("service", component)
		closeLogger = func() error { return nil }
	}
}

// GetLogger returns the package logger, initializing a discard fallback if
// the package-level init somehow left it nil.
func GetLogger() *slog.Logger {
	loggerInitOnce.Do(func() {
		if logger == nil {
			logger = slog.Default().With("service", component)
		}
	})
	return logger
}

// CloseLogger closes the log file and releases resources.
func CloseLogger() error {
	if closeLogger != nil {
		return closeLogger()
	}
	return nil
}

// Package config loads playlistcore's runtime settings using viper,
// mirroring the teacher's conf package: a package-level Settings struct,
// defaults registered in defaults.go, and a sync.Once-guarded singleton
// accessed through Setting().
package config

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var defaultConfigFile embed.FS

// RotationType identifies a log rotation policy.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogSettings configures internal/logging.
type LogSettings struct {
	Level    string       // slog level name: debug, info, warn, error
	Path     string       // file path for the structured log
	Rotation RotationType // daily, weekly or size
	MaxSize  int64        // bytes; used when Rotation == RotationSize
}

// EngineSettings holds engine tuning values. PlaylistCreate reads
// GainClampMin and GainClampMax; DefaultSinkBufferFrames,
// MinQueueBytesFloor and MetricsInterval are loaded but no package in this
// module reads them.
type EngineSettings struct {
	DefaultSinkBufferFrames int           // sink buffer size, in frames
	MinQueueBytesFloor      int           // sink queue floor, in bytes
	MetricsInterval         time.Duration // metrics interval
	GainClampMin            float64       // lower bound applied before the gain-omission test
	GainClampMax            float64       // upper bound applied before the gain-omission test
}

// Settings is the root configuration struct, unmarshaled from config.yaml
// (or the environment) by viper.
type Settings struct {
	Debug  bool
	Log    LogSettings
	Engine EngineSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads configuration from file/env into a fresh Settings instance,
// replacing the package singleton.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("PLAYLISTCORE")
	viper.AutomaticEnv()

	if dir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(dir, "playlistcore"))
	}
	viper.AddConfigPath(".")

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded config.yaml to the user's config
// directory on first run, then lets viper read it back in.
func createDefaultConfig() error {
	dir, err := os.UserConfigDir()
	if err != nil {
		// No writable config directory available (e.g. a minimal
		// container); fall back to viper's registered defaults.
		return nil
	}
	configPath := filepath.Join(dir, "playlistcore", "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	data, err := fs.ReadFile(defaultConfigFile, "config.yaml")
	if err != nil {
		log.Fatalf("error reading embedded default config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// GetSettings returns the current settings instance without triggering a load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading defaults on first
// use so callers never observe a nil Settings.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

package config

import "github.com/spf13/viper"

// setDefaultConfig registers every default value viper falls back to when a
// key is absent from config.yaml and the environment, mirroring the
// teacher's defaults.go.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.path", "logs/app.log")
	viper.SetDefault("log.rotation", string(RotationDaily))
	viper.SetDefault("log.maxsize", int64(10*1024*1024))

	viper.SetDefault("engine.defaultsinkbufferframes", 8192)
	viper.SetDefault("engine.minqueuebytesfloor", 65536)
	viper.SetDefault("engine.metricsinterval", "5s")
	viper.SetDefault("engine.gainclampmin", 0.0)
	viper.SetDefault("engine.gainclampmax", 1.0)
}

// internal/logger/config.go
package logger

type Config struct {
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`    // megabytes
	MaxAge     int    `mapstructure:"max_age"`     // days
	MaxBackups int    `mapstructure:"max_backups"` // files
	Compress   bool   `mapstructure:"compress"`
	// Level is debug, info, warn or error. Empty picks debug in development.
	Level string `mapstructure:"level"`
	// Console is "plain" or "pretty" (colored levels, short time).
	Console     string `mapstructure:"console"`
	Development bool   `mapstructure:"development"`
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		File:       "launchpad.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
		Console:    "plain",
	}
}

// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/launchpad/internal/logger"
	"github.com/rovshanmuradov/launchpad/internal/oracle"
	"github.com/rovshanmuradov/launchpad/internal/state"
)

const EnvPrefix = "LAUNCHPAD"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      logger.Config  `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Program  ProgramConfig  `mapstructure:"program"`
	Events   EventsConfig   `mapstructure:"events"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	DevMode bool   `mapstructure:"dev_mode"`
	// SwapRate is the sustained swap requests per second allowed per client.
	SwapRate  float64       `mapstructure:"swap_rate"`
	SwapBurst int           `mapstructure:"swap_burst"`
	SwapTTL   time.Duration `mapstructure:"swap_ttl"`
	// SignatureWindow is the accepted clock skew of X-Timestamp.
	SignatureWindow time.Duration `mapstructure:"signature_window"`
}

type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend string `mapstructure:"backend"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// PubSub fans program events out over redis channels.
	PubSub bool `mapstructure:"pubsub"`
}

type PostgresConfig struct {
	// DSN enables history recording when set.
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type OracleConfig struct {
	URL             string        `mapstructure:"url"`
	Path            string        `mapstructure:"path"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxTries        uint          `mapstructure:"max_tries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxElapsed      time.Duration `mapstructure:"max_elapsed"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	// StaticPrice is used instead of the HTTP oracle when URL is empty.
	StaticPrice string `mapstructure:"static_price"`
}

type ProgramConfig struct {
	ID string `mapstructure:"id"`
}

type EventsConfig struct {
	BufferSize int  `mapstructure:"buffer_size"`
	LogSink    bool `mapstructure:"log_sink"`
}

const (
	DefaultAddr       = ":8090"
	DefaultSwapRate   = 5.0
	DefaultSwapBurst  = 10
	DefaultBufferSize = 1000
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"server.addr":                DefaultAddr,
		"server.dev_mode":            false,
		"server.swap_rate":           DefaultSwapRate,
		"server.swap_burst":          DefaultSwapBurst,
		"server.swap_ttl":            "3m",
		"server.signature_window":    "2m",
		"log.file":                   "launchpad.log",
		"log.max_size":               100,
		"log.max_age":                7,
		"log.max_backups":            3,
		"log.compress":               true,
		"log.level":                  "",
		"log.console":                "plain",
		"log.development":            false,
		"store.backend":              "memory",
		"redis.addr":                 "localhost:6379",
		"redis.password":             "",
		"redis.db":                   0,
		"redis.pubsub":               false,
		"postgres.dsn":               "",
		"postgres.max_idle_conns":    10,
		"postgres.max_open_conns":    50,
		"postgres.conn_max_lifetime": "1h",
		"oracle.url":                 "",
		"oracle.path":                "solana.usd",
		"oracle.timeout":             "5s",
		"oracle.max_tries":           3,
		"oracle.initial_interval":    "200ms",
		"oracle.max_elapsed":         "15s",
		"oracle.cache_ttl":           "30s",
		"oracle.static_price":        "",
		"program.id":                 state.DefaultProgramID.String(),
		"events.buffer_size":         DefaultBufferSize,
		"events.log_sink":            false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	loadEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

// loadEnvironmentVariables lets LAUNCHPAD_SECTION_KEY override section.key.
func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is empty")
	}
	if cfg.Server.SwapRate <= 0 || cfg.Server.SwapBurst <= 0 {
		return errors.New("invalid swap rate limit")
	}
	if cfg.Server.SignatureWindow <= 0 {
		return errors.New("invalid server.signature_window")
	}
	switch cfg.Store.Backend {
	case "memory":
	case "redis":
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Redis.PubSub && cfg.Redis.Addr == "" {
		return errors.New("redis.addr is required for pubsub")
	}
	if cfg.Postgres.DSN != "" {
		if err := validateURLWithCache(cfg.Postgres.DSN, "postgres"); err != nil {
			return errors.New("invalid postgres dsn")
		}
	}
	if err := validateOracle(&cfg.Oracle); err != nil {
		return err
	}
	if _, err := cfg.ProgramID(); err != nil {
		return err
	}
	if cfg.Events.BufferSize <= 0 {
		return errors.New("invalid events.buffer_size")
	}
	return nil
}

func validateOracle(cfg *OracleConfig) error {
	if cfg.URL != "" {
		if err := validateURLWithCache(cfg.URL, "http"); err != nil {
			return errors.New("invalid oracle URL protocol")
		}
		if cfg.Path == "" {
			return errors.New("oracle.path is required with oracle.url")
		}
		return nil
	}
	if cfg.StaticPrice != "" {
		price, err := decimal.NewFromString(cfg.StaticPrice)
		if err != nil || !price.IsPositive() {
			return fmt.Errorf("invalid oracle.static_price %q", cfg.StaticPrice)
		}
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// ProgramID parses program.id.
func (c *Config) ProgramID() (solana.PublicKey, error) {
	id, err := solana.PublicKeyFromBase58(c.Program.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program.id: %w", err)
	}
	return id, nil
}

// HTTPOracle returns the HTTP oracle settings, or false when the static price applies.
func (c *Config) HTTPOracle() (oracle.HTTPConfig, bool) {
	if c.Oracle.URL == "" {
		return oracle.HTTPConfig{}, false
	}
	return oracle.HTTPConfig{
		URL:             c.Oracle.URL,
		Path:            c.Oracle.Path,
		Timeout:         c.Oracle.Timeout,
		MaxTries:        c.Oracle.MaxTries,
		InitialInterval: c.Oracle.InitialInterval,
		MaxElapsed:      c.Oracle.MaxElapsed,
		CacheTTL:        c.Oracle.CacheTTL,
	}, true
}

// StaticPrice returns oracle.static_price, zero when unset.
func (c *Config) StaticPrice() decimal.Decimal {
	price, err := decimal.NewFromString(c.Oracle.StaticPrice)
	if err != nil {
		return decimal.Zero
	}
	return price
}

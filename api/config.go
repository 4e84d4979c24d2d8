package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vaultshield/pools/api/middleware"
	"github.com/vaultshield/pools/api/websocket"
	"github.com/vaultshield/pools/pkg/confidential"
)

// EnvPrefix prefixes every environment override, e.g. VAULTSHIELD_PORT or
// VAULTSHIELD_ORACLE_SECRET
const EnvPrefix = "VAULTSHIELD"

// Config contains the gateway configuration
type Config struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	ReadTimeout      time.Duration `mapstructure:"read-timeout"`
	WriteTimeout     time.Duration `mapstructure:"write-timeout"`
	DisableRateLimit bool          `mapstructure:"disable-rate-limit"`
	CORSOrigins      []string      `mapstructure:"cors-origins"`
	LogLevel         string        `mapstructure:"log-level"`

	RateLimit middleware.RateLimitConfig `mapstructure:"rate-limit"`
	WebSocket websocket.ServerConfig     `mapstructure:"websocket"`
	Hub       websocket.HubConfig        `mapstructure:"hub"`
	Ledger    LedgerConfig               `mapstructure:"ledger"`
	Oracle    confidential.Config        `mapstructure:"oracle"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		CORSOrigins:  []string{"*"},
		LogLevel:     "info",
		RateLimit:    *middleware.DefaultRateLimitConfig(),
		WebSocket:    *websocket.DefaultServerConfig(),
		Hub:          *websocket.DefaultHubConfig(),
		Ledger:       DefaultLedgerConfig(),
		Oracle:       confidential.DefaultConfig(),
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Ledger.BlockTime <= 0 {
		return fmt.Errorf("ledger block time must be positive, got %s", c.Ledger.BlockTime)
	}
	if c.Hub.ReplaySize < 0 {
		return fmt.Errorf("hub replay size cannot be negative")
	}
	if c.Oracle.Enabled && c.Oracle.SecretHex == "" {
		return fmt.Errorf("oracle enabled without a secret")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// setDefaults registers every key so environment overrides apply to nested
// settings too
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("host", c.Host)
	v.SetDefault("port", c.Port)
	v.SetDefault("read-timeout", c.ReadTimeout)
	v.SetDefault("write-timeout", c.WriteTimeout)
	v.SetDefault("disable-rate-limit", c.DisableRateLimit)
	v.SetDefault("cors-origins", c.CORSOrigins)
	v.SetDefault("log-level", c.LogLevel)

	v.SetDefault("rate-limit.ip-rps", c.RateLimit.IPRequestsPerSecond)
	v.SetDefault("rate-limit.ip-burst", c.RateLimit.IPBurst)
	v.SetDefault("rate-limit.ip-block-duration", c.RateLimit.IPBlockDuration)
	v.SetDefault("rate-limit.writes-per-second", c.RateLimit.WritesPerSecond)
	v.SetDefault("rate-limit.write-burst", c.RateLimit.WriteBurst)
	v.SetDefault("rate-limit.writes-per-day", c.RateLimit.WritesPerDay)
	v.SetDefault("rate-limit.cleanup-interval", c.RateLimit.CleanupInterval)
	v.SetDefault("rate-limit.bucket-ttl", c.RateLimit.BucketTTL)

	v.SetDefault("websocket.allowed-origins", c.WebSocket.AllowedOrigins)
	v.SetDefault("websocket.max-conn-per-ip", c.WebSocket.MaxConnPerIP)

	v.SetDefault("hub.replay-size", c.Hub.ReplaySize)
	v.SetDefault("hub.max-subscriptions", c.Hub.MaxSubscriptions)
	v.SetDefault("hub.message-rate-limit", c.Hub.MessageRateLimit)

	v.SetDefault("ledger.genesis-file", c.Ledger.GenesisFile)
	v.SetDefault("ledger.block-time", c.Ledger.BlockTime)
	v.SetDefault("ledger.initial-height", c.Ledger.InitialBlock)

	v.SetDefault("oracle.enabled", c.Oracle.Enabled)
	v.SetDefault("oracle.backend", c.Oracle.Backend)
	v.SetDefault("oracle.identity", c.Oracle.Identity)
	v.SetDefault("oracle.secret", c.Oracle.SecretHex)
	v.SetDefault("oracle.range-bits", c.Oracle.RangeBits)
}

// LoadConfig reads the gateway configuration from v: defaults, then the
// file named by the "config" key if any, then VAULTSHIELD_* environment
// variables, then any flags already bound to v
func LoadConfig(v *viper.Viper) (*Config, error) {
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

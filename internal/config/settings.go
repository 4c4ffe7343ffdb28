// Package config loads runtime settings and DAO genesis files.
//
// Settings come from, in increasing precedence: built-in defaults, a
// treasury.yaml file, TREASURY_* environment variables, and flags the
// caller sets explicitly. Genesis files are YAML validated against an
// embedded CUE schema.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/engine"
)

// Setting keys.
const (
	KeyDatabase     = "database"
	KeyLogLevel     = "log_level"
	KeyFeeRecipient = "fee.recipient"
	KeyFeeAmount    = "fee.amount"
	KeyMaxRetries   = "max_retries"
)

// EnvPrefix prefixes every environment override, e.g. TREASURY_FEE_AMOUNT.
const EnvPrefix = "TREASURY"

// Settings is the resolved runtime configuration.
type Settings struct {
	Database   string
	LogLevel   string
	MaxRetries int
	Fee        engine.FeeSchedule
}

// NewViper creates a viper instance with defaults and environment
// binding. If configFile is empty, treasury.yaml is looked up in the
// working directory and is optional; an explicit file must exist.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault(KeyDatabase, "treasury.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyFeeRecipient, "")
	v.SetDefault(KeyFeeAmount, engine.DefaultFeeAmount)
	v.SetDefault(KeyMaxRetries, engine.DefaultMaxRetries)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("treasury")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load resolves Settings from v.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		Database:   v.GetString(KeyDatabase),
		LogLevel:   v.GetString(KeyLogLevel),
		MaxRetries: v.GetInt(KeyMaxRetries),
		Fee: engine.FeeSchedule{
			Recipient: dao.Identity(v.GetString(KeyFeeRecipient)),
			Amount:    v.GetUint64(KeyFeeAmount),
		},
	}
	if s.Database == "" {
		return Settings{}, fmt.Errorf("%s must not be empty", KeyDatabase)
	}
	if s.MaxRetries < 0 {
		return Settings{}, fmt.Errorf("%s must not be negative, got %d", KeyMaxRetries, s.MaxRetries)
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// EngineOptions maps s onto engine options.
func (s Settings) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithFees(s.Fee),
		engine.WithMaxRetries(s.MaxRetries),
	}
}

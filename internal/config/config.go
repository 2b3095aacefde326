// Package config loads runtime configuration from the environment and the
// YAML strategy book.
package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/quantary/cryptobot/pkg/errors"
)

// Config is the process-level runtime configuration, sourced from the
// environment. A .env file in the working directory is honored when present.
type Config struct {
	// SecretName is the secrets-manager entry holding the exchange API keys.
	SecretName string `validate:"required"`
	// Sandbox routes all exchange traffic to the testnet environment.
	Sandbox bool
	// BaseCurrency is the quote currency allocations are denominated in.
	BaseCurrency string `validate:"required"`
	// TableName is the DynamoDB table buffering deferred trade signals.
	TableName string `validate:"required"`
	// StrategyConfigPath points at the YAML strategy book.
	StrategyConfigPath string `validate:"required"`
}

// Load reads the configuration from the environment. SANDBOX must be a
// strict boolean ("true"/"false"); a malformed value is a configuration
// error, not a silent default.
func Load() (*Config, error) {
	// Missing .env is fine: production supplies real environment variables.
	_ = godotenv.Load()

	cfg := &Config{
		SecretName:         os.Getenv("SECRET_NAME"),
		BaseCurrency:       os.Getenv("BASE_CURRENCY"),
		TableName:          os.Getenv("TABLE_NAME"),
		StrategyConfigPath: os.Getenv("STRATEGY_CONFIG"),
	}

	if raw := os.Getenv("SANDBOX"); raw != "" {
		sandbox, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "SANDBOX must be a boolean, got %q", raw)
		}

		cfg.Sandbox = sandbox
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid runtime configuration", err)
	}

	return nil
}

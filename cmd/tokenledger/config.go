package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/types"
)

// Config is the CLI configuration. Environment variables are read first,
// then any flag set on the command line overrides them.
type Config struct {
	DBPath    string `env:"TOKENLEDGER_DB_PATH" envDefault:"tokenledger.db"`
	Caller    string `env:"TOKENLEDGER_CALLER"`
	LogLevel  string `env:"TOKENLEDGER_LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"TOKENLEDGER_LOG_FORMAT" envDefault:"text"`
	FeeMode   string `env:"TOKENLEDGER_FEE_MODE" envDefault:"transfers-only"`

	Raw bool `env:"-"`
}

const (
	EnvFileKey   = "env-file"
	DBPathKey    = "db"
	CallerKey    = "caller"
	LogLevelKey  = "log-level"
	LogFormatKey = "log-format"
	FeeModeKey   = "fee-mode"
	RawKey       = "raw"
)

// AddGlobalFlags registers the flags shared by every command.
func AddGlobalFlags(flags *pflag.FlagSet) {
	flags.String(EnvFileKey, ".env", "Dotenv file loaded before reading the environment (missing file is ignored)")
	flags.String(DBPathKey, "", "Ledger database file (env TOKENLEDGER_DB_PATH)")
	flags.String(CallerKey, "", "Account the operation is performed as (env TOKENLEDGER_CALLER)")
	flags.String(LogLevelKey, "", "Log level: debug, info, warn or error (env TOKENLEDGER_LOG_LEVEL)")
	flags.String(LogFormatKey, "", "Log format: text or json (env TOKENLEDGER_LOG_FORMAT)")
	flags.String(FeeModeKey, "", "Fee mode: transfers-only or all-updates (env TOKENLEDGER_FEE_MODE)")
	flags.Bool(RawKey, false, "Read and print amounts in base units instead of whole tokens")
}

// LoadConfig reads the dotenv file, the environment and then the flags.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	envFile, err := flags.GetString(EnvFileKey)
	if err != nil {
		return nil, err
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := new(Config)
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	overrides := map[string]*string{
		DBPathKey:    &cfg.DBPath,
		CallerKey:    &cfg.Caller,
		LogLevelKey:  &cfg.LogLevel,
		LogFormatKey: &cfg.LogFormat,
		FeeModeKey:   &cfg.FeeMode,
	}
	for key, dst := range overrides {
		if !flags.Changed(key) {
			continue
		}
		if *dst, err = flags.GetString(key); err != nil {
			return nil, err
		}
	}

	if cfg.Raw, err = flags.GetBool(RawKey); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FeeModeValue parses the configured fee mode.
func (c *Config) FeeModeValue() (tokenledger.FeeMode, error) {
	return tokenledger.ParseFeeMode(c.FeeMode)
}

// CallerAddress parses the configured caller. Commands that move tokens
// require one.
func (c *Config) CallerAddress() (types.Address, error) {
	if c.Caller == "" {
		return "", errors.New("no caller: set --caller or TOKENLEDGER_CALLER")
	}
	return types.ParseAddress(c.Caller)
}

// ParseAmount reads a token amount: whole tokens with up to 18 decimals,
// or base units with --raw.
func (c *Config) ParseAmount(s string) (types.Amount, error) {
	if c.Raw {
		return types.ParseAmount(s)
	}
	return types.ParseUnits(s, types.Decimals)
}

// FormatAmount is the inverse of ParseAmount.
func (c *Config) FormatAmount(a types.Amount) string {
	if c.Raw {
		return a.String()
	}
	return a.FormatUnits(types.Decimals)
}

// NewLogger builds a slog logger on w from the configured level and format.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
}

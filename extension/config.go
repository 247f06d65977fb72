package extension

import "time"

// Config holds the token ledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tokenledger" or "tokenledger" keys).
type Config struct {
	// DisableMigrate prevents schema migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Owner is the account that receives ownership at genesis. It is only
	// consulted when the store holds no ledger yet.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// Name and Symbol are the token metadata written at genesis
	// (default: "Token" / "TKN").
	Name   string `json:"name" mapstructure:"name" yaml:"name"`
	Symbol string `json:"symbol" mapstructure:"symbol" yaml:"symbol"`

	// InitialFeePercentage is the genesis transfer fee in basis points.
	// Values above the maximum fee are clamped.
	InitialFeePercentage uint64 `json:"initial_fee_percentage" mapstructure:"initial_fee_percentage" yaml:"initial_fee_percentage"`

	// FeeMode selects whether mints and burns are charged the transfer fee:
	// "transfers-only" (default) or "all-updates".
	FeeMode string `json:"fee_mode" mapstructure:"fee_mode" yaml:"fee_mode"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:          "Token",
		Symbol:        "TKN",
		FeeMode:       "transfers-only",
		PluginTimeout: 5 * time.Second,
	}
}

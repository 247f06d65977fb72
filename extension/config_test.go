package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tokenledger/types"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{Symbol: "GLD"})
	assert.Equal(t, "Token", cfg.Name)
	assert.Equal(t, "GLD", cfg.Symbol)
	assert.Equal(t, "transfers-only", cfg.FeeMode)
	assert.Equal(t, 5*time.Second, cfg.PluginTimeout)
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{Owner: "0x000000000000000000000000000000000000000a", FeeMode: "all-updates"}
	prog := Config{
		Owner:                "0x00000000000000000000000000000000000000bb",
		Name:                 "Gold",
		InitialFeePercentage: 30,
		DisableMigrate:       true,
	}

	cfg := mergeConfigurations(yaml, prog)
	assert.Equal(t, yaml.Owner, cfg.Owner, "yaml wins")
	assert.Equal(t, "all-updates", cfg.FeeMode)
	assert.Equal(t, "Gold", cfg.Name, "programmatic fills gaps")
	assert.Equal(t, "TKN", cfg.Symbol, "defaults fill the rest")
	assert.Equal(t, uint64(30), cfg.InitialFeePercentage)
	assert.True(t, cfg.DisableMigrate)
}

func TestBuildLedgerOpts(t *testing.T) {
	e := New(
		WithOwner("0x000000000000000000000000000000000000000a"),
		WithFeeMode("all-updates"),
		WithInitialFeePercentage(25),
	)
	e.config = mergeWithDefaults(e.config)

	opts, err := e.buildLedgerOpts()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	e.config.Owner = "not-an-address"
	_, err = e.buildLedgerOpts()
	require.ErrorIs(t, err, types.ErrInvalidAddress)

	e.config.Owner = ""
	e.config.FeeMode = "sometimes"
	_, err = e.buildLedgerOpts()
	require.Error(t, err)
}

package policy_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tokenledger/policy"
	"github.com/xraph/tokenledger/types"
)

func TestCap(t *testing.T) {
	assert.Equal(t, types.Tokens(50_000_000_000), policy.Cap(false))
	assert.Equal(t, types.Tokens(100_000_000_000), policy.Cap(true))
	assert.Equal(t, "50000000000000000000000000000", policy.InitialMintableSupply.String())
	assert.Equal(t, "100000000000000000000000000000", policy.MaxSupply.String())
}

func TestCheckMint(t *testing.T) {
	oneUnit := types.NewAmount(1)
	belowFull, err := policy.MaxSupply.Sub(oneUnit)
	require.NoError(t, err)

	tests := []struct {
		name        string
		supply      types.Amount
		amount      types.Amount
		canMintMore bool
		want        types.Amount
		wantErr     bool
	}{
		{"exactly initial cap", types.Zero, policy.InitialMintableSupply, false, policy.InitialMintableSupply, false},
		{"one over initial cap", policy.InitialMintableSupply, oneUnit, false, types.Zero, true},
		{"zero amount at cap", policy.InitialMintableSupply, types.Zero, false, policy.InitialMintableSupply, false},
		{"full phase past initial", policy.InitialMintableSupply, oneUnit, true, mustAdd(t, policy.InitialMintableSupply, oneUnit), false},
		{"exactly max supply", belowFull, oneUnit, true, policy.MaxSupply, false},
		{"one over max supply", policy.MaxSupply, oneUnit, true, types.Zero, true},
		{"256-bit overflow", types.Tokens(1), types.MaxAmount, true, types.Zero, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.CheckMint(tt.supply, tt.amount, tt.canMintMore)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.ErrorIs(t, err, policy.ErrCapExceeded)
			var v *policy.CapViolation
			require.True(t, errors.As(err, &v))
			assert.Equal(t, tt.supply, v.Supply)
			assert.Equal(t, tt.amount, v.Amount)
			assert.Equal(t, policy.Cap(tt.canMintMore), v.Cap)
		})
	}
}

func TestComputeFee(t *testing.T) {
	tests := []struct {
		name     string
		value    types.Amount
		feeBps   uint64
		wantFee  types.Amount
		wantSend types.Amount
	}{
		{"30 bps on 10000 tokens", types.Tokens(10_000), 30, types.Tokens(30), types.Tokens(9_970)},
		{"zero fee", types.Tokens(10_000), 0, types.Zero, types.Tokens(10_000)},
		{"max fee", types.Tokens(10_000), policy.MaxFee, types.Tokens(50), types.Tokens(9_950)},
		{"rounds down to zero", types.NewAmount(333), 30, types.Zero, types.NewAmount(333)},
		{"rounds down", types.NewAmount(1_000), 15, types.NewAmount(1), types.NewAmount(999)},
		{"zero value", types.Zero, 30, types.Zero, types.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, err := policy.ComputeFee(tt.value, tt.feeBps, policy.BasisPointDivisor)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFee, split.Fee)
			assert.Equal(t, tt.wantSend, split.Send)
			sum, err := split.Fee.Add(split.Send)
			require.NoError(t, err)
			assert.Equal(t, tt.value, sum)
		})
	}
}

func TestComputeFeeOverflow(t *testing.T) {
	_, err := policy.ComputeFee(types.MaxAmount, 30, policy.BasisPointDivisor)
	require.ErrorIs(t, err, types.ErrOverflow)
}

func TestClampFee(t *testing.T) {
	tests := []struct {
		in   types.Amount
		want uint64
	}{
		{types.Zero, 0},
		{types.NewAmount(30), 30},
		{types.NewAmount(50), 50},
		{types.NewAmount(51), 50},
		{types.NewAmount(9_999), 50},
		{types.MaxAmount, 50},
	}

	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ClampFee(tt.in))
		})
	}
}

func mustAdd(t *testing.T, a, b types.Amount) types.Amount {
	t.Helper()
	sum, err := a.Add(b)
	require.NoError(t, err)
	return sum
}

package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUSDToLamports(t *testing.T) {
	tests := []struct {
		name    string
		usd     string
		price   string
		want    uint64
		wantErr bool
	}{
		{name: "whole sol", usd: "150", price: "150", want: 1_000_000_000},
		{name: "truncates", usd: "1", price: "3", want: 333_333_333},
		{name: "zero fee", usd: "0", price: "120.5", want: 0},
		{name: "zero price", usd: "1", price: "0", wantErr: true},
		{name: "negative fee", usd: "-1", price: "100", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := USDToLamports(decimal.RequireFromString(tt.usd), decimal.RequireFromString(tt.price))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatLamports(t *testing.T) {
	assert.Equal(t, "1.5", FormatLamports(1_500_000_000))
	assert.Equal(t, "0.000000001", FormatLamports(1))
	assert.Equal(t, "1073", FormatUnits(1_073_000_000, 6))
}

func TestMinAmountOut(t *testing.T) {
	assert.Equal(t, uint64(990), MinAmountOut(1000, SlippageConfig{Type: SlippageBps, Value: 100}))
	assert.Equal(t, uint64(42), MinAmountOut(1000, SlippageConfig{Type: SlippageFixed, Value: 42}))
	assert.Equal(t, uint64(1), MinAmountOut(1000, SlippageConfig{Type: SlippageNone}))
	assert.Equal(t, uint64(1), MinAmountOut(1000, SlippageConfig{Type: SlippageBps, Value: 10_000}))
}

func TestOptionJSON(t *testing.T) {
	var req struct {
		FeeBps Option[uint64] `json:"fee_bps"`
		Name   Option[string] `json:"name"`
		Flag   Option[bool]   `json:"flag"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"fee_bps":0,"name":null}`), &req))

	fee, ok := req.FeeBps.Get()
	assert.True(t, ok)
	assert.Zero(t, fee)
	assert.False(t, req.Name.IsSet())
	assert.False(t, req.Flag.IsSet())

	current := uint64(100)
	req.FeeBps.ApplyTo(&current)
	assert.Zero(t, current)

	name := "keep"
	req.Name.ApplyTo(&name)
	assert.Equal(t, "keep", name)
}

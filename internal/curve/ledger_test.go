package curve

import (
	"math"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	lamports       = uint64(1_000_000_000)
	initVirtualSol = 30 * lamports
	initVirtualTok = uint64(1_073_000_000)
	initRealToken  = uint64(793_100_000)
	testFeeBps     = uint64(100)
)

func freshReserves() Reserves {
	return Reserves{
		VirtualSol:   initVirtualSol,
		VirtualToken: initVirtualTok,
		RealToken:    initRealToken,
	}
}

func TestQuoteBuy_ClosedForm(t *testing.T) {
	r := freshReserves()

	q, err := r.QuoteBuy(lamports, testFeeBps)
	require.NoError(t, err)

	assert.Equal(t, uint64(10_000_000), q.Fee)
	assert.Equal(t, uint64(990_000_000), q.NetSol)

	// floor(vTok - vSol*vTok/(vSol+net)) evaluated exactly
	k := new(big.Rat).SetInt(new(big.Int).Mul(
		new(big.Int).SetUint64(initVirtualSol), new(big.Int).SetUint64(initVirtualTok)))
	quotient := new(big.Rat).Quo(k, new(big.Rat).SetInt(new(big.Int).SetUint64(initVirtualSol+q.NetSol)))
	diff := new(big.Rat).Sub(new(big.Rat).SetInt(new(big.Int).SetUint64(initVirtualTok)), quotient)
	want := new(big.Int).Quo(diff.Num(), diff.Denom())

	assert.Equal(t, want.Uint64(), q.TokenOut)
	assert.False(t, q.Completes)

	next, err := r.ApplyBuy(q)
	require.NoError(t, err)
	assert.Equal(t, initRealToken-q.TokenOut, next.RealToken)
	assert.Equal(t, initVirtualTok-q.TokenOut, next.VirtualToken)
	assert.Equal(t, q.NetSol, next.RealSol)
	assert.Equal(t, initVirtualSol+q.NetSol, next.VirtualSol)
}

func TestQuoteBuy_ExactSellOut(t *testing.T) {
	r := Reserves{VirtualSol: 100, VirtualToken: 1000, RealToken: 500}

	q, err := r.QuoteBuy(100, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), q.TokenOut)
	assert.True(t, q.Completes)

	next, err := r.ApplyBuy(q)
	require.NoError(t, err)
	assert.Zero(t, next.RealToken)
	assert.Equal(t, uint64(500), next.VirtualToken)
}

func TestQuoteBuy_InsufficientCurveTokens(t *testing.T) {
	r := Reserves{VirtualSol: 100, VirtualToken: 1000, RealToken: 500}

	_, err := r.QuoteBuy(1_000, 0)
	assert.ErrorIs(t, err, ErrInsufficientCurveTokens)
}

func TestQuoteBuy_Overflow(t *testing.T) {
	r := Reserves{VirtualSol: math.MaxUint64 - 10, VirtualToken: 1000, RealToken: 1000}

	_, err := r.QuoteBuy(100, 0)
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestQuoteSell_RoundTrip(t *testing.T) {
	r := freshReserves()

	buy, err := r.QuoteBuy(2*lamports, testFeeBps)
	require.NoError(t, err)
	afterBuy, err := r.ApplyBuy(buy)
	require.NoError(t, err)

	sell, err := afterBuy.QuoteSell(buy.TokenOut, testFeeBps)
	require.NoError(t, err)
	afterSell, err := afterBuy.ApplySell(sell)
	require.NoError(t, err)

	// rounding favors the curve on both legs
	assert.LessOrEqual(t, sell.GrossSol, buy.NetSol)
	assert.Equal(t, afterBuy.RealSol-sell.GrossSol, afterSell.RealSol)
	assert.Equal(t, initRealToken, afterSell.RealToken)
	assert.Equal(t, sell.GrossSol-sell.Fee, sell.SolOut)
}

func TestQuoteSell_InsufficientCurveSOL(t *testing.T) {
	r := freshReserves()

	_, err := r.QuoteSell(1_000_000, testFeeBps)
	assert.ErrorIs(t, err, ErrInsufficientCurveSOL)
}

func TestFee(t *testing.T) {
	tests := []struct {
		name    string
		amount  uint64
		bps     uint64
		want    uint64
		wantErr error
	}{
		{name: "one percent", amount: 1_000, bps: 100, want: 10},
		{name: "floors", amount: 199, bps: 100, want: 1},
		{name: "zero rate", amount: 1_000, bps: 0, want: 0},
		{name: "full rate", amount: 1_000, bps: 10_000, want: 1_000},
		{name: "max amount", amount: math.MaxUint64, bps: 10_000, want: math.MaxUint64},
		{name: "rate too high", amount: 1, bps: 10_001, wantErr: ErrInvalidFee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fee(tt.amount, tt.bps)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReserves_ProductNeverDecreases(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	r := freshReserves()
	held := uint64(0)

	for i := 0; i < 2_000; i++ {
		before := r.Product()

		if held > 0 && rng.Intn(2) == 0 {
			amount := uint64(rng.Int63n(int64(held))) + 1
			q, err := r.QuoteSell(amount, testFeeBps)
			require.NoError(t, err)
			r, err = r.ApplySell(q)
			require.NoError(t, err)
			held -= amount
		} else {
			q, err := r.QuoteBuy(uint64(rng.Int63n(int64(lamports/10)))+1, testFeeBps)
			if err != nil {
				require.ErrorIs(t, err, ErrInsufficientCurveTokens)
				continue
			}
			r, err = r.ApplyBuy(q)
			require.NoError(t, err)
			held += q.TokenOut
		}

		assert.True(t, r.Product().Cmp(before) >= 0, "product decreased at step %d", i)
		assert.Positive(t, r.VirtualToken)
	}
}

func TestEscrowTokens(t *testing.T) {
	got, err := EscrowTokens(1_000_000_000, initVirtualTok, initVirtualTok-initRealToken)
	require.NoError(t, err)
	assert.Equal(t, 1_000_000_000-initRealToken, got)

	_, err = EscrowTokens(10, 100, 0)
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestPrice(t *testing.T) {
	r := Reserves{VirtualSol: 30, VirtualToken: 10}
	assert.Equal(t, "3", r.Price().String())
}

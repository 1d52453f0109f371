package program

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/custody"
	"github.com/rovshanmuradov/launchpad/internal/events"
)

// closedFormBuy evaluates floor(vTok - vSol*vTok/(vSol+net)) exactly.
func closedFormBuy(vSol, vTok, net uint64) uint64 {
	k := new(big.Int).Mul(new(big.Int).SetUint64(vSol), new(big.Int).SetUint64(vTok))
	x := new(big.Int).SetUint64(vSol + net)
	num := new(big.Int).Sub(new(big.Int).Mul(new(big.Int).SetUint64(vTok), x), k)
	return new(big.Int).Quo(num, x).Uint64()
}

func TestSwap_BuyClosedForm(t *testing.T) {
	f := newFixture(t)
	f.initialize(f.pumpSettings())
	mint := f.launch(f.authority)
	user := solana.NewWallet().PublicKey()
	f.fund(user, custody.NativeMint, 2*sol)

	res, err := f.program.Swap(f.ctx, user, mint, SwapParams{ExactInAmount: sol})
	require.NoError(t, err)

	wantOut := closedFormBuy(30*sol, 1_073_000_000, 990_000_000)
	assert.Equal(t, wantOut, res.AmountOut)
	assert.Equal(t, uint64(10_000_000), res.Fee)
	assert.False(t, res.Completed)

	assert.Equal(t, wantOut, f.balance(user, mint))
	assert.Equal(t, sol, f.balance(user, custody.NativeMint))
	assert.Equal(t, uint64(10_000_000), f.balance(f.receiver, custody.NativeMint))
	assert.Equal(t, uint64(990_000_000), f.balance(f.escrow(mint), custody.NativeMint))
	assert.Equal(t, 1_000_000_000-wantOut, f.balance(f.escrow(mint), mint))

	bc, err := f.program.BondingCurve(f.ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(990_000_000), bc.RealSol)
	assert.Equal(t, 30*sol+990_000_000, bc.VirtualSol)
	assert.Equal(t, uint64(793_100_000)-wantOut, bc.RealToken)
	assert.Equal(t, uint64(1_073_000_000)-wantOut, bc.VirtualToken)

	trades := f.events.ofType(events.Trade)
	require.Len(t, trades, 1)
	trade := trades[0].(*events.TradeEvent)
	assert.True(t, trade.IsBuy)
	assert.Equal(t, uint64(990_000_000), trade.SolAmount)
	assert.Equal(t, wantOut, trade.TokenAmount)
	assert.Equal(t, bc.Reserves, trade.Reserves)
}

func TestSwap_QuoteMatchesSwap(t *testing.T) {
	f := newFixture(t)
	f.initialize(f.pumpSettings())
	mint := f.launch(f.authority)
	user := solana.NewWallet().PublicKey()
	f.fund(user, custody.NativeMint, 5*sol)

	params := SwapParams{ExactInAmount: 3 * sol}
	quote, err := f.program.Quote(f.ctx, mint, params)
	require.NoError(t, err)
	res, err := f.program.Swap(f.ctx, user, mint, params)
	require.NoError(t, err)
	assert.Equal(t, quote, res)
}

func TestSwap_SellRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.initialize(f.pumpSettings())
	mint := f.launch(f.authority)
	user := solana.NewWallet().PublicKey()
	f.fund(user, custody.NativeMint, sol)

	before, err := f.program.BondingCurve(f.ctx, mint)
	require.NoError(t, err)

	buy, err := f.program.Swap(f.ctx, user, mint, SwapParams{ExactInAmount: sol})
	require.NoError(t, err)
	afterBuy, err := f.program.BondingCurve(f.ctx, mint)
	require.NoError(t, err)

	sell, err := f.program.Swap(f.ctx, user, mint, SwapParams{BaseIn: true, ExactInAmount: buy.AmountOut})
	require.NoError(t, err)
	assert.True(t, sell.BaseIn)
	assert.Less(t, sell.AmountOut, sol)
	assert.Positive(t, sell.Fee)

	after, err := f.program.BondingCurve(f.ctx, mint)
	require.NoError(t, err)
	assert.Zero(t, f.balance(user, mint))
	assert.Equal(t, sell.AmountOut, f.balance(user, custody.NativeMint))
	assert.Equal(t, before.RealToken, after.RealToken)
	assert.Equal(t, after.RealSol, f.balance(f.escrow(mint), custody.NativeMint))

	// Rounding never lets k shrink.
	assert.True(t, afterBuy.Product().Cmp(before.Product()) >= 0)
	assert.True(t, after.Product().Cmp(afterBuy.Product()) >= 0)

	trades := f.events.ofType(events.Trade)
	require.Len(t, trades, 2)
	assert.False(t, trades[1].(*events.TradeEvent).IsBuy)
}

func TestSwap_Rejects(t *testing.T) {
	f := newFixture(t)
	f.initialize(f.pumpSettings())
	mint := f.launch(f.authority)
	user := solana.NewWallet().PublicKey()
	f.fund(user, custody.NativeMint, sol)

	tests := []struct {
		name   string
		mint   solana.PublicKey
		params SwapParams
		want   error
	}{
		{"zero amount", mint, SwapParams{}, ErrMinSwap},
		{"slippage on buy", mint, SwapParams{ExactInAmount: sol, MinOutAmount: 1_000_000_000}, ErrSlippageExceeded},
		{"buy below one token", mint, SwapParams{ExactInAmount: 1}, ErrBuyFailed},
		{"sell more than held", mint, SwapParams{BaseIn: true, ExactInAmount: 1_000}, ErrBondingCurveInvariant},
		{"unknown mint", solana.NewWallet().PublicKey(), SwapParams{ExactInAmount: sol}, ErrBondingCurveNotFound},
		{"more sol than held", mint, SwapParams{ExactInAmount: 2 * sol}, ErrInsufficientUserSOL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.program.Swap(f.ctx, user, tt.mint, tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	bc, err := f.program.BondingCurve(f.ctx, mint)
	require.NoError(t, err)
	assert.Zero(t, bc.RealSol)
	assert.Equal(t, sol, f.balance(user, custody.NativeMint))
	assert.Empty(t, f.events.ofType(events.Trade))
}

func TestSwap_InsufficientUserTokens(t *testing.T) {
	f := newFixture(t)
	f.initialize(f.pumpSettings())
	mint := f.launch(f.authority)
	buyer := solana.NewWallet().PublicKey()
	seller := solana.NewWallet().PublicKey()
	f.fund(buyer, custody.NativeMint, sol)

	buy, err := f.program.Swap(f.ctx, buyer, mint, SwapParams{ExactInAmount: sol})
	require.NoError(t, err)

	_, err = f.program.Swap(f.ctx, seller, mint, SwapParams{BaseIn: true, ExactInAmount: buy.AmountOut / 2})
	assert.ErrorIs(t, err, ErrInsufficientUserTokens)
	assert.Equal(t, KindResource, KindOf(err))
}

func TestSwap_StartTimeGate(t *testing.T) {
	f := newFixture(t)
	f.initialize(f.pumpSettings())
	user := solana.NewWallet().PublicKey()
	f.fund(user, custody.NativeMint, sol)
	mint := solana.NewWallet().PublicKey()
	start := startUnix + 60

	bc, err := f.program.CreateBondingCurve(f.ctx, mint, user, CreateCurveParams{Name: "Later", Symbol: "LTR", StartTime: &start})
	require.NoError(t, err)
	assert.Equal(t, start, bc.StartTime)

	_, err = f.program.Swap(f.ctx, user, mint, SwapParams{ExactInAmount: sol / 10})
	assert.ErrorIs(t, err, ErrCurveNotStarted)

	_, err = f.program.Quote(f.ctx, mint, SwapParams{ExactInAmount: sol / 10})
	assert.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.program.Swap(f.ctx, user, mint, SwapParams{ExactInAmount: sol / 10})
	assert.NoError(t, err)
}

func TestSwap_SoldOutCompletes(t *testing.T) {
	f := newFixture(t)
	f.initialize(f.tinySettings())
	mint := f.launch(f.authority)
	user := solana.NewWallet().PublicKey()
	f.fund(user, custody.NativeMint, 1_000)

	res, err := f.program.Swap(f.ctx, user, mint, SwapParams{ExactInAmount: 100})
	require.NoError(t, err)
	assert.Equal(t, uint64(500), res.AmountOut)
	assert.True(t, res.Completed)
	assert.Zero(t, res.Reserves.RealToken)

	bc, err := f.program.BondingCurve(f.ctx, mint)
	require.NoError(t, err)
	assert.True(t, bc.Complete)
	assert.Equal(t, uint64(100), bc.RealSol)

	completed := f.events.ofType(events.CurveCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, user, completed[0].(*events.CompleteEvent).User)

	_, err = f.program.Swap(f.ctx, user, mint, SwapParams{BaseIn: true, ExactInAmount: 10})
	assert.ErrorIs(t, err, ErrBondingCurveComplete)
	_, err = f.program.Swap(f.ctx, user, mint, SwapParams{ExactInAmount: 10})
	assert.ErrorIs(t, err, ErrBondingCurveComplete)
	_, err = f.program.Quote(f.ctx, mint, SwapParams{ExactInAmount: 10})
	assert.ErrorIs(t, err, ErrBondingCurveComplete)

	assert.Len(t, f.events.ofType(events.CurveCompleted), 1)
}

func TestSwap_OverbuyRejected(t *testing.T) {
	f := newFixture(t)
	f.initialize(f.tinySettings())
	mint := f.launch(f.authority)
	user := solana.NewWallet().PublicKey()
	f.fund(user, custody.NativeMint, 1_000)

	_, err := f.program.Swap(f.ctx, user, mint, SwapParams{ExactInAmount: 1_000})
	assert.ErrorIs(t, err, ErrInsufficientCurveTokens)
}

func TestSwap_StoreFailureReversesCustody(t *testing.T) {
	f := newFixture(t)
	f.initialize(f.pumpSettings())
	mint := f.launch(f.authority)
	user := solana.NewWallet().PublicKey()
	f.fund(user, custody.NativeMint, sol)

	f.store.fail = true
	_, err := f.program.Swap(f.ctx, user, mint, SwapParams{ExactInAmount: sol})
	require.Error(t, err)
	f.store.fail = false

	assert.Equal(t, sol, f.balance(user, custody.NativeMint))
	assert.Zero(t, f.balance(user, mint))
	assert.Zero(t, f.balance(f.receiver, custody.NativeMint))
	assert.Equal(t, uint64(1_000_000_000), f.balance(f.escrow(mint), mint))

	bc, err := f.program.BondingCurve(f.ctx, mint)
	require.NoError(t, err)
	assert.Zero(t, bc.RealSol)
	assert.Empty(t, f.events.ofType(events.Trade))
}

func TestSwap_ConcurrentMints(t *testing.T) {
	f := newFixture(t)
	f.initialize(f.pumpSettings())

	const (
		mints  = 8
		buys   = 10
		amount = sol / 10
	)
	user := solana.NewWallet().PublicKey()
	f.fund(user, custody.NativeMint, mints*buys*amount)

	launched := make([]solana.PublicKey, mints)
	for i := range launched {
		launched[i] = f.launch(f.authority)
	}

	var wg sync.WaitGroup
	for _, mint := range launched {
		wg.Add(1)
		go func(mint solana.PublicKey) {
			defer wg.Done()
			for i := 0; i < buys; i++ {
				_, err := f.program.Swap(f.ctx, user, mint, SwapParams{ExactInAmount: amount})
				assert.NoError(t, err)
			}
		}(mint)
	}
	wg.Wait()

	var first *struct{ vSol, vTok uint64 }
	for _, mint := range launched {
		bc, err := f.program.BondingCurve(f.ctx, mint)
		require.NoError(t, err)
		assert.Equal(t, bc.RealSol, f.balance(f.escrow(mint), custody.NativeMint))
		if first == nil {
			first = &struct{ vSol, vTok uint64 }{bc.VirtualSol, bc.VirtualToken}
			continue
		}
		assert.Equal(t, first.vSol, bc.VirtualSol)
		assert.Equal(t, first.vTok, bc.VirtualToken)
	}
	assert.Zero(t, f.balance(user, custody.NativeMint))
	assert.Len(t, f.events.ofType(events.Trade), mints*buys)
}

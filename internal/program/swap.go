// internal/program/swap.go
package program

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/custody"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// SwapParams mirrors the swap instruction. BaseIn=false buys tokens with
// SOL, BaseIn=true sells tokens for SOL.
type SwapParams struct {
	BaseIn        bool   `json:"base_in"`
	ExactInAmount uint64 `json:"exact_in_amount"`
	MinOutAmount  uint64 `json:"min_out_amount"`
}

// SwapResult reports what a swap or quote moved.
type SwapResult struct {
	Mint      solana.PublicKey `json:"mint"`
	BaseIn    bool             `json:"base_in"`
	AmountIn  uint64           `json:"amount_in"`
	AmountOut uint64           `json:"amount_out"`
	Fee       uint64           `json:"fee"`
	// Reserves are the curve reserves after the swap.
	Reserves  curve.Reserves `json:"reserves"`
	Completed bool           `json:"completed"`
}

// Swap executes a buy or sell against the curve of mint.
func (p *Program) Swap(ctx context.Context, user, mint solana.PublicKey, params SwapParams) (_ *SwapResult, err error) {
	defer p.observe("swap", time.Now(), &err,
		zap.String("mint", mint.String()),
		zap.String("user", user.String()),
		zap.Bool("base_in", params.BaseIn),
		zap.Uint64("amount", params.ExactInAmount))

	p.config.RLock()
	defer p.config.RUnlock()

	g, err := p.loadGlobal(ctx)
	if err != nil {
		return nil, err
	}
	if !g.Status.AllowsSwap() {
		return nil, ErrProgramNotRunning.With("status %s", g.Status)
	}

	unlock := p.curves.lock(mint)
	defer unlock()

	bc, err := p.loadCurve(ctx, mint)
	if err != nil {
		return nil, err
	}
	if bc.Complete {
		return nil, ErrBondingCurveComplete
	}
	if now := p.now().Unix(); now < bc.StartTime {
		return nil, ErrCurveNotStarted.With("starts at %d, now %d", bc.StartTime, now)
	}

	result, err := price(bc, g.FeeBps, params)
	if err != nil {
		return nil, err
	}

	escrow, _, err := p.curveEscrow(mint)
	if err != nil {
		return nil, err
	}

	next := bc.Clone()
	next.Reserves = result.Reserves
	next.Complete = result.Completed

	var ops []custody.Op
	if params.BaseIn {
		ops = []custody.Op{
			custody.Transfer(mint, user, escrow, result.AmountIn),
			custody.Transfer(custody.NativeMint, escrow, user, result.AmountOut),
			custody.Transfer(custody.NativeMint, escrow, g.FeeReceiver, result.Fee),
		}
	} else {
		ops = []custody.Op{
			custody.Transfer(custody.NativeMint, user, escrow, result.AmountIn-result.Fee),
			custody.Transfer(custody.NativeMint, user, g.FeeReceiver, result.Fee),
			custody.Transfer(mint, escrow, user, result.AmountOut),
		}
	}

	if err := p.settle(ctx, ops, storage.Batch{Curve: next}); err != nil {
		return nil, custodyError(err, user, params.BaseIn)
	}

	now := p.now()
	trade := &events.TradeEvent{
		BaseEvent:   events.NewBase(events.Trade, now),
		Mint:        mint,
		FeeLamports: result.Fee,
		IsBuy:       !params.BaseIn,
		User:        user,
		Reserves:    next.Reserves,
	}
	if params.BaseIn {
		trade.SolAmount, trade.TokenAmount = result.AmountOut, result.AmountIn
	} else {
		trade.SolAmount, trade.TokenAmount = result.AmountIn-result.Fee, result.AmountOut
	}
	evts := []events.Event{trade}

	if next.Complete {
		p.logger.Info("Bonding curve complete",
			zap.String("mint", mint.String()),
			zap.Uint64("real_sol_reserves", next.RealSol))
		evts = append(evts, &events.CompleteEvent{
			BaseEvent: events.NewBase(events.CurveCompleted, now),
			User:      user,
			Mint:      mint,
			Reserves:  next.Reserves,
		})
	}
	p.publish(evts...)

	p.logger.Debug("Swap executed",
		zap.String("mint", mint.String()),
		zap.Bool("buy", !params.BaseIn),
		zap.Uint64("in", result.AmountIn),
		zap.Uint64("out", result.AmountOut),
		zap.Uint64("fee", result.Fee))
	return result, nil
}

// Quote prices a swap without moving funds. Status and start-time gates do
// not apply; everything else matches Swap.
func (p *Program) Quote(ctx context.Context, mint solana.PublicKey, params SwapParams) (*SwapResult, error) {
	p.config.RLock()
	defer p.config.RUnlock()

	g, err := p.loadGlobal(ctx)
	if err != nil {
		return nil, err
	}
	bc, err := p.loadCurve(ctx, mint)
	if err != nil {
		return nil, err
	}
	if bc.Complete {
		return nil, ErrBondingCurveComplete
	}
	return price(bc, g.FeeBps, params)
}

func price(bc *state.BondingCurve, feeBps uint64, params SwapParams) (*SwapResult, error) {
	if params.ExactInAmount == 0 {
		return nil, ErrMinSwap
	}
	if params.BaseIn {
		return priceSell(bc, feeBps, params)
	}
	return priceBuy(bc, feeBps, params)
}

func priceBuy(bc *state.BondingCurve, feeBps uint64, params SwapParams) (*SwapResult, error) {
	q, err := bc.Reserves.QuoteBuy(params.ExactInAmount, feeBps)
	if err != nil {
		return nil, curveError(err)
	}
	if q.TokenOut < params.MinOutAmount {
		return nil, ErrSlippageExceeded.With("token out %d below minimum %d", q.TokenOut, params.MinOutAmount)
	}
	if q.TokenOut == 0 {
		return nil, ErrBuyFailed.With("%d lamports buys no tokens", params.ExactInAmount)
	}
	next, err := bc.Reserves.ApplyBuy(q)
	if err != nil {
		return nil, curveError(err)
	}
	return &SwapResult{
		Mint:      bc.Mint,
		AmountIn:  q.SolIn,
		AmountOut: q.TokenOut,
		Fee:       q.Fee,
		Reserves:  next,
		Completed: next.RealToken == 0,
	}, nil
}

func priceSell(bc *state.BondingCurve, feeBps uint64, params SwapParams) (*SwapResult, error) {
	q, err := bc.Reserves.QuoteSell(params.ExactInAmount, feeBps)
	if err != nil {
		return nil, curveError(err)
	}
	if q.SolOut < params.MinOutAmount {
		return nil, ErrSlippageExceeded.With("sol out %d below minimum %d", q.SolOut, params.MinOutAmount)
	}
	if q.SolOut == 0 {
		return nil, ErrSellFailed.With("%d tokens sell for no SOL", params.ExactInAmount)
	}
	next, err := bc.Reserves.ApplySell(q)
	if err != nil {
		return nil, curveError(err)
	}
	return &SwapResult{
		Mint:      bc.Mint,
		BaseIn:    true,
		AmountIn:  q.TokenIn,
		AmountOut: q.SolOut,
		Fee:       q.Fee,
		Reserves:  next,
	}, nil
}

func curveError(err error) error {
	switch {
	case errors.Is(err, curve.ErrInsufficientCurveTokens):
		return ErrInsufficientCurveTokens.With("%v", err)
	case errors.Is(err, curve.ErrInsufficientCurveSOL), errors.Is(err, curve.ErrArithmetic):
		return ErrBondingCurveInvariant.With("%v", err)
	case errors.Is(err, curve.ErrInvalidFee):
		return ErrInvalidArgument.With("%v", err)
	default:
		return fmt.Errorf("pricing failed: %w", err)
	}
}

// custodyError maps a shortfall of the trader to the matching program code.
// A shortfall anywhere else means the escrow disagrees with the reserves.
func custodyError(err error, user solana.PublicKey, sell bool) error {
	var short *custody.InsufficientFundsError
	if !errors.As(err, &short) {
		return fmt.Errorf("failed to settle swap: %w", err)
	}
	if short.Owner.Equals(user) {
		if sell {
			return ErrInsufficientUserTokens.With("have %d, need %d", short.Have, short.Want)
		}
		return ErrInsufficientUserSOL.With("have %d, need %d", short.Have, short.Want)
	}
	return ErrBondingCurveInvariant.With("escrow %s short: %v", short.Owner, err)
}

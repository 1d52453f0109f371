// internal/program/curve.go
package program

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/custody"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/metadata"
	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// CreateCurveParams describes a launch. A nil StartTime starts trading now.
type CreateCurveParams struct {
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	URI       string `json:"uri"`
	StartTime *int64 `json:"start_time,omitempty"`
}

// CreateBondingCurve launches mint: the whole supply is minted into the
// curve escrow and the curve is seeded from the global presets.
func (p *Program) CreateBondingCurve(ctx context.Context, mint, creator solana.PublicKey, params CreateCurveParams) (_ *state.BondingCurve, err error) {
	defer p.observe("create_bonding_curve", time.Now(), &err,
		zap.String("mint", mint.String()), zap.String("creator", creator.String()))

	p.config.RLock()
	defer p.config.RUnlock()

	g, err := p.loadGlobal(ctx)
	if err != nil {
		return nil, err
	}
	if !g.Status.AllowsLaunch() {
		return nil, ErrProgramNotRunning.With("status %s", g.Status)
	}
	if g.WhitelistEnabled {
		wl, err := p.loadWhitelist(ctx)
		if err != nil {
			return nil, err
		}
		if !wl.Contains(creator) {
			return nil, ErrNotWhiteList.With("creator %s", creator)
		}
	}

	now := p.now().Unix()
	startTime := now
	if params.StartTime != nil {
		if *params.StartTime < now {
			return nil, ErrInvalidStartTime.With("start %d before now %d", *params.StartTime, now)
		}
		startTime = *params.StartTime
	}

	md := metadata.Metadata{Name: params.Name, Symbol: params.Symbol, URI: params.URI}
	if err := md.Validate(); err != nil {
		return nil, ErrInvalidArgument.With("%v", err)
	}
	if mint.IsZero() || mint.Equals(custody.NativeMint) {
		return nil, ErrNotBondingCurveMint.With("mint %s", mint)
	}

	unlock := p.curves.lock(mint)
	defer unlock()

	_, err = p.store.LoadCurve(ctx, mint)
	switch {
	case err == nil:
		return nil, ErrBondingCurveExists.With("mint %s", mint)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to load curve %s: %w", mint, err)
	}

	escrow, bump, err := p.curveEscrow(mint)
	if err != nil {
		return nil, err
	}

	bc := &state.BondingCurve{
		Mint:                        mint,
		Creator:                     creator,
		InitialVirtualTokenReserves: g.InitialVirtualTokenReserves,
		Reserves:                    g.InitialReserves(),
		TokenTotalSupply:            g.TokenTotalSupply,
		StartTime:                   startTime,
		Bump:                        bump,
	}

	if err := p.meta.Record(ctx, mint, md); err != nil {
		if errors.Is(err, metadata.ErrAlreadyExists) {
			return nil, ErrBondingCurveExists.With("metadata already recorded for %s", mint)
		}
		return nil, fmt.Errorf("failed to record metadata: %w", err)
	}

	ops := []custody.Op{custody.MintTo(mint, escrow, g.TokenTotalSupply)}
	if err := p.settle(ctx, ops, storage.Batch{Curve: bc, NewCurve: true}); err != nil {
		if ferr := p.meta.Forget(context.WithoutCancel(ctx), mint); ferr != nil {
			p.logger.Error("Failed to roll back metadata", zap.String("mint", mint.String()), zap.Error(ferr))
		}
		if errors.Is(err, storage.ErrExists) {
			return nil, ErrBondingCurveExists.With("mint %s", mint)
		}
		return nil, fmt.Errorf("failed to create curve: %w", err)
	}

	p.logger.Info("Bonding curve created",
		zap.String("mint", mint.String()),
		zap.String("creator", creator.String()),
		zap.String("escrow", escrow.String()),
		zap.Int64("start_time", startTime))

	p.publish(&events.CreateEvent{
		BaseEvent:        events.NewBase(events.CurveCreated, p.now()),
		Mint:             mint,
		Creator:          creator,
		Name:             md.Name,
		Symbol:           md.Symbol,
		URI:              md.URI,
		StartTime:        startTime,
		Reserves:         bc.Reserves,
		TokenTotalSupply: bc.TokenTotalSupply,
	})
	return bc.Clone(), nil
}

// BondingCurve returns a snapshot of one curve.
func (p *Program) BondingCurve(ctx context.Context, mint solana.PublicKey) (*state.BondingCurve, error) {
	return p.loadCurve(ctx, mint)
}

// BondingCurves returns every curve.
func (p *Program) BondingCurves(ctx context.Context) ([]*state.BondingCurve, error) {
	curves, err := p.store.ListCurves(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list curves: %w", err)
	}
	return curves, nil
}

// ForceComplete ends trading on an active curve. Global authority only.
func (p *Program) ForceComplete(ctx context.Context, authority, mint solana.PublicKey) (_ *state.BondingCurve, err error) {
	defer p.observe("force_complete", time.Now(), &err, zap.String("mint", mint.String()))

	p.config.RLock()
	defer p.config.RUnlock()

	g, err := p.loadGlobal(ctx)
	if err != nil {
		return nil, err
	}
	if !g.GlobalAuthority.Equals(authority) {
		return nil, ErrInvalidGlobalAuthority
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

	next := bc.Clone()
	next.Complete = true
	if err := p.store.Commit(ctx, storage.Batch{Curve: next}); err != nil {
		return nil, fmt.Errorf("failed to commit curve: %w", err)
	}

	p.logger.Info("Bonding curve force-completed",
		zap.String("mint", mint.String()),
		zap.String("authority", authority.String()))

	p.publish(&events.CompleteEvent{
		BaseEvent: events.NewBase(events.CurveCompleted, p.now()),
		User:      authority,
		Mint:      mint,
		Reserves:  next.Reserves,
	})
	return next.Clone(), nil
}

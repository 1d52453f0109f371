// internal/program/global.go
package program

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/types"
)

// Settings is a partial update of the global configuration. Unset fields
// keep their current value.
type Settings struct {
	InitialVirtualTokenReserves types.Option[uint64]              `json:"initial_virtual_token_reserves"`
	InitialVirtualSolReserves   types.Option[uint64]              `json:"initial_virtual_sol_reserves"`
	InitialRealTokenReserves    types.Option[uint64]              `json:"initial_real_token_reserves"`
	TokenTotalSupply            types.Option[uint64]              `json:"token_total_supply"`
	FeeBps                      types.Option[uint64]              `json:"fee_bps"`
	MintDecimals                types.Option[uint8]               `json:"mint_decimals"`
	MigrateFeeAmount            types.Option[uint64]              `json:"migrate_fee_amount"`
	FeeReceiver                 types.Option[solana.PublicKey]    `json:"fee_receiver"`
	Status                      types.Option[state.ProgramStatus] `json:"status"`
	WhitelistEnabled            types.Option[bool]                `json:"whitelist_enabled"`
	MeteoraConfig               types.Option[solana.PublicKey]    `json:"meteora_config"`
}

func (s Settings) applyTo(g *state.Global) {
	s.InitialVirtualTokenReserves.ApplyTo(&g.InitialVirtualTokenReserves)
	s.InitialVirtualSolReserves.ApplyTo(&g.InitialVirtualSolReserves)
	s.InitialRealTokenReserves.ApplyTo(&g.InitialRealTokenReserves)
	s.TokenTotalSupply.ApplyTo(&g.TokenTotalSupply)
	s.FeeBps.ApplyTo(&g.FeeBps)
	s.MintDecimals.ApplyTo(&g.MintDecimals)
	s.MigrateFeeAmount.ApplyTo(&g.MigrateFeeAmount)
	s.FeeReceiver.ApplyTo(&g.FeeReceiver)
	s.Status.ApplyTo(&g.Status)
	s.WhitelistEnabled.ApplyTo(&g.WhitelistEnabled)
	s.MeteoraConfig.ApplyTo(&g.MeteoraConfig)
}

// Authorities rotates the two privileged roles.
type Authorities struct {
	GlobalAuthority    types.Option[solana.PublicKey] `json:"global_authority"`
	MigrationAuthority types.Option[solana.PublicKey] `json:"migration_authority"`
}

// InitializeParams seeds the registry. When MigrateFeeUSD is positive it is
// converted at the supplied SOL price and overrides Settings.MigrateFeeAmount.
type InitializeParams struct {
	Settings
	MigrateFeeUSD decimal.Decimal `json:"migrate_fee_usd"`
}

// Initialize creates the global record and the empty whitelist. The caller
// becomes both global and migration authority.
func (p *Program) Initialize(ctx context.Context, authority solana.PublicKey, params InitializeParams, solPriceUSD decimal.Decimal) (_ *state.Global, err error) {
	defer p.observe("initialize", time.Now(), &err, zap.String("authority", authority.String()))

	p.config.Lock()
	defer p.config.Unlock()

	existing, err := p.store.LoadGlobal(ctx)
	switch {
	case err == nil && existing.Initialized:
		return nil, ErrAlreadyInitialized
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to load global: %w", err)
	}

	wl, err := p.store.LoadWhitelist(ctx)
	switch {
	case err == nil && wl.Initialized:
		return nil, ErrWlInitializeFailed
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to load whitelist: %w", err)
	}

	g := &state.Global{
		Initialized:        true,
		GlobalAuthority:    authority,
		MigrationAuthority: authority,
		FeeReceiver:        authority,
	}
	params.Settings.applyTo(g)
	if g.FeeReceiver.IsZero() {
		g.FeeReceiver = authority
	}

	if params.MigrateFeeUSD.IsPositive() {
		if !solPriceUSD.IsPositive() {
			return nil, ErrInvalidArgument.With("sol price must be positive, got %s", solPriceUSD)
		}
		fee, err := types.USDToLamports(params.MigrateFeeUSD, solPriceUSD)
		if err != nil {
			return nil, ErrInvalidArgument.With("%v", err)
		}
		g.MigrateFeeAmount = fee
	}

	if err := g.Validate(); err != nil {
		return nil, ErrInvalidArgument.With("%v", err)
	}

	whitelist := &state.Whitelist{Initialized: true}
	if err := p.store.Commit(ctx, storage.Batch{Global: g, Whitelist: whitelist}); err != nil {
		return nil, fmt.Errorf("failed to commit global: %w", err)
	}

	p.logger.Info("Launchpad initialized",
		zap.String("authority", authority.String()),
		zap.Uint64("migrate_fee_lamports", g.MigrateFeeAmount),
		zap.Uint64("fee_bps", g.FeeBps))

	p.publish(p.globalEvent(g))
	return g.Clone(), nil
}

// SetParams applies a partial update. Only the global authority may call it.
func (p *Program) SetParams(ctx context.Context, authority solana.PublicKey, settings Settings, authorities Authorities) (_ *state.Global, err error) {
	defer p.observe("set_params", time.Now(), &err, zap.String("authority", authority.String()))

	p.config.Lock()
	defer p.config.Unlock()

	g, err := p.loadGlobal(ctx)
	if err != nil {
		return nil, err
	}
	if !g.GlobalAuthority.Equals(authority) {
		return nil, ErrInvalidGlobalAuthority
	}

	next := g.Clone()
	settings.applyTo(next)
	authorities.GlobalAuthority.ApplyTo(&next.GlobalAuthority)
	authorities.MigrationAuthority.ApplyTo(&next.MigrationAuthority)

	switch {
	case next.GlobalAuthority.IsZero():
		return nil, ErrInvalidArgument.With("global authority cannot be empty")
	case next.MigrationAuthority.IsZero():
		return nil, ErrInvalidArgument.With("migration authority cannot be empty")
	case next.FeeReceiver.IsZero():
		return nil, ErrInvalidArgument.With("fee receiver cannot be empty")
	}
	if err := next.Validate(); err != nil {
		return nil, ErrInvalidArgument.With("%v", err)
	}

	if err := p.store.Commit(ctx, storage.Batch{Global: next}); err != nil {
		return nil, fmt.Errorf("failed to commit global: %w", err)
	}

	if !next.GlobalAuthority.Equals(g.GlobalAuthority) {
		p.logger.Info("Global authority rotated",
			zap.String("from", g.GlobalAuthority.String()),
			zap.String("to", next.GlobalAuthority.String()))
	}
	if next.Status != g.Status {
		p.logger.Info("Program status changed",
			zap.Stringer("from", g.Status), zap.Stringer("to", next.Status))
	}

	p.publish(p.globalEvent(next))
	return next.Clone(), nil
}

// Global returns a snapshot of the configuration.
func (p *Program) Global(ctx context.Context) (*state.Global, error) {
	p.config.RLock()
	defer p.config.RUnlock()
	return p.loadGlobal(ctx)
}

func (p *Program) globalEvent(g *state.Global) *events.GlobalUpdateEvent {
	return &events.GlobalUpdateEvent{
		BaseEvent:                   events.NewBase(events.GlobalUpdated, p.now()),
		GlobalAuthority:             g.GlobalAuthority,
		MigrationAuthority:          g.MigrationAuthority,
		Status:                      uint8(g.Status),
		InitialVirtualTokenReserves: g.InitialVirtualTokenReserves,
		InitialVirtualSolReserves:   g.InitialVirtualSolReserves,
		InitialRealTokenReserves:    g.InitialRealTokenReserves,
		TokenTotalSupply:            g.TokenTotalSupply,
		FeeBps:                      g.FeeBps,
		MintDecimals:                g.MintDecimals,
	}
}

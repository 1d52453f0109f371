// internal/program/migration.go
package program

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/amm"
	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/custody"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// PoolResult is the outcome of CreatePool.
type PoolResult struct {
	Pool        *amm.Pool           `json:"pool"`
	Curve       *state.BondingCurve `json:"curve"`
	MigrateFee  uint64              `json:"migrate_fee"`
	SolAmount   uint64              `json:"sol_amount"`
	TokenAmount uint64              `json:"token_amount"`
}

// CreatePool moves a complete curve's liquidity into the AMM. The migration
// fee goes to the fee receiver and the LP tokens to the caller. The curve is
// committed as pending before the AMM call, so a CreatePool that failed after
// the pool was created can be repeated to finish the migration.
func (p *Program) CreatePool(ctx context.Context, authority, mint, quoteMint, ammConfig solana.PublicKey) (_ *PoolResult, err error) {
	defer p.observe("create_pool", time.Now(), &err, zap.String("mint", mint.String()))

	p.config.RLock()
	defer p.config.RUnlock()

	g, err := p.loadGlobal(ctx)
	if err != nil {
		return nil, err
	}
	if !g.MigrationAuthority.Equals(authority) {
		return nil, ErrInvalidMigrationAuthority
	}

	unlock := p.curves.lock(mint)
	defer unlock()

	bc, err := p.loadCurve(ctx, mint)
	if err != nil {
		return nil, err
	}
	switch {
	case bc.Migration.Stage != state.MigrationNone && bc.Migration.Stage != state.MigrationPending:
		return nil, ErrAlreadyMigrated.With("stage %s", bc.Migration.Stage)
	case !bc.Complete:
		return nil, ErrNotCompleted
	case !quoteMint.Equals(custody.NativeMint):
		return nil, ErrNotSOL.With("quote mint %s", quoteMint)
	case !ammConfig.Equals(g.MeteoraConfig):
		return nil, ErrInvalidConfig.With("config %s", ammConfig)
	}

	poolAddress, err := amm.PoolAddress(ammConfig, custody.NativeMint, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive pool address: %w", err)
	}
	escrow, _, err := p.curveEscrow(mint)
	if err != nil {
		return nil, err
	}
	req := amm.CreatePoolRequest{
		Payer:  authority,
		Source: escrow,
		TokenA: custody.NativeMint,
		TokenB: mint,
		Config: ammConfig,
	}
	if req.AmountB, err = curve.EscrowTokens(bc.TokenTotalSupply, bc.InitialVirtualTokenReserves, bc.VirtualToken); err != nil {
		return nil, ErrBondingCurveInvariant.With("escrow tokens: %v", err)
	}

	if bc.Migration.Stage == state.MigrationPending {
		if !bc.Migration.Pool.Equals(poolAddress) {
			return nil, ErrInvalidConfig.With("pending pool %s", bc.Migration.Pool)
		}
		req.AmountA = bc.RealSol
		return p.resumePool(ctx, g, bc, req)
	}

	if bc.RealSol < g.MigrateFeeAmount {
		return nil, ErrBondingCurveInvariant.With("real sol %d below migration fee %d", bc.RealSol, g.MigrateFeeAmount)
	}
	req.AmountA = bc.RealSol - g.MigrateFeeAmount
	lpMint, err := amm.LPMintAddress(poolAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to derive lp mint: %w", err)
	}

	feeOps := custody.Compact([]custody.Op{
		custody.Transfer(custody.NativeMint, escrow, g.FeeReceiver, g.MigrateFeeAmount),
	})
	if len(feeOps) > 0 {
		if err := p.ledger.Apply(ctx, feeOps); err != nil {
			return nil, custodyError(err, authority, false)
		}
	}

	pending := bc.Clone()
	pending.RealSol = req.AmountA
	pending.Migration = state.Migration{
		Stage:  state.MigrationPending,
		Pool:   poolAddress,
		LPMint: lpMint,
	}
	if err := p.store.Commit(ctx, storage.Batch{Curve: pending}); err != nil {
		p.refund(ctx, feeOps)
		return nil, fmt.Errorf("failed to commit pending migration: %w", err)
	}

	pool, err := p.pools.CreatePool(ctx, req)
	if err != nil {
		if cerr := p.store.Commit(context.WithoutCancel(ctx), storage.Batch{Curve: bc}); cerr != nil {
			// The fee stays paid; the curve remains pending and CreatePool resumes it.
			p.logger.Error("Pool creation failed and curve stays pending",
				zap.String("mint", mint.String()),
				zap.Error(cerr))
			return nil, fmt.Errorf("failed to create pool: %w", errors.Join(err, cerr))
		}
		p.refund(ctx, feeOps)
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return p.finishPool(ctx, pending, pool, req, g.MigrateFeeAmount)
}

// resumePool completes a pending migration. The fee was paid when the curve
// went pending; the pool is created only if the AMM has no record of it.
func (p *Program) resumePool(ctx context.Context, g *state.Global, pending *state.BondingCurve, req amm.CreatePoolRequest) (*PoolResult, error) {
	pool, err := p.pools.Pool(ctx, pending.Migration.Pool)
	switch {
	case errors.Is(err, amm.ErrPoolNotFound):
		if pool, err = p.pools.CreatePool(ctx, req); err != nil {
			return nil, fmt.Errorf("failed to create pool: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up pool: %w", err)
	default:
		p.logger.Info("Resuming migration of existing pool",
			zap.String("mint", pending.Mint.String()),
			zap.String("pool", pool.Address.String()))
	}
	return p.finishPool(ctx, pending, pool, req, g.MigrateFeeAmount)
}

func (p *Program) finishPool(ctx context.Context, pending *state.BondingCurve, pool *amm.Pool, req amm.CreatePoolRequest, fee uint64) (*PoolResult, error) {
	mint := pending.Mint
	next := pending.Clone()
	next.RealSol = 0
	next.RealToken = 0
	next.Migration = state.Migration{
		Stage:    state.MigrationPoolCreated,
		Pool:     pool.Address,
		LPMint:   pool.LPMint,
		LPAmount: pool.LPAmount,
	}
	if err := p.store.Commit(ctx, storage.Batch{Curve: next}); err != nil {
		p.logger.Error("Pool created but curve commit failed",
			zap.String("mint", mint.String()),
			zap.String("pool", pool.Address.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to commit migration: %w", err)
	}

	p.logger.Info("Pool created",
		zap.String("mint", mint.String()),
		zap.String("pool", pool.Address.String()),
		zap.Uint64("sol", req.AmountA),
		zap.Uint64("tokens", req.AmountB),
		zap.Uint64("lp", pool.LPAmount))

	p.publish(&events.PoolCreatedEvent{
		BaseEvent:   events.NewBase(events.PoolCreated, p.now()),
		Mint:        mint,
		Authority:   req.Payer,
		Pool:        pool.Address,
		LPMint:      pool.LPMint,
		LPAmount:    pool.LPAmount,
		SolAmount:   req.AmountA,
		TokenAmount: req.AmountB,
		MigrateFee:  fee,
	})

	return &PoolResult{
		Pool:        pool,
		Curve:       next.Clone(),
		MigrateFee:  fee,
		SolAmount:   req.AmountA,
		TokenAmount: req.AmountB,
	}, nil
}

// LockPool escrows the LP position received by CreatePool.
func (p *Program) LockPool(ctx context.Context, authority, mint solana.PublicKey) (_ *amm.LockEscrow, err error) {
	defer p.observe("lock_pool", time.Now(), &err, zap.String("mint", mint.String()))

	p.config.RLock()
	defer p.config.RUnlock()

	g, err := p.loadGlobal(ctx)
	if err != nil {
		return nil, err
	}
	if !g.MigrationAuthority.Equals(authority) {
		return nil, ErrInvalidMigrationAuthority
	}

	unlock := p.curves.lock(mint)
	defer unlock()

	bc, err := p.loadCurve(ctx, mint)
	if err != nil {
		return nil, err
	}
	switch bc.Migration.Stage {
	case state.MigrationPoolCreated:
	case state.MigrationNone, state.MigrationPending:
		return nil, ErrPoolNotCreated
	default:
		return nil, ErrAlreadyMigrated.With("stage %s", bc.Migration.Stage)
	}

	escrow, err := p.pools.LockPool(ctx, amm.LockRequest{
		Pool:   bc.Migration.Pool,
		Owner:  authority,
		Amount: bc.Migration.LPAmount,
	})
	if err != nil {
		if errors.Is(err, custody.ErrInsufficientFunds) {
			return nil, ErrInsufficientUserTokens.With("lp: %v", err)
		}
		return nil, fmt.Errorf("failed to lock pool: %w", err)
	}

	next := bc.Clone()
	next.Migration.Stage = state.MigrationLocked
	if err := p.store.Commit(ctx, storage.Batch{Curve: next}); err != nil {
		p.logger.Error("Liquidity locked but curve commit failed",
			zap.String("mint", mint.String()),
			zap.String("escrow", escrow.Address.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to commit lock: %w", err)
	}

	p.logger.Info("Pool locked",
		zap.String("mint", mint.String()),
		zap.String("pool", bc.Migration.Pool.String()),
		zap.String("escrow", escrow.Address.String()))

	p.publish(&events.PoolLockedEvent{
		BaseEvent: events.NewBase(events.PoolLocked, p.now()),
		Mint:      mint,
		Authority: authority,
		Pool:      bc.Migration.Pool,
		LPMint:    bc.Migration.LPMint,
		LPAmount:  bc.Migration.LPAmount,
		Escrow:    escrow.Address,
	})
	return escrow, nil
}

func (p *Program) refund(ctx context.Context, ops []custody.Op) {
	if len(ops) == 0 {
		return
	}
	if err := p.ledger.Apply(context.WithoutCancel(ctx), custody.Reverse(ops)); err != nil {
		p.logger.Error("Failed to refund migration fee", zap.Error(err))
	}
}

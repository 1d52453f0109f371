// internal/amm/memory.go
package amm

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/custody"
)

// MemoryPools is a constant-product AMM whose vaults live in a custody ledger.
type MemoryPools struct {
	mu      sync.Mutex
	ledger  custody.Ledger
	pools   map[solana.PublicKey]*Pool
	escrows map[solana.PublicKey]*LockEscrow
	logger  *zap.Logger
}

func NewMemoryPools(ledger custody.Ledger, logger *zap.Logger) *MemoryPools {
	return &MemoryPools{
		ledger:  ledger,
		pools:   make(map[solana.PublicKey]*Pool),
		escrows: make(map[solana.PublicKey]*LockEscrow),
		logger:  logger.Named("amm"),
	}
}

// InitialLiquidity is floor(sqrt(a*b)).
func InitialLiquidity(a, b uint64) uint64 {
	var x uint256.Int
	x.Mul(uint256.NewInt(a), uint256.NewInt(b))
	x.Sqrt(&x)
	// sqrt of a product of two u64 always fits in u64.
	return x.Uint64()
}

func (m *MemoryPools) CreatePool(ctx context.Context, req CreatePoolRequest) (*Pool, error) {
	if req.TokenA.Equals(req.TokenB) {
		return nil, ErrSameMint
	}
	if req.AmountA == 0 || req.AmountB == 0 {
		return nil, fmt.Errorf("%w: amounts %d/%d", ErrInvalidAmount, req.AmountA, req.AmountB)
	}

	address, err := PoolAddress(req.Config, req.TokenA, req.TokenB)
	if err != nil {
		return nil, err
	}
	lpMint, err := LPMintAddress(address)
	if err != nil {
		return nil, err
	}
	vaultA, err := TokenVaultAddress(address, req.TokenA)
	if err != nil {
		return nil, err
	}
	vaultB, err := TokenVaultAddress(address, req.TokenB)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pools[address]; exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, address)
	}

	lp := InitialLiquidity(req.AmountA, req.AmountB)
	ops := []custody.Op{
		custody.Transfer(req.TokenA, req.Source, vaultA, req.AmountA),
		custody.Transfer(req.TokenB, req.Source, vaultB, req.AmountB),
		custody.MintTo(lpMint, req.Payer, lp),
	}
	if err := m.ledger.Apply(ctx, ops); err != nil {
		return nil, fmt.Errorf("failed to fund pool: %w", err)
	}

	pool := &Pool{
		Address:  address,
		Config:   req.Config,
		TokenA:   req.TokenA,
		TokenB:   req.TokenB,
		VaultA:   vaultA,
		VaultB:   vaultB,
		LPMint:   lpMint,
		ReserveA: req.AmountA,
		ReserveB: req.AmountB,
		LPSupply: lp,
		LPAmount: lp,
	}
	m.pools[address] = pool

	m.logger.Info("Pool created",
		zap.String("pool", address.String()),
		zap.String("lp_mint", lpMint.String()),
		zap.Uint64("reserve_a", req.AmountA),
		zap.Uint64("reserve_b", req.AmountB),
		zap.Uint64("lp", lp))

	c := *pool
	return &c, nil
}

func (m *MemoryPools) LockPool(ctx context.Context, req LockRequest) (*LockEscrow, error) {
	if req.Amount == 0 {
		return nil, fmt.Errorf("%w: zero lock", ErrInvalidAmount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pool, ok := m.pools[req.Pool]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, req.Pool)
	}
	address, err := LockEscrowAddress(req.Pool, req.Owner)
	if err != nil {
		return nil, err
	}

	if err := m.ledger.Apply(ctx, []custody.Op{
		custody.Transfer(pool.LPMint, req.Owner, address, req.Amount),
	}); err != nil {
		return nil, fmt.Errorf("failed to lock liquidity: %w", err)
	}

	escrow, ok := m.escrows[address]
	if !ok {
		escrow = &LockEscrow{Address: address, Pool: req.Pool, Owner: req.Owner}
		m.escrows[address] = escrow
	}
	escrow.Amount += req.Amount

	m.logger.Info("Liquidity locked",
		zap.String("pool", req.Pool.String()),
		zap.String("escrow", address.String()),
		zap.Uint64("amount", req.Amount))

	c := *escrow
	return &c, nil
}

// Pool returns a snapshot of a pool.
func (m *MemoryPools) Pool(_ context.Context, address solana.PublicKey) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, address)
	}
	c := *p
	return &c, nil
}

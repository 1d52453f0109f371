// internal/amm/amm.go
package amm

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the constant-product AMM the launchpad migrates into.
var ProgramID = solana.MustPublicKeyFromBase58("Eo7WjKq67rjJQSZxS6z3YkapzY3eMj6Xy8X5EQVn5UaB")

var (
	lpMintSeed     = []byte("lp_mint")
	lockEscrowSeed = []byte("lock_escrow")
	tokenVaultSeed = []byte("token_vault")
)

var (
	ErrPoolExists    = errors.New("pool already exists")
	ErrPoolNotFound  = errors.New("pool not found")
	ErrInvalidAmount = errors.New("invalid liquidity amount")
	ErrSameMint      = errors.New("pool mints must differ")
)

// CreatePoolRequest seeds a new pool from Source's balances.
type CreatePoolRequest struct {
	Payer   solana.PublicKey
	Source  solana.PublicKey
	TokenA  solana.PublicKey
	TokenB  solana.PublicKey
	AmountA uint64
	AmountB uint64
	Config  solana.PublicKey
}

type Pool struct {
	Address  solana.PublicKey `json:"address"`
	Config   solana.PublicKey `json:"config"`
	TokenA   solana.PublicKey `json:"token_a"`
	TokenB   solana.PublicKey `json:"token_b"`
	VaultA   solana.PublicKey `json:"vault_a"`
	VaultB   solana.PublicKey `json:"vault_b"`
	LPMint   solana.PublicKey `json:"lp_mint"`
	ReserveA uint64           `json:"reserve_a"`
	ReserveB uint64           `json:"reserve_b"`
	LPSupply uint64           `json:"lp_supply"`
	// LPAmount is what the payer received on creation.
	LPAmount uint64 `json:"lp_amount"`
}

// LockRequest moves Amount LP tokens from Owner into the pool's lock escrow.
type LockRequest struct {
	Pool   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

type LockEscrow struct {
	Address solana.PublicKey `json:"address"`
	Pool    solana.PublicKey `json:"pool"`
	Owner   solana.PublicKey `json:"owner"`
	Amount  uint64           `json:"amount"`
}

// Pools is the external AMM the launchpad hands liquidity to.
type Pools interface {
	CreatePool(ctx context.Context, req CreatePoolRequest) (*Pool, error)
	LockPool(ctx context.Context, req LockRequest) (*LockEscrow, error)
	// Pool returns ErrPoolNotFound when nothing was created at address.
	Pool(ctx context.Context, address solana.PublicKey) (*Pool, error)
}

func firstKey(a, b solana.PublicKey) []byte {
	if bytes.Compare(a[:], b[:]) == 1 {
		return a.Bytes()
	}
	return b.Bytes()
}

func secondKey(a, b solana.PublicKey) []byte {
	if bytes.Compare(a[:], b[:]) == 1 {
		return b.Bytes()
	}
	return a.Bytes()
}

// PoolAddress is independent of the order tokenA and tokenB are given in.
func PoolAddress(config, tokenA, tokenB solana.PublicKey) (solana.PublicKey, error) {
	return derive(firstKey(tokenA, tokenB), secondKey(tokenA, tokenB), config.Bytes())
}

func LPMintAddress(pool solana.PublicKey) (solana.PublicKey, error) {
	return derive(lpMintSeed, pool.Bytes())
}

func LockEscrowAddress(pool, owner solana.PublicKey) (solana.PublicKey, error) {
	return derive(lockEscrowSeed, pool.Bytes(), owner.Bytes())
}

func TokenVaultAddress(pool, mint solana.PublicKey) (solana.PublicKey, error) {
	return derive(tokenVaultSeed, mint.Bytes(), pool.Bytes())
}

func derive(seeds ...[]byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(seeds, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive amm address: %w", err)
	}
	return addr, nil
}

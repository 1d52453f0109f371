// internal/custody/memory.go
package custody

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

type balanceKey struct {
	owner solana.PublicKey
	mint  solana.PublicKey
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[balanceKey]uint64
	supply   map[solana.PublicKey]uint64
	logger   *zap.Logger
}

func NewMemoryLedger(logger *zap.Logger) *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[balanceKey]uint64),
		supply:   make(map[solana.PublicKey]uint64),
		logger:   logger.Named("custody"),
	}
}

func (l *MemoryLedger) Balance(_ context.Context, owner, mint solana.PublicKey) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[balanceKey{owner, mint}], nil
}

// Supply returns the total minted amount of mint.
func (l *MemoryLedger) Supply(mint solana.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply[mint]
}

// Apply stages every op against a scratch view and commits only if all succeed.
func (l *MemoryLedger) Apply(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make(map[balanceKey]uint64)
	stagedSupply := make(map[solana.PublicKey]uint64)
	get := func(k balanceKey) uint64 {
		if v, ok := staged[k]; ok {
			return v
		}
		return l.balances[k]
	}
	getSupply := func(m solana.PublicKey) uint64 {
		if v, ok := stagedSupply[m]; ok {
			return v
		}
		return l.supply[m]
	}
	credit := func(k balanceKey, amount uint64) error {
		cur := get(k)
		if cur+amount < cur {
			return fmt.Errorf("balance overflow for owner %s mint %s", k.owner, k.mint)
		}
		staged[k] = cur + amount
		return nil
	}
	debit := func(k balanceKey, amount uint64) error {
		cur := get(k)
		if cur < amount {
			return &InsufficientFundsError{Owner: k.owner, Mint: k.mint, Have: cur, Want: amount}
		}
		staged[k] = cur - amount
		return nil
	}

	for i, op := range ops {
		var err error
		switch op.Kind {
		case OpMint:
			s := getSupply(op.Mint)
			if s+op.Amount < s {
				return fmt.Errorf("op %d: supply overflow for mint %s", i, op.Mint)
			}
			stagedSupply[op.Mint] = s + op.Amount
			err = credit(balanceKey{op.To, op.Mint}, op.Amount)
		case OpTransfer:
			if err = debit(balanceKey{op.From, op.Mint}, op.Amount); err == nil {
				err = credit(balanceKey{op.To, op.Mint}, op.Amount)
			}
		case OpBurn:
			if err = debit(balanceKey{op.From, op.Mint}, op.Amount); err == nil {
				stagedSupply[op.Mint] = getSupply(op.Mint) - op.Amount
			}
		default:
			err = fmt.Errorf("unknown op kind %d", op.Kind)
		}
		if err != nil {
			return fmt.Errorf("op %d (%s): %w", i, op.Kind, err)
		}
	}

	for k, v := range staged {
		if v == 0 {
			delete(l.balances, k)
			continue
		}
		l.balances[k] = v
	}
	for m, v := range stagedSupply {
		l.supply[m] = v
	}

	l.logger.Debug("Applied custody batch", zap.Int("ops", len(ops)))
	return nil
}

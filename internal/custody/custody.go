// internal/custody/custody.go
package custody

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// NativeMint is the balance key used for lamports.
var NativeMint = solana.WrappedSol

var ErrInsufficientFunds = errors.New("insufficient funds")

// InsufficientFundsError identifies which balance could not cover an op.
type InsufficientFundsError struct {
	Owner solana.PublicKey
	Mint  solana.PublicKey
	Have  uint64
	Want  uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: owner %s mint %s has %d, needs %d", e.Owner, e.Mint, e.Have, e.Want)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

type OpKind uint8

const (
	OpMint OpKind = iota
	OpTransfer
	OpBurn
)

func (k OpKind) String() string {
	switch k {
	case OpMint:
		return "mint"
	case OpTransfer:
		return "transfer"
	case OpBurn:
		return "burn"
	default:
		return "unknown"
	}
}

// Op is one balance movement. Mint ops leave From empty, burn ops leave To empty.
type Op struct {
	Kind   OpKind
	Mint   solana.PublicKey
	From   solana.PublicKey
	To     solana.PublicKey
	Amount uint64
}

func MintTo(mint, to solana.PublicKey, amount uint64) Op {
	return Op{Kind: OpMint, Mint: mint, To: to, Amount: amount}
}

func Transfer(mint, from, to solana.PublicKey, amount uint64) Op {
	return Op{Kind: OpTransfer, Mint: mint, From: from, To: to, Amount: amount}
}

func Burn(mint, from solana.PublicKey, amount uint64) Op {
	return Op{Kind: OpBurn, Mint: mint, From: from, Amount: amount}
}

// Ledger holds fungible balances. Apply must be all-or-nothing.
type Ledger interface {
	Balance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
	Apply(ctx context.Context, ops []Op) error
}

// Reverse returns the ops that undo ops when applied after them.
func Reverse(ops []Op) []Op {
	out := make([]Op, 0, len(ops))
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		switch op.Kind {
		case OpMint:
			out = append(out, Burn(op.Mint, op.To, op.Amount))
		case OpTransfer:
			out = append(out, Transfer(op.Mint, op.To, op.From, op.Amount))
		case OpBurn:
			out = append(out, MintTo(op.Mint, op.From, op.Amount))
		}
	}
	return out
}

// Compact drops zero-amount ops.
func Compact(ops []Op) []Op {
	out := ops[:0:0]
	for _, op := range ops {
		if op.Amount > 0 {
			out = append(out, op)
		}
	}
	return out
}

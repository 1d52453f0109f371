package custody

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryLedger_ApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(zap.NewNop())
	alice, bob := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	require.NoError(t, l.Apply(ctx, []Op{MintTo(NativeMint, alice, 100)}))

	err := l.Apply(ctx, []Op{
		Transfer(NativeMint, alice, bob, 60),
		Transfer(NativeMint, alice, bob, 60),
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	var fundsErr *InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, uint64(40), fundsErr.Have)
	assert.Equal(t, uint64(60), fundsErr.Want)

	aliceBal, _ := l.Balance(ctx, alice, NativeMint)
	bobBal, _ := l.Balance(ctx, bob, NativeMint)
	assert.Equal(t, uint64(100), aliceBal)
	assert.Zero(t, bobBal)
}

func TestMemoryLedger_Reverse(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(zap.NewNop())
	mint := solana.NewWallet().PublicKey()
	alice, bob := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	ops := []Op{
		MintTo(mint, alice, 1_000),
		Transfer(mint, alice, bob, 400),
		Burn(mint, bob, 100),
	}
	require.NoError(t, l.Apply(ctx, ops))
	assert.Equal(t, uint64(900), l.Supply(mint))

	bobBal, _ := l.Balance(ctx, bob, mint)
	assert.Equal(t, uint64(300), bobBal)

	require.NoError(t, l.Apply(ctx, Reverse(ops)))

	aliceBal, _ := l.Balance(ctx, alice, mint)
	bobBal, _ = l.Balance(ctx, bob, mint)
	assert.Zero(t, aliceBal)
	assert.Zero(t, bobBal)
	assert.Zero(t, l.Supply(mint))
}

func TestMemoryLedger_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewMemoryLedger(zap.NewNop())
	err := l.Apply(ctx, []Op{MintTo(NativeMint, solana.NewWallet().PublicKey(), 1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompact(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	ops := Compact([]Op{MintTo(NativeMint, a, 0), MintTo(NativeMint, a, 5)})
	require.Len(t, ops, 1)
	assert.Equal(t, uint64(5), ops[0].Amount)
}

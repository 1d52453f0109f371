package metadata

import (
	"context"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_Validate(t *testing.T) {
	tests := []struct {
		name    string
		md      Metadata
		wantErr bool
	}{
		{"ok", Metadata{Name: "Pump", Symbol: "PMP", URI: "https://x"}, false},
		{"empty uri ok", Metadata{Name: "Pump", Symbol: "PMP"}, false},
		{"max lengths", Metadata{Name: strings.Repeat("n", 32), Symbol: strings.Repeat("s", 10), URI: strings.Repeat("u", 200)}, false},
		{"empty name", Metadata{Symbol: "PMP"}, true},
		{"empty symbol", Metadata{Name: "Pump"}, true},
		{"long name", Metadata{Name: strings.Repeat("n", 33), Symbol: "S"}, true},
		{"long symbol", Metadata{Name: "N", Symbol: strings.Repeat("s", 11)}, true},
		{"long uri", Metadata{Name: "N", Symbol: "S", URI: strings.Repeat("u", 201)}, true},
		{"bad utf8", Metadata{Name: "\xff", Symbol: "S"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.md.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	mint := solana.NewWallet().PublicKey()
	md := Metadata{Name: "Pump", Symbol: "PMP", URI: "ipfs://x"}

	_, err := r.Lookup(ctx, mint)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Record(ctx, mint, md))
	assert.ErrorIs(t, r.Record(ctx, mint, md), ErrAlreadyExists)

	got, err := r.Lookup(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, md, got)

	require.NoError(t, r.Forget(ctx, mint))
	require.NoError(t, r.Record(ctx, mint, md))
}

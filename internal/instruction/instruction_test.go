package instruction

import (
	"crypto/sha256"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDiscriminator(t *testing.T) {
	sum := sha256.Sum256([]byte("global:swap"))
	d := Discriminator(NameSwap)
	assert.Equal(t, sum[:8], d[:])
	assert.NotEqual(t, Discriminator(NameCreatePool), Discriminator(NameLockPool))
}

func TestEncodeDecode(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	config := solana.NewWallet().PublicKey()

	tests := []Instruction{
		&Initialize{Params: GlobalSettingsInput{
			InitialVirtualTokenReserves: ptr(uint64(1_073_000_000_000_000)),
			InitialVirtualSolReserves:   ptr(uint64(30_000_000_000)),
			InitialRealTokenReserves:    ptr(uint64(793_100_000_000_000)),
			TokenTotalSupply:            ptr(uint64(1_000_000_000_000_000)),
			FeeBps:                      ptr(uint64(100)),
			MintDecimals:                ptr(uint8(6)),
			MigrateFeeAmount:            ptr(uint64(500_000_000)),
			FeeReceiver:                 &creator,
			Status:                      ptr(uint8(0)),
			WhitelistEnabled:            ptr(true),
			MeteoraConfig:               &config,
		}},
		&SetParams{Params: GlobalSettingsInput{FeeBps: ptr(uint64(50)), WhitelistEnabled: ptr(false)}},
		&SetParams{},
		&UpdateWl{Params: WlParams{AddWl: true, Creator: creator}},
		&CreateBondingCurve{Params: CreateBondingCurveParams{Name: "Pump", Symbol: "PMP", URI: "ipfs://cid"}},
		&CreateBondingCurve{Params: CreateBondingCurveParams{Name: "Later", Symbol: "LTR", StartTime: ptr(int64(1_700_000_000))}},
		&Swap{Params: SwapParams{BaseIn: true, ExactInAmount: 42, MinOutAmount: 7}},
		&CreatePool{PoolAmounts{TokenAAmount: 1, TokenBAmount: 2}},
		&LockPool{},
	}

	for _, ix := range tests {
		t.Run(ix.Name(), func(t *testing.T) {
			data, err := Encode(ix)
			require.NoError(t, err)
			d := Discriminator(ix.Name())
			assert.Equal(t, d[:], data[:8])

			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, ix, got)
		})
	}
}

func TestSwapLayout(t *testing.T) {
	data, err := Encode(&Swap{Params: SwapParams{BaseIn: false, ExactInAmount: 1, MinOutAmount: 2}})
	require.NoError(t, err)
	require.Len(t, data, 8+1+8+8)
	assert.Equal(t, byte(0), data[8])
	assert.Equal(t, byte(1), data[9])
	assert.Equal(t, byte(2), data[17])
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortData)

	_, err = Decode(make([]byte, 8))
	assert.ErrorIs(t, err, ErrUnknownInstruction)

	data, err := Encode(&Swap{Params: SwapParams{ExactInAmount: 1}})
	require.NoError(t, err)
	_, err = Decode(append(data, 0))
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = Decode(data[:12])
	assert.Error(t, err)
}

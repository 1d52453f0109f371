package events

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/curve"
)

func TestEncodeLog_Trade(t *testing.T) {
	original := tradeEvent(solana.NewWallet().PublicKey())

	line, err := EncodeLog(original)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, LogPrefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, LogPrefix))
	require.NoError(t, err)
	disc := EventDiscriminator("TradeEvent")
	assert.Equal(t, disc[:], raw[:8])
	// mint, three u64, bool, user, i64, four u64
	assert.Len(t, raw, 8+32+24+1+32+8+32)

	decoded, err := DecodeLog(line)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestEncode_Create(t *testing.T) {
	original := &CreateEvent{
		BaseEvent: BaseEvent{EventType: CurveCreated},
		Mint:      solana.NewWallet().PublicKey(),
		Creator:   solana.NewWallet().PublicKey(),
		Name:      "Science Coin",
		Symbol:    "SCI",
		URI:       "https://example.org/sci.json",
		StartTime: 1_700_000_000,
		Reserves: curve.Reserves{
			VirtualSol:   30_000_000_000,
			VirtualToken: 1_073_000_000_000_000,
			RealToken:    793_100_000_000_000,
		},
		TokenTotalSupply: 1_000_000_000_000_000,
	}

	data, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecode_Migration(t *testing.T) {
	at := time.Unix(1_700_000_123, 0).UTC()
	created := &PoolCreatedEvent{
		BaseEvent:   NewBase(PoolCreated, at),
		Mint:        solana.NewWallet().PublicKey(),
		Authority:   solana.NewWallet().PublicKey(),
		Pool:        solana.NewWallet().PublicKey(),
		LPMint:      solana.NewWallet().PublicKey(),
		LPAmount:    77,
		SolAmount:   84_000_000_000,
		TokenAmount: 206_900_000_000_000,
		MigrateFee:  500_000_000,
	}
	locked := &PoolLockedEvent{
		BaseEvent: NewBase(PoolLocked, at),
		Mint:      created.Mint,
		Authority: created.Authority,
		Pool:      created.Pool,
		LPMint:    created.LPMint,
		LPAmount:  77,
		Escrow:    solana.NewWallet().PublicKey(),
	}

	for _, ev := range []Event{created, locked} {
		data, err := Encode(ev)
		require.NoError(t, err)
		decoded, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, ev, decoded)
	}
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = Decode(make([]byte, 16))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeLog("Program log: Instruction: Swap")
	assert.Error(t, err)
}

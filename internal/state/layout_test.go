package state

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/curve"
)

func sampleCurve() *BondingCurve {
	return &BondingCurve{
		Mint:                        solana.NewWallet().PublicKey(),
		Creator:                     solana.NewWallet().PublicKey(),
		InitialVirtualTokenReserves: 1_073_000_000_000_000,
		Reserves: curve.Reserves{
			VirtualSol:   30_000_000_000,
			VirtualToken: 1_073_000_000_000_000,
			RealToken:    793_100_000_000_000,
		},
		TokenTotalSupply: 1_000_000_000_000_000,
		StartTime:        1_700_000_000,
		Bump:             254,
	}
}

func TestBondingCurveLayout(t *testing.T) {
	original := sampleCurve()
	original.Complete = true
	original.Migration = Migration{
		Stage:    MigrationPoolCreated,
		Pool:     solana.NewWallet().PublicKey(),
		LPMint:   solana.NewWallet().PublicKey(),
		LPAmount: 42,
	}

	data, err := original.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, BondingCurveDiscriminator[:], data[:8])
	// discriminator + 2 keys + 6 u64 + i64 + bool + bump + version + stage + 2 keys + u64
	assert.Len(t, data, 8+64+48+8+1+1+1+1+64+8)

	var decoded BondingCurve
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, *original, decoded)
	assert.Equal(t, PhasePoolCreated, decoded.Phase())
}

func TestBondingCurveLayout_DecodesV1(t *testing.T) {
	original := sampleCurve()

	data, err := original.MarshalBinaryV1()
	require.NoError(t, err)
	assert.Len(t, data, 8+64+48+8+1+1)

	var decoded BondingCurve
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, *original, decoded)
	assert.Equal(t, MigrationNone, decoded.Migration.Stage)
	assert.Equal(t, PhaseActive, decoded.Phase())
}

func TestBondingCurveLayout_Rejects(t *testing.T) {
	data, err := sampleCurve().MarshalBinary()
	require.NoError(t, err)

	t.Run("unknown version", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[8+64+48+8+1+1] = 9
		var decoded BondingCurve
		assert.ErrorIs(t, decoded.UnmarshalBinary(bad), ErrLayoutVersion)
	})

	t.Run("wrong discriminator", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		copy(bad, GlobalDiscriminator[:])
		var decoded BondingCurve
		assert.ErrorIs(t, decoded.UnmarshalBinary(bad), ErrDiscriminator)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		bad := append(append([]byte(nil), data...), 0)
		var decoded BondingCurve
		assert.ErrorIs(t, decoded.UnmarshalBinary(bad), ErrTrailingBytes)
	})

	t.Run("truncated", func(t *testing.T) {
		var decoded BondingCurve
		assert.Error(t, decoded.UnmarshalBinary(data[:40]))
	})

	t.Run("v1 cannot hold migration", func(t *testing.T) {
		c := sampleCurve()
		c.Migration.Stage = MigrationLocked
		_, err := c.MarshalBinaryV1()
		assert.ErrorIs(t, err, ErrLayoutVersion)
	})

	t.Run("pending stage", func(t *testing.T) {
		c := sampleCurve()
		c.Complete = true
		c.Migration.Stage = MigrationPending
		raw, err := c.MarshalBinary()
		require.NoError(t, err)
		var decoded BondingCurve
		require.NoError(t, decoded.UnmarshalBinary(raw))
		assert.Equal(t, MigrationPending, decoded.Migration.Stage)
		assert.Equal(t, PhaseMigrating, decoded.Phase())
	})
}

func TestGlobalLayout(t *testing.T) {
	original := &Global{
		Status:                      StatusSwapOnlyNoLaunch,
		Initialized:                 true,
		GlobalAuthority:             solana.NewWallet().PublicKey(),
		MigrationAuthority:          solana.NewWallet().PublicKey(),
		MigrateFeeAmount:            500_000,
		FeeReceiver:                 solana.NewWallet().PublicKey(),
		InitialVirtualTokenReserves: 1_073_000_000_000_000,
		InitialVirtualSolReserves:   30_000_000_000,
		InitialRealTokenReserves:    793_100_000_000_000,
		TokenTotalSupply:            1_000_000_000_000_000,
		FeeBps:                      100,
		MintDecimals:                6,
		MeteoraConfig:               solana.NewWallet().PublicKey(),
		WhitelistEnabled:            true,
	}

	data, err := original.MarshalBinary()
	require.NoError(t, err)

	var decoded Global
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, *original, decoded)
	assert.NoError(t, decoded.Validate())
}

func TestWhitelistLayout(t *testing.T) {
	a, b := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	original := &Whitelist{Initialized: true, Creators: []solana.PublicKey{a, b}}

	data, err := original.MarshalBinary()
	require.NoError(t, err)

	var decoded Whitelist
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, *original, decoded)

	assert.False(t, decoded.Add(a))
	assert.True(t, decoded.Remove(a))
	assert.False(t, decoded.Remove(a))
	assert.Equal(t, []solana.PublicKey{b}, decoded.Creators)
}

func TestGlobalValidate(t *testing.T) {
	valid := Global{
		InitialVirtualTokenReserves: 1_000,
		InitialVirtualSolReserves:   10,
		InitialRealTokenReserves:    800,
		TokenTotalSupply:            900,
		FeeBps:                      100,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(g *Global)
	}{
		{"fee above 100%", func(g *Global) { g.FeeBps = 10_001 }},
		{"zero virtual sol", func(g *Global) { g.InitialVirtualSolReserves = 0 }},
		{"real not below virtual", func(g *Global) { g.InitialRealTokenReserves = 1_000 }},
		{"real above supply", func(g *Global) { g.TokenTotalSupply = 700 }},
		{"zero real", func(g *Global) { g.InitialRealTokenReserves = 0 }},
		{"unknown status", func(g *Global) { g.Status = 9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := valid
			tt.mutate(&g)
			assert.Error(t, g.Validate())
		})
	}
}

func TestProgramStatus(t *testing.T) {
	for _, s := range []ProgramStatus{StatusRunning, StatusSwapOnly, StatusSwapOnlyNoLaunch, StatusPaused} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var parsed ProgramStatus
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, s, parsed)
	}

	assert.True(t, StatusSwapOnlyNoLaunch.AllowsSwap())
	assert.False(t, StatusSwapOnlyNoLaunch.AllowsLaunch())
	assert.False(t, StatusPaused.AllowsSwap())
	assert.True(t, StatusSwapOnly.AllowsLaunch())
}

func TestAddresses(t *testing.T) {
	addrs := NewAddresses(solana.PublicKey{})
	assert.Equal(t, DefaultProgramID, addrs.ProgramID)

	mint := solana.NewWallet().PublicKey()
	first, bump, err := addrs.BondingCurve(mint)
	require.NoError(t, err)
	second, bump2, err := addrs.BondingCurve(mint)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, bump, bump2)

	global, _, err := addrs.Global()
	require.NoError(t, err)
	assert.NotEqual(t, first, global)
}

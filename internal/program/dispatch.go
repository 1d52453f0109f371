// internal/program/dispatch.go
package program

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/instruction"
	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/types"
)

// Accounts are the keys an instruction refers to besides its args.
// Only the ones the instruction uses need to be set.
type Accounts struct {
	Signer    solana.PublicKey `json:"signer"`
	Mint      solana.PublicKey `json:"mint"`
	QuoteMint solana.PublicKey `json:"quote_mint"`
	Config    solana.PublicKey `json:"config"`

	NewAuthority          *solana.PublicKey `json:"new_authority,omitempty"`
	NewMigrationAuthority *solana.PublicKey `json:"new_migration_authority,omitempty"`
}

// Dispatch decodes raw instruction data and runs it with the given accounts.
// The returned value is whatever the matching operation returns.
func (p *Program) Dispatch(ctx context.Context, accounts Accounts, data []byte) (any, error) {
	ix, err := instruction.Decode(data)
	if err != nil {
		return nil, ErrInvalidArgument.With("%v", err)
	}

	switch ix := ix.(type) {
	case *instruction.Initialize:
		settings, err := settingsFromInput(ix.Params)
		if err != nil {
			return nil, err
		}
		return p.Initialize(ctx, accounts.Signer, InitializeParams{Settings: settings}, decimal.Zero)

	case *instruction.SetParams:
		settings, err := settingsFromInput(ix.Params)
		if err != nil {
			return nil, err
		}
		var auth Authorities
		if accounts.NewAuthority != nil {
			auth.GlobalAuthority = types.Set(*accounts.NewAuthority)
		}
		if accounts.NewMigrationAuthority != nil {
			auth.MigrationAuthority = types.Set(*accounts.NewMigrationAuthority)
		}
		return p.SetParams(ctx, accounts.Signer, settings, auth)

	case *instruction.UpdateWl:
		return p.UpdateWhitelist(ctx, accounts.Signer, ix.Params.Creator, ix.Params.AddWl)

	case *instruction.CreateBondingCurve:
		return p.CreateBondingCurve(ctx, accounts.Mint, accounts.Signer, CreateCurveParams{
			Name:      ix.Params.Name,
			Symbol:    ix.Params.Symbol,
			URI:       ix.Params.URI,
			StartTime: ix.Params.StartTime,
		})

	case *instruction.Swap:
		return p.Swap(ctx, accounts.Signer, accounts.Mint, SwapParams{
			BaseIn:        ix.Params.BaseIn,
			ExactInAmount: ix.Params.ExactInAmount,
			MinOutAmount:  ix.Params.MinOutAmount,
		})

	case *instruction.CreatePool:
		return p.CreatePool(ctx, accounts.Signer, accounts.Mint, accounts.QuoteMint, accounts.Config)

	case *instruction.LockPool:
		return p.LockPool(ctx, accounts.Signer, accounts.Mint)
	}
	return nil, fmt.Errorf("no handler for instruction %s", ix.Name())
}

func settingsFromInput(in instruction.GlobalSettingsInput) (Settings, error) {
	s := Settings{
		InitialVirtualTokenReserves: optional(in.InitialVirtualTokenReserves),
		InitialVirtualSolReserves:   optional(in.InitialVirtualSolReserves),
		InitialRealTokenReserves:    optional(in.InitialRealTokenReserves),
		TokenTotalSupply:            optional(in.TokenTotalSupply),
		FeeBps:                      optional(in.FeeBps),
		MintDecimals:                optional(in.MintDecimals),
		MigrateFeeAmount:            optional(in.MigrateFeeAmount),
		FeeReceiver:                 optional(in.FeeReceiver),
		WhitelistEnabled:            optional(in.WhitelistEnabled),
		MeteoraConfig:               optional(in.MeteoraConfig),
	}
	if in.Status != nil {
		status := state.ProgramStatus(*in.Status)
		if status > state.StatusPaused {
			return Settings{}, ErrInvalidArgument.With("unknown program status %d", *in.Status)
		}
		s.Status = types.Set(status)
	}
	return s, nil
}

func optional[T any](v *T) types.Option[T] {
	if v == nil {
		return types.Keep[T]()
	}
	return types.Set(*v)
}

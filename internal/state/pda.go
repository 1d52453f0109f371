// internal/state/pda.go
package state

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	GlobalSeed         = []byte("global")
	WhitelistSeed      = []byte("wl-seed")
	BondingCurveSeed   = []byte("bonding-curve")
	EventAuthoritySeed = []byte("__event_authority")
)

// DefaultProgramID is the launchpad program address used when none is configured.
var DefaultProgramID = solana.MustPublicKeyFromBase58("7WdWfWNgceJEdMbu5xbbYbZboJYByzsC6SNMT2pTozJA")

// Addresses derives the program-owned account addresses for one deployment.
type Addresses struct {
	ProgramID solana.PublicKey
}

func NewAddresses(programID solana.PublicKey) Addresses {
	if programID.IsZero() {
		programID = DefaultProgramID
	}
	return Addresses{ProgramID: programID}
}

func (a Addresses) Global() (solana.PublicKey, uint8, error) {
	return a.find(GlobalSeed)
}

func (a Addresses) Whitelist() (solana.PublicKey, uint8, error) {
	return a.find(WhitelistSeed)
}

func (a Addresses) BondingCurve(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return a.find(BondingCurveSeed, mint[:])
}

func (a Addresses) EventAuthority() (solana.PublicKey, uint8, error) {
	return a.find(EventAuthoritySeed)
}

func (a Addresses) find(seeds ...[]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, a.ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive program address: %w", err)
	}
	return addr, bump, nil
}

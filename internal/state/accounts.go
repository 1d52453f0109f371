// internal/state/accounts.go
package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/curve"
)

// ProgramStatus gates which operations the launchpad accepts.
type ProgramStatus uint8

const (
	StatusRunning ProgramStatus = iota
	StatusSwapOnly
	StatusSwapOnlyNoLaunch
	StatusPaused
)

var statusNames = map[ProgramStatus]string{
	StatusRunning:          "running",
	StatusSwapOnly:         "swap_only",
	StatusSwapOnlyNoLaunch: "swap_only_no_launch",
	StatusPaused:           "paused",
}

func (s ProgramStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ParseProgramStatus accepts the snake_case names used in config and the API.
func ParseProgramStatus(name string) (ProgramStatus, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown program status %q", name)
}

func (s ProgramStatus) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown program status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *ProgramStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseProgramStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AllowsSwap reports whether swaps are accepted.
func (s ProgramStatus) AllowsSwap() bool {
	return s != StatusPaused
}

// AllowsLaunch reports whether new curves can be created.
func (s ProgramStatus) AllowsLaunch() bool {
	return s == StatusRunning || s == StatusSwapOnly
}

// Global is the singleton launchpad configuration.
type Global struct {
	Status                      ProgramStatus    `json:"status"`
	Initialized                 bool             `json:"initialized"`
	GlobalAuthority             solana.PublicKey `json:"global_authority"`
	MigrationAuthority          solana.PublicKey `json:"migration_authority"`
	MigrateFeeAmount            uint64           `json:"migrate_fee_amount"`
	FeeReceiver                 solana.PublicKey `json:"fee_receiver"`
	InitialVirtualTokenReserves uint64           `json:"initial_virtual_token_reserves"`
	InitialVirtualSolReserves   uint64           `json:"initial_virtual_sol_reserves"`
	InitialRealTokenReserves    uint64           `json:"initial_real_token_reserves"`
	TokenTotalSupply            uint64           `json:"token_total_supply"`
	FeeBps                      uint64           `json:"fee_bps"`
	MintDecimals                uint8            `json:"mint_decimals"`
	MeteoraConfig               solana.PublicKey `json:"meteora_config"`
	WhitelistEnabled            bool             `json:"whitelist_enabled"`
}

// Validate checks the preset relations every curve is seeded from.
func (g *Global) Validate() error {
	switch {
	case g.FeeBps > 10_000:
		return fmt.Errorf("fee_bps %d exceeds 10000", g.FeeBps)
	case g.InitialVirtualSolReserves == 0:
		return errors.New("initial_virtual_sol_reserves must be positive")
	case g.InitialRealTokenReserves == 0:
		return errors.New("initial_real_token_reserves must be positive")
	case g.InitialRealTokenReserves >= g.InitialVirtualTokenReserves:
		return fmt.Errorf("initial_real_token_reserves %d must be below initial_virtual_token_reserves %d",
			g.InitialRealTokenReserves, g.InitialVirtualTokenReserves)
	case g.InitialRealTokenReserves > g.TokenTotalSupply:
		return fmt.Errorf("initial_real_token_reserves %d exceeds token_total_supply %d",
			g.InitialRealTokenReserves, g.TokenTotalSupply)
	case g.MintDecimals > 18:
		return fmt.Errorf("mint_decimals %d out of range", g.MintDecimals)
	}
	if _, ok := statusNames[g.Status]; !ok {
		return fmt.Errorf("unknown program status %d", uint8(g.Status))
	}
	return nil
}

// InitialReserves returns the reserves a new curve starts with.
func (g *Global) InitialReserves() curve.Reserves {
	return curve.Reserves{
		VirtualSol:   g.InitialVirtualSolReserves,
		VirtualToken: g.InitialVirtualTokenReserves,
		RealToken:    g.InitialRealTokenReserves,
	}
}

// Whitelist is the singleton set of creators allowed to launch.
type Whitelist struct {
	Initialized bool               `json:"initialized"`
	Creators    []solana.PublicKey `json:"creators"`
}

func (w *Whitelist) Contains(creator solana.PublicKey) bool {
	for _, c := range w.Creators {
		if c.Equals(creator) {
			return true
		}
	}
	return false
}

// Add inserts creator and reports false if it was already present.
func (w *Whitelist) Add(creator solana.PublicKey) bool {
	if w.Contains(creator) {
		return false
	}
	w.Creators = append(w.Creators, creator)
	return true
}

// Remove deletes creator and reports false if it was absent.
func (w *Whitelist) Remove(creator solana.PublicKey) bool {
	for i, c := range w.Creators {
		if c.Equals(creator) {
			w.Creators = append(w.Creators[:i], w.Creators[i+1:]...)
			return true
		}
	}
	return false
}

// MigrationStage tracks the two-phase hand-off of a complete curve.
type MigrationStage uint8

const (
	MigrationNone MigrationStage = iota
	MigrationPoolCreated
	MigrationLocked
	// MigrationPending: the fee has left the escrow and the pool at
	// Migration.Pool may or may not exist yet. RealSol is what goes into the pool.
	MigrationPending
)

func (s MigrationStage) String() string {
	switch s {
	case MigrationNone:
		return "none"
	case MigrationPoolCreated:
		return "pool_created"
	case MigrationLocked:
		return "locked"
	case MigrationPending:
		return "pending"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

func (s MigrationStage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Migration records the external pool a curve was migrated into.
type Migration struct {
	Stage    MigrationStage   `json:"stage"`
	Pool     solana.PublicKey `json:"pool"`
	LPMint   solana.PublicKey `json:"lp_mint"`
	LPAmount uint64           `json:"lp_amount"`
}

// Phase is the externally visible lifecycle state of a curve.
type Phase string

const (
	PhaseActive      Phase = "active"
	PhaseComplete    Phase = "complete"
	PhaseMigrating   Phase = "migrating"
	PhasePoolCreated Phase = "pool_created"
	PhaseMigrated    Phase = "migrated"
)

// BondingCurve is the per-mint ledger record.
type BondingCurve struct {
	Mint                        solana.PublicKey `json:"mint"`
	Creator                     solana.PublicKey `json:"creator"`
	InitialVirtualTokenReserves uint64           `json:"initial_virtual_token_reserves"`
	curve.Reserves
	TokenTotalSupply uint64    `json:"token_total_supply"`
	StartTime        int64     `json:"start_time"`
	Complete         bool      `json:"complete"`
	Bump             uint8     `json:"bump"`
	Migration        Migration `json:"migration"`
}

func (b *BondingCurve) Phase() Phase {
	switch {
	case !b.Complete:
		return PhaseActive
	case b.Migration.Stage == MigrationPending:
		return PhaseMigrating
	case b.Migration.Stage == MigrationPoolCreated:
		return PhasePoolCreated
	case b.Migration.Stage == MigrationLocked:
		return PhaseMigrated
	default:
		return PhaseComplete
	}
}

// Clone returns a copy that shares no mutable state with b.
func (b *BondingCurve) Clone() *BondingCurve {
	c := *b
	return &c
}

// Clone returns a deep copy of the whitelist.
func (w *Whitelist) Clone() *Whitelist {
	c := &Whitelist{Initialized: w.Initialized}
	c.Creators = append([]solana.PublicKey(nil), w.Creators...)
	return c
}

// Clone returns a copy of the global record.
func (g *Global) Clone() *Global {
	c := *g
	return &c
}

// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrExists   = errors.New("record already exists")
)

// Batch is a set of account writes committed together.
type Batch struct {
	Global    *state.Global
	Whitelist *state.Whitelist
	Curve     *state.BondingCurve
	// NewCurve makes the commit fail with ErrExists if the curve is already stored.
	NewCurve bool
}

// AccountStore persists program accounts in their binary layout.
type AccountStore interface {
	LoadGlobal(ctx context.Context) (*state.Global, error)
	LoadWhitelist(ctx context.Context) (*state.Whitelist, error)
	LoadCurve(ctx context.Context, mint solana.PublicKey) (*state.BondingCurve, error)
	ListCurves(ctx context.Context) ([]*state.BondingCurve, error)
	Commit(ctx context.Context, batch Batch) error
}

// HistoryStore keeps queryable records of what the program emitted.
type HistoryStore interface {
	SaveTrade(ctx context.Context, trade *models.Trade) error
	ListTrades(ctx context.Context, mint string, limit, offset int) ([]*models.Trade, error)

	SaveCurve(ctx context.Context, curve *models.Curve) error
	GetCurve(ctx context.Context, mint string) (*models.Curve, error)
	MarkCurveComplete(ctx context.Context, mint string, reserves models.ReserveSnapshot) error

	SaveMigration(ctx context.Context, migration *models.Migration) error
	GetMigration(ctx context.Context, mint string) (*models.Migration, error)
	MarkMigrationLocked(ctx context.Context, mint, escrow string) error

	SaveConfigChange(ctx context.Context, change *models.ConfigChange) error

	RunMigrations() error
}

// internal/recorder/history.go
package recorder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// History writes program events into the history store.
type History struct {
	store  storage.HistoryStore
	logger *zap.Logger
	newID  func() string
}

func NewHistory(store storage.HistoryStore, logger *zap.Logger) *History {
	return &History{
		store:  store,
		logger: logger.Named("history"),
		newID:  func() string { return uuid.NewString() },
	}
}

// Handle implements events.Handler.
func (h *History) Handle(ctx context.Context, event events.Event) error {
	var err error
	switch e := event.(type) {
	case *events.TradeEvent:
		err = h.store.SaveTrade(ctx, &models.Trade{
			EventID:         h.newID(),
			Mint:            e.Mint.String(),
			User:            e.User.String(),
			IsBuy:           e.IsBuy,
			SolAmount:       models.Amount(e.SolAmount),
			TokenAmount:     models.Amount(e.TokenAmount),
			FeeLamports:     models.Amount(e.FeeLamports),
			ReserveSnapshot: snapshot(e.Reserves),
			ExecutedAt:      e.Timestamp(),
		})
	case *events.CreateEvent:
		err = h.store.SaveCurve(ctx, &models.Curve{
			Mint:             e.Mint.String(),
			Creator:          e.Creator.String(),
			Name:             e.Name,
			Symbol:           e.Symbol,
			URI:              e.URI,
			StartTime:        unix(e.StartTime),
			TokenTotalSupply: models.Amount(e.TokenTotalSupply),
			ReserveSnapshot:  snapshot(e.Reserves),
		})
	case *events.CompleteEvent:
		err = h.store.MarkCurveComplete(ctx, e.Mint.String(), snapshot(e.Reserves))
	case *events.PoolCreatedEvent:
		err = h.store.SaveMigration(ctx, &models.Migration{
			Mint:        e.Mint.String(),
			Authority:   e.Authority.String(),
			Pool:        e.Pool.String(),
			LPMint:      e.LPMint.String(),
			LPAmount:    models.Amount(e.LPAmount),
			SolAmount:   models.Amount(e.SolAmount),
			TokenAmount: models.Amount(e.TokenAmount),
			MigrateFee:  models.Amount(e.MigrateFee),
		})
	case *events.PoolLockedEvent:
		err = h.store.MarkMigrationLocked(ctx, e.Mint.String(), e.Escrow.String())
	case *events.GlobalUpdateEvent:
		err = h.saveConfigChange(ctx, "global", e.GlobalAuthority.String(), e)
	case *events.WhitelistUpdateEvent:
		kind := "whitelist.remove"
		if e.Added {
			kind = "whitelist.add"
		}
		err = h.saveConfigChange(ctx, kind, e.Creator.String(), e)
	default:
		return nil
	}
	if err != nil {
		h.logger.Error("Failed to record event", zap.String("type", string(event.Type())), zap.Error(err))
		return fmt.Errorf("failed to record %s: %w", event.Type(), err)
	}
	return nil
}

func (h *History) saveConfigChange(ctx context.Context, kind, subject string, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return h.store.SaveConfigChange(ctx, &models.ConfigChange{
		Kind:    kind,
		Subject: subject,
		Payload: string(payload),
	})
}

func snapshot(r curve.Reserves) models.ReserveSnapshot {
	return models.ReserveSnapshot{
		VirtualSolReserves:   models.Amount(r.VirtualSol),
		VirtualTokenReserves: models.Amount(r.VirtualToken),
		RealSolReserves:      models.Amount(r.RealSol),
		RealTokenReserves:    models.Amount(r.RealToken),
	}
}

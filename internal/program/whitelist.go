// internal/program/whitelist.go
package program

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// UpdateWhitelist adds or removes one creator.
func (p *Program) UpdateWhitelist(ctx context.Context, authority, creator solana.PublicKey, add bool) (_ *state.Whitelist, err error) {
	defer p.observe("update_whitelist", time.Now(), &err,
		zap.String("creator", creator.String()), zap.Bool("add", add))

	p.config.Lock()
	defer p.config.Unlock()

	g, err := p.loadGlobal(ctx)
	if err != nil {
		return nil, err
	}
	wl, err := p.loadWhitelist(ctx)
	if err != nil {
		return nil, err
	}
	if !g.GlobalAuthority.Equals(authority) {
		return nil, ErrInvalidGlobalAuthority
	}

	next := wl.Clone()
	if add {
		if !next.Add(creator) {
			return nil, ErrAddFailed.With("creator %s", creator)
		}
		if len(next.Creators) > state.MaxWhitelistCreators {
			return nil, ErrInvalidArgument.With("whitelist is full")
		}
	} else if !next.Remove(creator) {
		return nil, ErrRemoveFailed.With("creator %s", creator)
	}

	if err := p.store.Commit(ctx, storage.Batch{Whitelist: next}); err != nil {
		return nil, fmt.Errorf("failed to commit whitelist: %w", err)
	}

	p.publish(&events.WhitelistUpdateEvent{
		BaseEvent: events.NewBase(events.WhitelistUpdated, p.now()),
		Creator:   creator,
		Added:     add,
	})
	return next.Clone(), nil
}

// Whitelist returns a snapshot of the whitelist.
func (p *Program) Whitelist(ctx context.Context) (*state.Whitelist, error) {
	p.config.RLock()
	defer p.config.RUnlock()
	return p.loadWhitelist(ctx)
}

func (p *Program) loadWhitelist(ctx context.Context) (*state.Whitelist, error) {
	wl, err := p.store.LoadWhitelist(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrWlNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load whitelist: %w", err)
	}
	if !wl.Initialized {
		return nil, ErrWlNotInitialized
	}
	return wl, nil
}

// internal/program/program.go
package program

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/amm"
	"github.com/rovshanmuradov/launchpad/internal/custody"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/metadata"
	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// Clock supplies the current time to time-gated operations.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock. New uses it when Deps.Clock is nil.
var SystemClock Clock = ClockFunc(time.Now)

// Observer is told about every completed operation.
type Observer interface {
	ObserveOperation(operation string, err error, elapsed time.Duration)
}

// Deps are the collaborators a Program drives. Events and Observer are optional.
type Deps struct {
	Store    storage.AccountStore
	Ledger   custody.Ledger
	Pools    amm.Pools
	Metadata metadata.Registry
	Events   events.Publisher
	Observer Observer
	Clock    Clock
	Logger   *zap.Logger
}

// Program is the launchpad state machine.
//
// Global and Whitelist are guarded by config: mutations of either take the
// write lock, curve operations hold the read lock for their whole run.
// Curve operations additionally serialize per mint.
type Program struct {
	addrs    state.Addresses
	store    storage.AccountStore
	ledger   custody.Ledger
	pools    amm.Pools
	meta     metadata.Registry
	events   events.Publisher
	observer Observer
	clock    Clock
	logger   *zap.Logger

	config sync.RWMutex
	curves keyedMutex
}

func New(programID solana.PublicKey, deps Deps) (*Program, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("account store is required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("custody ledger is required")
	case deps.Pools == nil:
		return nil, fmt.Errorf("amm is required")
	case deps.Metadata == nil:
		return nil, fmt.Errorf("metadata registry is required")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Program{
		addrs:    state.NewAddresses(programID),
		store:    deps.Store,
		ledger:   deps.Ledger,
		pools:    deps.Pools,
		meta:     deps.Metadata,
		events:   deps.Events,
		observer: deps.Observer,
		clock:    deps.Clock,
		logger:   deps.Logger.Named("program"),
		curves:   keyedMutex{locks: make(map[solana.PublicKey]*keyLock)},
	}, nil
}

// Addresses returns the PDA deriver for this deployment.
func (p *Program) Addresses() state.Addresses {
	return p.addrs
}

func (p *Program) now() time.Time {
	return p.clock.Now()
}

// observe is deferred by every operation with a pointer to its named error.
func (p *Program) observe(operation string, start time.Time, errp *error, fields ...zap.Field) {
	err := *errp
	if p.observer != nil {
		p.observer.ObserveOperation(operation, err, time.Since(start))
	}
	if err == nil {
		return
	}
	fields = append(fields, zap.String("operation", operation), zap.Error(err))
	if code, ok := CodeOf(err); ok {
		p.logger.Warn("Operation rejected", append(fields, zap.Uint32("code", code))...)
		return
	}
	p.logger.Error("Operation failed", fields...)
}

func (p *Program) publish(evts ...events.Event) {
	if p.events == nil {
		return
	}
	for _, e := range evts {
		if err := p.events.Publish(e); err != nil {
			p.logger.Warn("Failed to publish event",
				zap.String("type", string(e.Type())), zap.Error(err))
		}
	}
}

func (p *Program) loadGlobal(ctx context.Context) (*state.Global, error) {
	g, err := p.store.LoadGlobal(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load global: %w", err)
	}
	if !g.Initialized {
		return nil, ErrNotInitialized
	}
	return g, nil
}

func (p *Program) loadCurve(ctx context.Context, mint solana.PublicKey) (*state.BondingCurve, error) {
	c, err := p.store.LoadCurve(ctx, mint)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrBondingCurveNotFound.With("mint %s", mint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load curve %s: %w", mint, err)
	}
	return c, nil
}

// settle applies custody ops and commits batch; if the commit fails the
// custody ops are reversed so balances and accounts stay consistent.
func (p *Program) settle(ctx context.Context, ops []custody.Op, batch storage.Batch) error {
	ops = custody.Compact(ops)
	if len(ops) > 0 {
		if err := p.ledger.Apply(ctx, ops); err != nil {
			return err
		}
	}
	if err := p.store.Commit(ctx, batch); err != nil {
		if len(ops) > 0 {
			// The reversal must run even if ctx was what broke the commit.
			if rerr := p.ledger.Apply(context.WithoutCancel(ctx), custody.Reverse(ops)); rerr != nil {
				p.logger.Error("Failed to reverse custody after commit failure",
					zap.Error(rerr), zap.NamedError("commit_error", err))
				return errors.Join(err, rerr)
			}
		}
		return err
	}
	return nil
}

func (p *Program) curveEscrow(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return p.addrs.BondingCurve(mint)
}

type keyLock struct {
	sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and frees it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[solana.PublicKey]*keyLock
}

func (k *keyedMutex) lock(key solana.PublicKey) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

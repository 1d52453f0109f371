package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
)

func tradeEvent(mint solana.PublicKey) *TradeEvent {
	return &TradeEvent{
		BaseEvent:   NewBase(Trade, time.Unix(1_700_000_000, 0)),
		Mint:        mint,
		SolAmount:   1_000_000_000,
		TokenAmount: 34_000_000,
		FeeLamports: 10_000_000,
		IsBuy:       true,
		User:        solana.NewWallet().PublicKey(),
		Reserves: curve.Reserves{
			VirtualSol:   30_990_000_000,
			VirtualToken: 1_039_000_000,
			RealSol:      990_000_000,
			RealToken:    759_100_000,
		},
	}
}

func TestBus_PublishSyncDeliversToTypedAndWildcard(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	var typed, all int
	bus.SubscribeFunc(Trade, func(_ context.Context, _ Event) error {
		typed++
		return nil
	})
	bus.SubscribeAll(HandlerFunc(func(_ context.Context, _ Event) error {
		all++
		return nil
	}))

	require.NoError(t, bus.PublishSync(context.Background(), tradeEvent(solana.NewWallet().PublicKey())))
	require.NoError(t, bus.PublishSync(context.Background(), &CompleteEvent{BaseEvent: NewBase(CurveCompleted, time.Now())}))

	assert.Equal(t, 1, typed)
	assert.Equal(t, 2, all)
}

func TestBus_HandlerErrorsAreJoined(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	sinkErr := errors.New("sink down")
	bus.SubscribeFunc(Trade, func(context.Context, Event) error { return sinkErr })

	err := bus.PublishSync(context.Background(), tradeEvent(solana.NewWallet().PublicKey()))
	assert.ErrorIs(t, err, sinkErr)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	calls := 0
	sub := bus.SubscribeFunc(Trade, func(context.Context, Event) error {
		calls++
		return nil
	})
	wild := bus.SubscribeAll(HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))
	sub.Unsubscribe()
	wild.Unsubscribe()

	require.NoError(t, bus.PublishSync(context.Background(), tradeEvent(solana.NewWallet().PublicKey())))
	assert.Zero(t, calls)
	assert.Empty(t, bus.Stats().HandlersPerType)
	assert.Zero(t, bus.Stats().WildcardHandles)
}

func TestBus_AsyncDeliveryKeepsOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 64)

	var (
		mu   sync.Mutex
		seen []uint64
	)
	bus.SubscribeFunc(Trade, func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.(*TradeEvent).SolAmount)
		return nil
	})

	mint := solana.NewWallet().PublicKey()
	for i := uint64(1); i <= 20; i++ {
		ev := tradeEvent(mint)
		ev.SolAmount = i
		require.NoError(t, bus.Publish(ev))
	}

	require.NoError(t, bus.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 20)
	for i, v := range seen {
		assert.Equal(t, uint64(i+1), v)
	}
	assert.Equal(t, uint64(20), bus.Stats().Published)
}

func TestBus_DropsWhenBufferFull(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	bus.SubscribeFunc(Trade, func(context.Context, Event) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})

	mint := solana.NewWallet().PublicKey()
	require.NoError(t, bus.Publish(tradeEvent(mint)))
	<-started
	require.NoError(t, bus.Publish(tradeEvent(mint)))
	assert.ErrorIs(t, bus.Publish(tradeEvent(mint)), ErrBufferFull)
	assert.Equal(t, uint64(1), bus.Stats().Dropped)

	close(release)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(tradeEvent(mint)), ErrBusClosed)
}

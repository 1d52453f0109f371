package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/logger"
	"github.com/rovshanmuradov/launchpad/internal/program"
	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/types"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Addr: "127.0.0.1:0", SwapRate: 5, SwapBurst: 10},
		Store:   config.StoreConfig{Backend: "memory"},
		Oracle:  config.OracleConfig{StaticPrice: "150"},
		Program: config.ProgramConfig{ID: state.DefaultProgramID.String()},
		Events:  config.EventsConfig{BufferSize: 16, LogSink: true},
	}
}

func testLogger(t *testing.T) (*logger.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return &logger.Logger{Logger: zap.New(core)}, logs
}

func TestNew_MemoryBackend(t *testing.T) {
	log, logs := testLogger(t)
	a, err := New(context.Background(), memoryConfig(), log)
	require.NoError(t, err)

	authority := solana.NewWallet().PublicKey()
	_, err = a.Program.Initialize(context.Background(), authority, program.InitializeParams{
		Settings: program.Settings{
			InitialVirtualTokenReserves: types.Set(uint64(1000)),
			InitialVirtualSolReserves:   types.Set(uint64(100)),
			InitialRealTokenReserves:    types.Set(uint64(500)),
			TokenTotalSupply:            types.Set(uint64(1000)),
		},
	}, decimal.Zero)
	require.NoError(t, err)

	require.NoError(t, a.Shutdown(context.Background()))

	stats := a.Bus.Stats()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Zero(t, stats.PendingEvents)
	assert.NotEmpty(t, logs.FilterMessageSnippet("Program data:").All(), "log sink saw the event")
	count, err := testutil.GatherAndCount(a.Registry, "launchpad_operations_total")
	require.NoError(t, err)
	assert.Positive(t, count)

	// A second shutdown has nothing left to close.
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestNew_RejectsBadProgramID(t *testing.T) {
	log, _ := testLogger(t)
	cfg := memoryConfig()
	cfg.Program.ID = "bogus"
	_, err := New(context.Background(), cfg, log)
	assert.Error(t, err)
}

func TestNewQuoter(t *testing.T) {
	cfg := memoryConfig()
	q, err := newQuoter(cfg, zap.NewNop())
	require.NoError(t, err)
	price, err := q.SOLPriceUSD(context.Background())
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(150)))

	cfg.Oracle.StaticPrice = ""
	q, err = newQuoter(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestRun_StopsOnCancel(t *testing.T) {
	log, _ := testLogger(t)
	a, err := New(context.Background(), memoryConfig(), log)
	require.NoError(t, err)
	a.statsInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShutdownHandler_Order(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)
	var order []string
	for _, name := range []string{"store", "bus", "http"} {
		sh.AddFunc(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Equal(t, []string{"http", "bus", "store"}, order)
}

func TestShutdownHandler_Errors(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), 50*time.Millisecond)
	boom := errors.New("boom")
	sh.AddFunc("stuck", func(context.Context) error {
		time.Sleep(time.Second)
		return nil
	})
	sh.AddFunc("failing", func(context.Context) error { return boom })

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "stuck: shutdown timeout")
}

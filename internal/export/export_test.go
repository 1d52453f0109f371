package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

const testMint = "So11111111111111111111111111111111111111112"

var base = time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)

func trade(id string, buy bool, user string, sol, tokens, fee uint64, at time.Time) *models.Trade {
	return &models.Trade{
		EventID:     id,
		Mint:        testMint,
		User:        user,
		IsBuy:       buy,
		SolAmount:   models.Amount(sol),
		TokenAmount: models.Amount(tokens),
		FeeLamports: models.Amount(fee),
		ReserveSnapshot: models.ReserveSnapshot{
			VirtualSolReserves:   models.Amount(100 + sol),
			VirtualTokenReserves: models.Amount(1000 - tokens),
			RealSolReserves:      models.Amount(sol),
			RealTokenReserves:    models.Amount(500 - tokens),
		},
		ExecutedAt: at,
	}
}

func testTrades() []*models.Trade {
	return []*models.Trade{
		trade("c", false, "bob", 20, 100, 1, base.Add(90*time.Minute)),
		trade("a", true, "alice", 50, 333, 2, base),
		trade("b", true, "bob", 30, 120, 1, base.Add(10*time.Minute)),
	}
}

func newExporter() *TradeExporter {
	te := NewTradeExporter(zap.NewNop())
	te.now = func() time.Time { return base.Add(24 * time.Hour) }
	return te
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	n, err := newExporter().ExportTrades(&buf, testTrades(), Options{Format: FormatCSV})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeaders, records[0])

	assert.Equal(t, "a", records[1][1], "ordered by execution time")
	assert.Equal(t, "buy", records[1][4])
	assert.Equal(t, "50", records[1][5])
	assert.Equal(t, "c", records[3][1])
	assert.Equal(t, "sell", records[3][4])
	assert.Equal(t, "2024-05-01T11:45:00Z", records[3][0])
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	_, err := newExporter().ExportTrades(&buf, testTrades(), Options{})
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))

	assert.Equal(t, 3, report.TradeCount)
	assert.Equal(t, base.Add(24*time.Hour), report.ExportTime)
	require.Len(t, report.Trades, 3)
	assert.Equal(t, "a", report.Trades[0].EventID)

	s := report.Summary
	assert.Equal(t, 2, s.BuyCount)
	assert.Equal(t, 1, s.SellCount)
	assert.Equal(t, 2, s.UniqueUsers)
	assert.True(t, s.BuyVolume.Equal(decimal.NewFromInt(80)))
	assert.True(t, s.TotalVolume.Equal(decimal.NewFromInt(100)))
	assert.True(t, s.TotalFees.Equal(decimal.NewFromInt(4)))
	assert.True(t, s.TokensBought.Equal(decimal.NewFromInt(453)))
	require.NotNil(t, s.StartDate)
	assert.Equal(t, base, *s.StartDate)

	require.Len(t, report.HourlyBreakdown, 2)
	assert.Equal(t, "2024-05-01T10:00:00Z", report.HourlyBreakdown[0].Hour)
	assert.Equal(t, 2, report.HourlyBreakdown[0].BuyCount)
	assert.Equal(t, 1, report.HourlyBreakdown[1].SellCount)
}

func TestExportFilters(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want int
	}{
		{"buys", Options{Side: "buy"}, 2},
		{"sells", Options{Side: "sell"}, 1},
		{"user", Options{User: "bob"}, 2},
		{"since", Options{StartTime: base.Add(5 * time.Minute)}, 2},
		{"until", Options{EndTime: base.Add(5 * time.Minute)}, 1},
		{"window without trades", Options{StartTime: base.Add(48 * time.Hour)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := newExporter().ExportTrades(&buf, testTrades(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalTrades)
	assert.Nil(t, s.StartDate)
	assert.True(t, s.TotalVolume.IsZero())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", f.ContentType())

	_, err = ParseFormat("xml")
	assert.Error(t, err)

	_, err = newExporter().ExportTrades(&bytes.Buffer{}, testTrades(), Options{Format: "xml"})
	assert.Error(t, err)
}

func TestFilenameAndParseUnix(t *testing.T) {
	te := newExporter()
	assert.Equal(t, "trades_So111111_buy_20240502_101500.csv", te.Filename(testMint, Options{Format: FormatCSV, Side: "buy"}))
	assert.Equal(t, "trades_20240502_101500.json", te.Filename("", Options{}))

	ts, err := ParseUnix("1714558500")
	require.NoError(t, err)
	assert.Equal(t, base, ts.UTC())

	ts, err = ParseUnix("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	_, err = ParseUnix("yesterday")
	assert.Error(t, err)
}

// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json"; empty means json.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Options narrows the exported trades. Zero values disable a filter.
type Options struct {
	Format    Format
	StartTime time.Time
	EndTime   time.Time
	// Side is "buy", "sell" or empty.
	Side string
	User string
}

type TradeExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{logger: logger.Named("export"), now: time.Now}
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// ExportTrades filters trades, orders them by execution time and writes
// them to w. It returns the number written.
func (te *TradeExporter) ExportTrades(w io.Writer, trades []*models.Trade, opts Options) (int, error) {
	filtered := filterTrades(trades, opts)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ExecutedAt.Before(filtered[j].ExecutedAt)
	})

	var err error
	switch opts.Format {
	case FormatCSV:
		err = writeCSV(w, filtered)
	case FormatJSON, "":
		err = te.writeJSON(w, filtered)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return 0, err
	}

	te.logger.Debug("Trades exported",
		zap.Int("count", len(filtered)),
		zap.String("format", string(opts.Format)))
	return len(filtered), nil
}

func filterTrades(trades []*models.Trade, opts Options) []*models.Trade {
	filtered := make([]*models.Trade, 0, len(trades))
	for _, trade := range trades {
		if !opts.StartTime.IsZero() && trade.ExecutedAt.Before(opts.StartTime) {
			continue
		}
		if !opts.EndTime.IsZero() && trade.ExecutedAt.After(opts.EndTime) {
			continue
		}
		if opts.Side != "" && side(trade) != opts.Side {
			continue
		}
		if opts.User != "" && trade.User != opts.User {
			continue
		}
		filtered = append(filtered, trade)
	}
	return filtered
}

func side(t *models.Trade) string {
	if t.IsBuy {
		return "buy"
	}
	return "sell"
}

var csvHeaders = []string{
	"executed_at", "event_id", "mint", "user", "side",
	"sol_amount", "token_amount", "fee_lamports",
	"virtual_sol_reserves", "virtual_token_reserves", "real_sol_reserves", "real_token_reserves",
}

func writeCSV(w io.Writer, trades []*models.Trade) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, t := range trades {
		record := []string{
			t.ExecutedAt.UTC().Format(time.RFC3339),
			t.EventID,
			t.Mint,
			t.User,
			side(t),
			t.SolAmount.String(),
			t.TokenAmount.String(),
			t.FeeLamports.String(),
			t.VirtualSolReserves.String(),
			t.VirtualTokenReserves.String(),
			t.RealSolReserves.String(),
			t.RealTokenReserves.String(),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// TradeRecord is the JSON form of a trade.
type TradeRecord struct {
	ExecutedAt  time.Time       `json:"executed_at"`
	EventID     string          `json:"event_id"`
	Mint        string          `json:"mint"`
	User        string          `json:"user"`
	Side        string          `json:"side"`
	SolAmount   decimal.Decimal `json:"sol_amount"`
	TokenAmount decimal.Decimal `json:"token_amount"`
	FeeLamports decimal.Decimal `json:"fee_lamports"`
	// RealSolReserves is the curve's SOL balance after the trade.
	RealSolReserves decimal.Decimal `json:"real_sol_reserves"`
}

type Report struct {
	ExportTime      time.Time     `json:"export_time"`
	TradeCount      int           `json:"trade_count"`
	Summary         Summary       `json:"summary"`
	HourlyBreakdown []HourlyStats `json:"hourly_breakdown"`
	Trades          []TradeRecord `json:"trades"`
}

func (te *TradeExporter) writeJSON(w io.Writer, trades []*models.Trade) error {
	records := make([]TradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, TradeRecord{
			ExecutedAt:      t.ExecutedAt.UTC(),
			EventID:         t.EventID,
			Mint:            t.Mint,
			User:            t.User,
			Side:            side(t),
			SolAmount:       t.SolAmount,
			TokenAmount:     t.TokenAmount,
			FeeLamports:     t.FeeLamports,
			RealSolReserves: t.RealSolReserves,
		})
	}

	report := Report{
		ExportTime:      te.now().UTC(),
		TradeCount:      len(trades),
		Summary:         Summarize(trades),
		HourlyBreakdown: hourlyBreakdown(trades),
		Trades:          records,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary aggregates a set of trades. Volumes and fees are lamports.
type Summary struct {
	TotalTrades  int             `json:"total_trades"`
	BuyCount     int             `json:"buy_count"`
	SellCount    int             `json:"sell_count"`
	UniqueUsers  int             `json:"unique_users"`
	BuyVolume    decimal.Decimal `json:"buy_volume"`
	SellVolume   decimal.Decimal `json:"sell_volume"`
	TotalVolume  decimal.Decimal `json:"total_volume"`
	TotalFees    decimal.Decimal `json:"total_fees"`
	TokensBought decimal.Decimal `json:"tokens_bought"`
	TokensSold   decimal.Decimal `json:"tokens_sold"`
	StartDate    *time.Time      `json:"start_date,omitempty"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
}

// Summarize expects trades ordered by execution time.
func Summarize(trades []*models.Trade) Summary {
	s := Summary{
		TotalTrades:  len(trades),
		BuyVolume:    decimal.Zero,
		SellVolume:   decimal.Zero,
		TotalFees:    decimal.Zero,
		TokensBought: decimal.Zero,
		TokensSold:   decimal.Zero,
	}
	if len(trades) == 0 {
		s.TotalVolume = decimal.Zero
		return s
	}

	start, end := trades[0].ExecutedAt.UTC(), trades[len(trades)-1].ExecutedAt.UTC()
	s.StartDate, s.EndDate = &start, &end

	users := make(map[string]struct{})
	for _, t := range trades {
		users[t.User] = struct{}{}
		s.TotalFees = s.TotalFees.Add(t.FeeLamports)
		if t.IsBuy {
			s.BuyCount++
			s.BuyVolume = s.BuyVolume.Add(t.SolAmount)
			s.TokensBought = s.TokensBought.Add(t.TokenAmount)
		} else {
			s.SellCount++
			s.SellVolume = s.SellVolume.Add(t.SolAmount)
			s.TokensSold = s.TokensSold.Add(t.TokenAmount)
		}
	}
	s.UniqueUsers = len(users)
	s.TotalVolume = s.BuyVolume.Add(s.SellVolume)
	return s
}

type HourlyStats struct {
	Hour       string          `json:"hour"`
	TradeCount int             `json:"trade_count"`
	BuyCount   int             `json:"buy_count"`
	SellCount  int             `json:"sell_count"`
	Volume     decimal.Decimal `json:"volume"`
}

// hourlyBreakdown buckets trades by UTC hour, oldest first.
func hourlyBreakdown(trades []*models.Trade) []HourlyStats {
	buckets := make(map[int64]*HourlyStats)
	var hours []int64
	for _, t := range trades {
		hour := t.ExecutedAt.UTC().Truncate(time.Hour)
		key := hour.Unix()
		stats, ok := buckets[key]
		if !ok {
			stats = &HourlyStats{Hour: hour.Format(time.RFC3339), Volume: decimal.Zero}
			buckets[key] = stats
			hours = append(hours, key)
		}
		stats.TradeCount++
		stats.Volume = stats.Volume.Add(t.SolAmount)
		if t.IsBuy {
			stats.BuyCount++
		} else {
			stats.SellCount++
		}
	}

	sort.Slice(hours, func(i, j int) bool { return hours[i] < hours[j] })
	breakdown := make([]HourlyStats, 0, len(hours))
	for _, h := range hours {
		breakdown = append(breakdown, *buckets[h])
	}
	return breakdown
}

// Filename suggests a download name such as trades_<mint8>_buy_20240101_120000.csv.
func (te *TradeExporter) Filename(mint string, opts Options) string {
	prefix := "trades"
	if len(mint) >= 8 {
		prefix += "_" + mint[:8]
	}
	if opts.Side != "" {
		prefix += "_" + opts.Side
	}
	format := opts.Format
	if format == "" {
		format = FormatJSON
	}
	return prefix + "_" + te.now().UTC().Format("20060102_150405") + "." + string(format)
}

// ParseUnix parses a unix-seconds query value; empty is the zero time.
func ParseUnix(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid unix time %q", s)
	}
	return time.Unix(sec, 0), nil
}

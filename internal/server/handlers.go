// internal/server/handlers.go
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/custody"
	"github.com/rovshanmuradov/launchpad/internal/export"
	"github.com/rovshanmuradov/launchpad/internal/instruction"
	"github.com/rovshanmuradov/launchpad/internal/oracle"
	"github.com/rovshanmuradov/launchpad/internal/program"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

type Handlers struct {
	Program  *program.Program
	// Oracle prices migrate_fee_usd when the request has no sol_price_usd.
	Oracle   oracle.Quoter
	// History backs the trade export; nil disables it.
	History  storage.HistoryStore
	Exporter *export.TradeExporter
	Gatherer prometheus.Gatherer
	DevMode  bool
	Logger   *zap.Logger
}

func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// fail renders an operation error. Program errors keep their code and name;
// anything else is logged and hidden behind a 500.
func (h *Handlers) fail(c echo.Context, err error) error {
	var perr *program.Error
	if errors.As(err, &perr) {
		resp := ErrorResponse{
			Error:       perr.Msg,
			Code:        statusFor(err),
			ProgramCode: perr.Code,
			Name:        perr.Name,
		}
		if perr.Detail != "" {
			resp.Details = perr.Detail
		}
		return c.JSON(resp.Code, resp)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return h.err(c, http.StatusGatewayTimeout, "operation timed out", nil)
	}
	h.Logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	return h.err(c, http.StatusInternalServerError, "internal server error", err.Error())
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) mintParam(c echo.Context) (solana.PublicKey, error) {
	mint, err := solana.PublicKeyFromBase58(c.Param("mint"))
	if err != nil {
		return solana.PublicKey{}, h.err(c, http.StatusBadRequest, "invalid mint", map[string]any{"mint": err.Error()})
	}
	return mint, nil
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

func (h *Handlers) GetGlobal(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	g, err := h.Program.Global(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handlers) Initialize(c echo.Context) error {
	var req InitializeRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	price := decimal.Zero
	switch {
	case req.SolPriceUSD != nil:
		price = *req.SolPriceUSD
	case req.MigrateFeeUSD.IsPositive():
		if h.Oracle == nil {
			return h.err(c, http.StatusServiceUnavailable, "price oracle not configured", nil)
		}
		p, err := h.Oracle.SOLPriceUSD(ctx)
		if err != nil {
			h.Logger.Warn("Oracle unavailable", zap.Error(err))
			return h.err(c, http.StatusBadGateway, "price oracle unavailable", err.Error())
		}
		price = p
	}

	g, err := h.Program.Initialize(ctx, signerFrom(c), req.InitializeParams, price)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handlers) SetParams(c echo.Context) error {
	var req SetParamsRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	g, err := h.Program.SetParams(ctx, signerFrom(c), req.Settings, req.Authorities)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handlers) GetWhitelist(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	wl, err := h.Program.Whitelist(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, wl)
}

func (h *Handlers) UpdateWhitelist(c echo.Context) error {
	var req WhitelistRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	wl, err := h.Program.UpdateWhitelist(ctx, signerFrom(c), req.Creator, req.Add)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, wl)
}

func (h *Handlers) ListCurves(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Program.BondingCurves(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, CurvesResponse{Items: items})
}

func (h *Handlers) CreateCurve(c echo.Context) error {
	var req CreateCurveRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}
	if req.Mint.IsZero() {
		return h.err(c, http.StatusBadRequest, "mint is required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	bc, err := h.Program.CreateBondingCurve(ctx, req.Mint, signerFrom(c), req.CreateCurveParams)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, bc)
}

func (h *Handlers) GetCurve(c echo.Context) error {
	mint, err := h.mintParam(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	bc, err := h.Program.BondingCurve(ctx, mint)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, bc)
}

// Quote prices a swap without executing it.
// Query: base_in (bool, default false), amount (required), min_out.
func (h *Handlers) Quote(c echo.Context) error {
	mint, err := h.mintParam(c)
	if err != nil {
		return err
	}

	var params program.SwapParams
	if s := c.QueryParam("base_in"); s != "" {
		if params.BaseIn, err = strconv.ParseBool(s); err != nil {
			return h.err(c, http.StatusBadRequest, "invalid base_in", nil)
		}
	}
	if params.ExactInAmount, err = strconv.ParseUint(c.QueryParam("amount"), 10, 64); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be an unsigned integer"})
	}
	if s := c.QueryParam("min_out"); s != "" {
		if params.MinOutAmount, err = strconv.ParseUint(s, 10, 64); err != nil {
			return h.err(c, http.StatusBadRequest, "invalid min_out", nil)
		}
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	res, err := h.Program.Quote(ctx, mint, params)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handlers) Swap(c echo.Context) error {
	mint, err := h.mintParam(c)
	if err != nil {
		return err
	}
	var params program.SwapParams
	if err := c.Bind(&params); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Program.Swap(ctx, signerFrom(c), mint, params)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handlers) ForceComplete(c echo.Context) error {
	mint, err := h.mintParam(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bc, err := h.Program.ForceComplete(ctx, signerFrom(c), mint)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, bc)
}

func (h *Handlers) CreatePool(c echo.Context) error {
	mint, err := h.mintParam(c)
	if err != nil {
		return err
	}
	var req CreatePoolRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	quote := custody.NativeMint
	if req.QuoteMint != nil {
		quote = *req.QuoteMint
	}
	var config solana.PublicKey
	if req.Config != nil {
		config = *req.Config
	} else {
		g, err := h.Program.Global(ctx)
		if err != nil {
			return h.fail(c, err)
		}
		config = g.MeteoraConfig
	}

	res, err := h.Program.CreatePool(ctx, signerFrom(c), mint, quote, config)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handlers) LockPool(c echo.Context) error {
	mint, err := h.mintParam(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	lock, err := h.Program.LockPool(ctx, signerFrom(c), mint)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, lock)
}

// Instruction runs raw instruction data through the program dispatcher.
func (h *Handlers) Instruction(c echo.Context) error {
	var req InstructionRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid data", map[string]any{"data": "must be base64"})
	}
	ix, err := instruction.Decode(data)
	if err != nil {
		return h.fail(c, program.ErrInvalidArgument.With("%v", err))
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	accounts := req.Accounts
	accounts.Signer = signerFrom(c)
	out, err := h.Program.Dispatch(ctx, accounts, data)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, InstructionResponse{Instruction: ix.Name(), Result: out})
}

const maxExportTrades = 1000

// Trades exports the recorded trades of a curve.
// Query: format (json|csv), side, user, since and until (unix seconds),
// limit (1-1000, default 500), offset.
func (h *Handlers) Trades(c echo.Context) error {
	if h.History == nil {
		return h.err(c, http.StatusServiceUnavailable, "trade history not enabled", nil)
	}
	mint, err := h.mintParam(c)
	if err != nil {
		return err
	}

	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid format", map[string]any{"format": "csv or json"})
	}
	opts := export.Options{Format: format, Side: c.QueryParam("side"), User: c.QueryParam("user")}
	if opts.Side != "" && opts.Side != "buy" && opts.Side != "sell" {
		return h.err(c, http.StatusBadRequest, "invalid side", map[string]any{"side": "buy or sell"})
	}
	if opts.StartTime, err = export.ParseUnix(c.QueryParam("since")); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid since", nil)
	}
	if opts.EndTime, err = export.ParseUnix(c.QueryParam("until")); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid until", nil)
	}

	limit, offset := 500, 0
	if s := c.QueryParam("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 1 || limit > maxExportTrades {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 1000"})
		}
	}
	if s := c.QueryParam("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			return h.err(c, http.StatusBadRequest, "invalid offset", nil)
		}
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	trades, err := h.History.ListTrades(ctx, mint.String(), limit, offset)
	if err != nil {
		return h.fail(c, err)
	}

	exporter := h.Exporter
	if exporter == nil {
		exporter = export.NewTradeExporter(h.Logger)
	}
	var buf bytes.Buffer
	if _, err := exporter.ExportTrades(&buf, trades, opts); err != nil {
		return h.fail(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, format.ContentType())
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+exporter.Filename(mint.String(), opts)+`"`)
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

// internal/oracle/oracle.go
package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var ErrInvalidPrice = errors.New("invalid SOL price")

// Quoter supplies the SOL/USD price used to convert USD-denominated fees.
type Quoter interface {
	SOLPriceUSD(ctx context.Context) (decimal.Decimal, error)
}

// Static always returns the same price.
type Static decimal.Decimal

func (s Static) SOLPriceUSD(context.Context) (decimal.Decimal, error) {
	price := decimal.Decimal(s)
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	return price, nil
}

type HTTPConfig struct {
	URL string
	// Path is a gjson path to the price inside the response body.
	Path            string
	Timeout         time.Duration
	MaxTries        uint
	InitialInterval time.Duration
	MaxElapsed      time.Duration
	// CacheTTL reuses the last good price for this long. Zero disables caching.
	CacheTTL time.Duration
}

// HTTPQuoter reads the price from a JSON HTTP endpoint.
type HTTPQuoter struct {
	cfg    HTTPConfig
	client *http.Client
	logger *zap.Logger

	mu       sync.Mutex
	cached   decimal.Decimal
	cachedAt time.Time
	now      func() time.Time
}

func NewHTTPQuoter(cfg HTTPConfig, logger *zap.Logger) (*HTTPQuoter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("oracle url is required")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("oracle response path is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 15 * time.Second
	}
	return &HTTPQuoter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("oracle"),
		now:    time.Now,
	}, nil
}

func (q *HTTPQuoter) SOLPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	if price, ok := q.fromCache(); ok {
		return price, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = q.cfg.InitialInterval

	notify := func(err error, d time.Duration) {
		q.logger.Warn("Price fetch failed, retrying", zap.Error(err), zap.Duration("backoff", d))
	}

	price, err := backoff.Retry(ctx, func() (decimal.Decimal, error) {
		return q.fetch(ctx)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(q.cfg.MaxTries),
		backoff.WithMaxElapsedTime(q.cfg.MaxElapsed),
		backoff.WithNotify(notify))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch SOL price: %w", err)
	}

	q.mu.Lock()
	q.cached, q.cachedAt = price, q.now()
	q.mu.Unlock()

	q.logger.Debug("SOL price fetched", zap.String("price", price.String()))
	return price, nil
}

func (q *HTTPQuoter) fromCache() (decimal.Decimal, bool) {
	if q.cfg.CacheTTL <= 0 {
		return decimal.Zero, false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cachedAt.IsZero() || q.now().Sub(q.cachedAt) > q.cfg.CacheTTL {
		return decimal.Zero, false
	}
	return q.cached, true
}

func (q *HTTPQuoter) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.cfg.URL, nil)
	if err != nil {
		return decimal.Zero, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return decimal.Zero, fmt.Errorf("oracle returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return decimal.Zero, backoff.Permanent(fmt.Errorf("oracle returned %d", resp.StatusCode))
	}

	if !gjson.ValidBytes(body) {
		return decimal.Zero, backoff.Permanent(fmt.Errorf("oracle returned invalid json"))
	}
	result := gjson.GetBytes(body, q.cfg.Path)
	if !result.Exists() {
		return decimal.Zero, backoff.Permanent(fmt.Errorf("path %q not found in oracle response", q.cfg.Path))
	}

	// Raw keeps full precision for numbers; strings are unquoted by String.
	raw := result.Raw
	if result.Type == gjson.String {
		raw = result.String()
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, backoff.Permanent(fmt.Errorf("%w: %q", ErrInvalidPrice, raw))
	}
	if !price.IsPositive() {
		return decimal.Zero, backoff.Permanent(fmt.Errorf("%w: %s", ErrInvalidPrice, price))
	}
	return price, nil
}

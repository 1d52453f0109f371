// internal/server/routes.go
package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RegisterRoutes wires the v1 API, metrics and error handling.
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg Config, auth *Authenticator) {
	signed := auth.RequireSignature

	e.HTTPErrorHandler = NotFoundJSON()

	gatherer := h.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := e.Group("/v1", SetJSONContentType, SetNoCacheHeaders)
	v1.GET("/health", h.Health)

	v1.GET("/global", h.GetGlobal)
	v1.POST("/global", h.Initialize, signed)
	v1.PATCH("/global", h.SetParams, signed)

	v1.GET("/whitelist", h.GetWhitelist)
	v1.POST("/whitelist", h.UpdateWhitelist, signed)

	curves := v1.Group("/curves")
	curves.GET("", h.ListCurves)
	curves.POST("", h.CreateCurve, signed)
	curves.GET("/:mint", h.GetCurve)
	curves.GET("/:mint/quote", h.Quote)
	curves.GET("/:mint/trades", h.Trades)
	curves.POST("/:mint/swap", h.Swap, swapLimiter(cfg), signed)
	curves.POST("/:mint/complete", h.ForceComplete, signed)
	curves.POST("/:mint/pool", h.CreatePool, signed)
	curves.POST("/:mint/pool/lock", h.LockPool, signed)

	v1.POST("/instructions", h.Instruction, signed)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}

func swapLimiter(cfg Config) echo.MiddlewareFunc {
	r, burst, ttl := cfg.SwapRate, cfg.SwapBurst, cfg.SwapTTL
	if r <= 0 {
		r = 5
	}
	if burst <= 0 {
		burst = 10
	}
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(r),
			Burst:     burst,
			ExpiresIn: ttl,
		}),
		IdentifierExtractor: signerOrIP,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded", Code: http.StatusTooManyRequests})
		},
	})
}

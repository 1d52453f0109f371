// internal/server/server.go
package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Config struct {
	Addr string
	// DevMode adds error details to responses.
	DevMode bool
	// SwapRate and SwapBurst limit swaps per signer.
	SwapRate  float64
	SwapBurst int
	SwapTTL   time.Duration
	// SignatureWindow bounds the clock skew of a signed request.
	SignatureWindow time.Duration
}

type Deps struct {
	Handlers *Handlers
	Config   Config
	// Nonces defaults to an in-process store.
	Nonces NonceStore
	Logger *zap.Logger
}

// Server wraps echo with shutdown tracking.
type Server struct {
	e        *echo.Echo
	handlers *Handlers
	auth     *Authenticator
	cfg      Config
	closed   chan struct{}
}

func NewServer(deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	e.Use(middleware.BodyLimit("64K"))

	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = 75 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	deps.Handlers.DevMode = deps.Config.DevMode
	if deps.Handlers.Logger == nil {
		deps.Handlers.Logger = logger
	}
	auth := NewAuthenticator(deps.Nonces, deps.Config.SignatureWindow, logger)
	RegisterRoutes(e, deps.Handlers, deps.Config, auth)

	return &Server{e: e, handlers: deps.Handlers, auth: auth, cfg: deps.Config, closed: make(chan struct{})}, nil
}

func (s *Server) Start() error {
	return s.e.Start(s.cfg.Addr)
}

// Shutdown stops accepting requests and waits up to 10 seconds for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	defer close(s.closed)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

func (s *Server) WaitClosed(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return nil
	}
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Warn("Request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Debug("Request", fields...)
			return nil
		},
	})
}

func SetNoCacheHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "no-store")
		return next(c)
	}
}

func SetJSONContentType(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return next(c)
	}
}

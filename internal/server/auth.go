// internal/server/auth.go
package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

const (
	HeaderSigner    = "X-Signer"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"

	DefaultSignatureWindow = 2 * time.Minute

	minNonceLen = 8
	maxNonceLen = 64

	signerKey = "signer"
)

// NonceStore remembers nonces already used by a signer.
type NonceStore interface {
	// Claim reports whether nonce was unused for signer and marks it used for ttl.
	Claim(ctx context.Context, signer solana.PublicKey, nonce string, ttl time.Duration) (bool, error)
}

// SignedMessage is the canonical byte string a client signs:
// method, request URI, unix timestamp and nonce on separate lines, then the raw body.
func SignedMessage(method, uri string, timestamp int64, nonce string, body []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(method) + len(uri) + len(nonce) + len(body) + 24)
	buf.WriteString(method)
	buf.WriteByte('\n')
	buf.WriteString(uri)
	buf.WriteByte('\n')
	buf.WriteString(strconv.FormatInt(timestamp, 10))
	buf.WriteByte('\n')
	buf.WriteString(nonce)
	buf.WriteByte('\n')
	buf.Write(body)
	return buf.Bytes()
}

// Authenticator verifies signed requests and rejects replays.
type Authenticator struct {
	nonces NonceStore
	window time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewAuthenticator(nonces NonceStore, window time.Duration, logger *zap.Logger) *Authenticator {
	if nonces == nil {
		nonces = NewMemoryNonces()
	}
	if window <= 0 {
		window = DefaultSignatureWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{nonces: nonces, window: window, now: time.Now, logger: logger.Named("auth")}
}

// RequireSignature authenticates mutating requests. X-Signer carries the
// caller's base58 public key and X-Signature a base58 ed25519 signature of
// SignedMessage. X-Timestamp must be within the window of the server clock
// and X-Nonce may be used once per signer. The body stays readable for the handler.
func (a *Authenticator) RequireSignature(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		signer, err := solana.PublicKeyFromBase58(req.Header.Get(HeaderSigner))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid signer")
		}
		var sig solana.Signature
		raw, err := base58.Decode(req.Header.Get(HeaderSignature))
		if err != nil || len(raw) != len(sig) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
		}
		copy(sig[:], raw)

		timestamp, err := strconv.ParseInt(req.Header.Get(HeaderTimestamp), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid timestamp")
		}
		nonce := req.Header.Get(HeaderNonce)
		if len(nonce) < minNonceLen || len(nonce) > maxNonceLen {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid nonce")
		}

		body, err := io.ReadAll(req.Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
		}
		req.Body = io.NopCloser(bytes.NewReader(body))

		if !sig.Verify(signer, SignedMessage(req.Method, req.URL.RequestURI(), timestamp, nonce, body)) {
			return echo.NewHTTPError(http.StatusUnauthorized, "signature mismatch")
		}

		skew := a.now().Sub(time.Unix(timestamp, 0))
		if skew > a.window || skew < -a.window {
			return echo.NewHTTPError(http.StatusUnauthorized, "stale signature")
		}

		// Nonces outlive the widest timestamp a request could still pass with.
		fresh, err := a.nonces.Claim(req.Context(), signer, nonce, 2*a.window)
		if err != nil {
			a.logger.Error("Failed to claim nonce", zap.Stringer("signer", signer), zap.Error(err))
			return echo.NewHTTPError(http.StatusServiceUnavailable, "nonce store unavailable")
		}
		if !fresh {
			return echo.NewHTTPError(http.StatusUnauthorized, "replayed request")
		}

		c.Set(signerKey, signer)
		return next(c)
	}
}

// signerFrom returns the key RequireSignature verified.
func signerFrom(c echo.Context) solana.PublicKey {
	signer, _ := c.Get(signerKey).(solana.PublicKey)
	return signer
}

// signerOrIP keys the swap rate limiter.
func signerOrIP(c echo.Context) (string, error) {
	if signer := c.Request().Header.Get(HeaderSigner); signer != "" {
		return signer, nil
	}
	return c.RealIP(), nil
}

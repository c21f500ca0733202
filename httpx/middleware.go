package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NoCompressionHeader lets clients opt out of gzip on a single request.
const NoCompressionHeader = "x-no-compression"

// ZapLogger logs one line per request through log.
func ZapLogger(log *zap.Logger) MiddlewareFunc {
	log = loggerOrNop(log)
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(c Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.RequestID != "" {
				fields = append(fields, zap.String("request_id", v.RequestID))
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

// RateLimit allows limit requests per window per client IP, refilling evenly
// across the window. Rejected requests get 429 with message.
func RateLimit(limit int, window time.Duration, message string) MiddlewareFunc {
	if limit <= 0 || window <= 0 {
		return func(next HandlerFunc) HandlerFunc { return next }
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(limit) / window.Seconds()),
		Burst:     limit,
		ExpiresIn: window,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c Context, err error) error {
			return HTTPError(StatusForbidden, "rate limiter: "+err.Error())
		},
		DenyHandler: func(c Context, _ string, _ error) error {
			return HTTPError(StatusTooManyRequests, message)
		},
	})
}

// Gzip compresses responses larger than minLength bytes unless the client
// sends the x-no-compression header.
func Gzip(minLength int) MiddlewareFunc {
	return middleware.GzipWithConfig(middleware.GzipConfig{
		MinLength: minLength,
		Skipper: func(c Context) bool {
			return c.Request().Header.Get(NoCompressionHeader) != ""
		},
	})
}

// SecureHeaders sets the usual hardening headers.
func SecureHeaders() MiddlewareFunc { return middleware.Secure() }

// RequestID tags each request with an X-Request-Id.
func RequestID() MiddlewareFunc { return middleware.RequestID() }

// BodyLimit rejects request bodies larger than limit (e.g. "6M").
func BodyLimit(limit string) MiddlewareFunc { return middleware.BodyLimit(limit) }

// SPA serves files from root and falls back to index.html for unknown paths.
// Paths under any of the skip prefixes are left to the router.
func SPA(root string, skip ...string) MiddlewareFunc {
	return middleware.StaticWithConfig(middleware.StaticConfig{
		Root:  root,
		Index: "index.html",
		HTML5: true,
		Skipper: func(c Context) bool {
			p := c.Request().URL.Path
			for _, prefix := range skip {
				if strings.HasPrefix(p, prefix) {
					return true
				}
			}
			return false
		},
	})
}

// Health answers liveness probes.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/botcentral/internal/audit/masking"
	auditcontext "github.com/smallbiznis/botcentral/internal/auditcontext"
	obscontext "github.com/smallbiznis/botcentral/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-Id"

// secretRoutes carry a credential in a path parameter. The logged path masks
// that parameter.
var secretRoutes = map[string]string{
	"/api/dashboard/:token": "token",
}

// quietRoutes are logged at debug level.
var quietRoutes = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// MiddlewareConfig controls request logging.
type MiddlewareConfig struct {
	// Logger defaults to the zap global.
	Logger          *zap.Logger
	Debug           bool
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware seeds the request context with correlation and audit values,
// then writes one http_request line per request. Guild and actor fields are
// read after the handler ran, so they reflect what the handler authorized.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		ctx := c.Request.Context()
		ctx = obscontext.WithRequestID(ctx, requestID)
		ctx = auditcontext.WithRequestID(ctx, requestID)
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", loggedPath(c, route)),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}

		errorType := ""
		if lastErr := c.Errors.Last(); lastErr != nil {
			errorCode := ""
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
			if cfg.Debug && status >= http.StatusInternalServerError {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		base := cfg.Logger
		if base == nil {
			base = zap.L()
		}
		log := WithContext(c.Request.Context(), base)
		if ce := log.Check(requestLevel(route, status), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if requestID == "" || len(requestID) > 128 {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(requestIDHeader, requestID)
	return requestID
}

func loggedPath(c *gin.Context, route string) string {
	param, ok := secretRoutes[route]
	if !ok {
		return c.Request.URL.Path
	}
	secret := c.Param(param)
	if secret == "" {
		return c.Request.URL.Path
	}
	return strings.Replace(c.Request.URL.Path, secret, masking.MaskSecret(secret), 1)
}

func requestLevel(route string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusTooManyRequests:
		return zapcore.WarnLevel
	}
	if _, ok := quietRoutes[route]; ok {
		return zapcore.DebugLevel
	}
	// Bad dashboard secrets are routine noise.
	if _, ok := secretRoutes[route]; ok && status == http.StatusUnauthorized {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

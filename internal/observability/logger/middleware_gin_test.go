package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/botcentral/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedEngine(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{Logger: zap.New(core)}))
	return r, logs
}

func TestGinMiddlewareMasksDashboardSecret(t *testing.T) {
	r, logs := newObservedEngine(t)
	r.GET("/api/dashboard/:token", func(c *gin.Context) {
		c.Status(http.StatusUnauthorized)
	})

	secret := "dash_9f8e7d6c5b4a39281706"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/"+secret, nil))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/dashboard/:token", fields["route"])
	assert.NotContains(t, fields["path"], secret)
	assert.Equal(t, "/api/dashboard/****1706", fields["path"])
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestGinMiddlewareLogsAuthorizedGuildAndActor(t *testing.T) {
	r, logs := newObservedEngine(t)
	r.POST("/api/guilds/:guildId/logging", func(c *gin.Context) {
		ctx := obscontext.WithActor(c.Request.Context(), "user", "77")
		ctx = obscontext.WithGuildID(ctx, c.Param("guildId"))
		c.Request = c.Request.WithContext(ctx)
		c.Status(http.StatusTooManyRequests)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/guilds/g-1/logging", nil)
	req.Header.Set(requestIDHeader, "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "g-1", fields["guild_id"])
	assert.Equal(t, "77", fields["actor_id"])
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, int64(http.StatusTooManyRequests), fields["status"])
}

func TestGinMiddlewareOmitsEmptyCorrelation(t *testing.T) {
	r, logs := newObservedEngine(t)
	r.GET("/api/polls", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/polls", nil))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.NotContains(t, fields, "guild_id")
	assert.NotContains(t, fields, "actor_id")
	assert.Contains(t, fields, "request_id")
}

package session

import (
	"github.com/smallbiznis/botcentral/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("auth.session",
	fx.Provide(NewManager),
	fx.Invoke(checkCookiePolicy),
)

// checkCookiePolicy flags production deployments that would send the session
// cookie over plain HTTP.
func checkCookiePolicy(cfg config.Config, m *Manager, log *zap.Logger) {
	if cfg.IsProduction() && !m.secure {
		log.Warn("session cookie is not marked secure in production",
			zap.String("cookie", m.CookieName()),
			zap.String("hint", "set AUTH_COOKIE_SECURE=true"),
		)
	}
}

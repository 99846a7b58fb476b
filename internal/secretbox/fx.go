package secretbox

import (
	"github.com/smallbiznis/botcentral/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("secretbox",
	fx.Provide(Provide),
)

func Provide(cfg config.Config, log *zap.Logger) *Box {
	box := New(cfg.SecretEncryptionKey)
	if !box.Enabled() {
		log.Warn("SECRET_ENCRYPTION_KEY not set, stored secrets cannot be revealed")
	}
	return box
}

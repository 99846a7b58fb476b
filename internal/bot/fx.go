package bot

import (
	"github.com/smallbiznis/botcentral/internal/bot/repository"
	"github.com/smallbiznis/botcentral/internal/bot/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bot.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

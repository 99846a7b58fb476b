package discord

import (
	"github.com/smallbiznis/botcentral/internal/authorization"
	"github.com/smallbiznis/botcentral/internal/discord/domain"
	"github.com/smallbiznis/botcentral/internal/discord/repository"
	"github.com/smallbiznis/botcentral/internal/discord/service"
	"github.com/smallbiznis/botcentral/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("discord.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) authorization.GuildAdminSource { return svc }),
	fx.Provide(func(store *ratelimit.NonceStore) domain.NonceStore { return store }),
)

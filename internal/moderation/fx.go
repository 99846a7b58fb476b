package moderation

import (
	"github.com/smallbiznis/botcentral/internal/moderation/repository"
	"github.com/smallbiznis/botcentral/internal/moderation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("moderation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

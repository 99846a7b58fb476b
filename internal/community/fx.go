package community

import (
	"github.com/smallbiznis/botcentral/internal/community/repository"
	"github.com/smallbiznis/botcentral/internal/community/service"
	"go.uber.org/fx"
)

var Module = fx.Module("community.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

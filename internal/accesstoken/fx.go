package accesstoken

import (
	"github.com/smallbiznis/botcentral/internal/accesstoken/repository"
	"github.com/smallbiznis/botcentral/internal/accesstoken/service"
	"go.uber.org/fx"
)

var Module = fx.Module("accesstoken.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

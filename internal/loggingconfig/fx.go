package loggingconfig

import (
	"github.com/smallbiznis/botcentral/internal/loggingconfig/repository"
	"github.com/smallbiznis/botcentral/internal/loggingconfig/service"
	"go.uber.org/fx"
)

var Module = fx.Module("loggingconfig.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

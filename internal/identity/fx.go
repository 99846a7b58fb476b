package identity

import (
	"github.com/smallbiznis/botcentral/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(service.NewUserSource),
	fx.Provide(service.New),
)

package authorization

import (
	roledomain "github.com/smallbiznis/botcentral/internal/role/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(func(roles roledomain.Service) RoleSource { return roles }),
	fx.Provide(NewService),
)

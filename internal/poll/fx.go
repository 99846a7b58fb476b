package poll

import (
	"github.com/smallbiznis/botcentral/internal/poll/repository"
	"github.com/smallbiznis/botcentral/internal/poll/service"
	"go.uber.org/fx"
)

var Module = fx.Module("poll.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/config"
	"github.com/smallbiznis/botcentral/internal/migration"
	"github.com/smallbiznis/botcentral/internal/observability"
	"github.com/smallbiznis/botcentral/internal/scheduler"
	"github.com/smallbiznis/botcentral/internal/server"
	"github.com/smallbiznis/botcentral/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema must exist before the casbin adapter and services touch it.
		migration.Module,

		server.Module,

		// Background maintenance
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

package authorization

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Authorize(ctx context.Context, userID snowflake.ID, guildID string, object string, action string) error
	Roles(ctx context.Context, userID snowflake.ID, guildID string) ([]string, error)
}

// RoleSource returns the ledger roles that are in force for a user in a guild.
type RoleSource interface {
	ActiveRoles(ctx context.Context, userID snowflake.ID, guildID string) ([]string, error)
}

// GuildAdminSource reports whether the user administers the guild on Discord.
type GuildAdminSource interface {
	IsGuildAdmin(ctx context.Context, userID snowflake.ID, guildID string) (bool, error)
}

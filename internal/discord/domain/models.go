package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PermissionAdministrator is Discord's ADMINISTRATOR permission bit.
const PermissionAdministrator int64 = 0x8

// Connection links a user to their Discord account. One per user.
type Connection struct {
	ID                   snowflake.ID                `gorm:"primaryKey" json:"id,string"`
	UserID               snowflake.ID                `gorm:"column:user_id;not null;uniqueIndex" json:"userId,string"`
	DiscordUserID        string                      `gorm:"column:discord_user_id;type:text;not null" json:"discordUserId"`
	DiscordUsername      string                      `gorm:"column:discord_username;type:text;not null" json:"discordUsername"`
	DiscordDiscriminator *string                     `gorm:"column:discord_discriminator;type:text" json:"discordDiscriminator"`
	DiscordAvatar        *string                     `gorm:"column:discord_avatar;type:text" json:"discordAvatar"`
	AccessToken          string                      `gorm:"column:access_token;type:text;not null" json:"-"`
	RefreshToken         string                      `gorm:"column:refresh_token;type:text;not null" json:"-"`
	TokenExpiresAt       time.Time                   `gorm:"column:token_expires_at;not null" json:"tokenExpiresAt"`
	Scopes               datatypes.JSONSlice[string] `gorm:"column:scopes;type:jsonb;not null" json:"scopes"`
	IsActive             bool                        `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt            time.Time                   `gorm:"not null" json:"createdAt"`
	UpdatedAt            time.Time                   `gorm:"not null" json:"updatedAt"`
}

func (Connection) TableName() string { return "discord_connections" }

// Server is a guild the connected Discord user belongs to.
type Server struct {
	ID          snowflake.ID                `gorm:"primaryKey" json:"id,string"`
	UserID      snowflake.ID                `gorm:"column:user_id;not null;uniqueIndex:ux_discord_servers_user_server" json:"userId,string"`
	ServerID    string                      `gorm:"column:server_id;type:text;not null;uniqueIndex:ux_discord_servers_user_server" json:"serverId"`
	ServerName  string                      `gorm:"column:server_name;type:text;not null" json:"serverName"`
	ServerIcon  *string                     `gorm:"column:server_icon;type:text" json:"serverIcon"`
	ServerOwner bool                        `gorm:"column:server_owner;not null;default:false" json:"serverOwner"`
	Permissions string                      `gorm:"type:text;not null;default:'0'" json:"permissions"`
	Features    datatypes.JSONSlice[string] `gorm:"column:features;type:jsonb;not null" json:"features"`
	MemberCount *int                        `gorm:"column:member_count" json:"memberCount"`
	IsSelected  bool                        `gorm:"column:is_selected;not null;default:false" json:"isSelected"`
	CreatedAt   time.Time                   `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time                   `gorm:"not null" json:"updatedAt"`
}

func (Server) TableName() string { return "discord_servers" }

// CanAdminister reports whether the user owns the guild or holds the
// ADMINISTRATOR bit in it.
func (s Server) CanAdminister() bool {
	if s.ServerOwner {
		return true
	}
	perms, err := strconv.ParseInt(strings.TrimSpace(s.Permissions), 10, 64)
	if err != nil {
		return false
	}
	return perms&PermissionAdministrator != 0
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
	RoleBanned    = "banned"
)

var KnownRoles = map[string]struct{}{
	RoleAdmin:     {},
	RoleModerator: {},
	RoleMember:    {},
	RoleBanned:    {},
}

// UserRole is one grant in the role ledger. A nil GuildID is a global grant.
type UserRole struct {
	ID          snowflake.ID                `gorm:"primaryKey" json:"id,string"`
	UserID      snowflake.ID                `gorm:"column:user_id;not null;index" json:"userId,string"`
	Role        string                      `gorm:"type:text;not null" json:"role"`
	GuildID     *string                     `gorm:"column:guild_id;type:text;index" json:"guildId"`
	Permissions datatypes.JSONSlice[string] `gorm:"column:permissions;type:jsonb;not null" json:"permissions"`
	AssignedBy  snowflake.ID                `gorm:"column:assigned_by;not null" json:"assignedBy,string"`
	AssignedAt  time.Time                   `gorm:"column:assigned_at;not null" json:"assignedAt"`
	ExpiresAt   *time.Time                  `gorm:"column:expires_at" json:"expiresAt"`
	IsActive    bool                        `gorm:"column:is_active;not null;default:true" json:"isActive"`
}

func (UserRole) TableName() string { return "user_roles" }

// EffectiveAt reports whether the grant counts for authorization at now.
func (r UserRole) EffectiveAt(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

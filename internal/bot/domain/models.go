package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	TypeStandard = "standard"
	TypeCustom   = "custom"

	StatusOnline      = "online"
	StatusOffline     = "offline"
	StatusMaintenance = "maintenance"
)

var Types = map[string]struct{}{
	TypeStandard: {},
	TypeCustom:   {},
}

var Statuses = map[string]struct{}{
	StatusOnline:      {},
	StatusOffline:     {},
	StatusMaintenance: {},
}

// Bot is a Discord bot registered by a user. The bot token is stored sealed
// and never leaves the service; callers see TokenHint only.
type Bot struct {
	ID          snowflake.ID                `gorm:"primaryKey" json:"id,string"`
	OwnerID     snowflake.ID                `gorm:"column:owner_id;not null;index" json:"ownerId,string"`
	Name        string                      `gorm:"type:text;not null" json:"name"`
	Description *string                     `gorm:"type:text" json:"description"`
	TokenSealed datatypes.JSON              `gorm:"column:token_sealed;type:jsonb" json:"-"`
	TokenHint   string                      `gorm:"column:token_hint;not null;default:''" json:"tokenHint"`
	AvatarURL   *string                     `gorm:"column:avatar_url" json:"avatarUrl"`
	Status      string                      `gorm:"type:text;not null;default:'offline'" json:"status"`
	ServerCount int                         `gorm:"column:server_count;not null;default:0" json:"serverCount"`
	UserCount   int                         `gorm:"column:user_count;not null;default:0" json:"userCount"`
	IsActive    bool                        `gorm:"column:is_active;not null;default:true" json:"isActive"`
	IsPremium   bool                        `gorm:"column:is_premium;not null;default:false" json:"isPremium"`
	BotType     string                      `gorm:"column:bot_type;not null;default:'custom'" json:"botType"`
	ServerType  *string                     `gorm:"column:server_type" json:"serverType"`
	Features    datatypes.JSONSlice[string] `gorm:"column:features;type:jsonb;not null" json:"features"`
	Prefix      string                      `gorm:"type:text;not null;default:'!'" json:"prefix"`
	CreatedAt   time.Time                   `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time                   `gorm:"not null" json:"updatedAt"`
}

func (Bot) TableName() string { return "bots" }

// StandardBot is the shared bot every user can invite. One row at most.
type StandardBot struct {
	ID          snowflake.ID   `gorm:"primaryKey"`
	Name        string         `gorm:"type:text;not null"`
	ClientID    string         `gorm:"column:client_id;not null"`
	TokenSealed datatypes.JSON `gorm:"column:token_sealed;type:jsonb"`
	TokenHint   string         `gorm:"column:token_hint;not null;default:''"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	Version     string         `gorm:"type:text;not null"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

func (StandardBot) TableName() string { return "standard_bots" }

type Stats struct {
	ActiveBots   int64 `json:"activeBots"`
	TotalServers int64 `json:"totalServers"`
	ActiveUsers  int64 `json:"activeUsers"`
}

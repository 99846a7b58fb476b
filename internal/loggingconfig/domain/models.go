package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var LogTypes = map[string]struct{}{
	"messages":         {},
	"voice_activity":   {},
	"member_join":      {},
	"member_leave":     {},
	"account_creation": {},
	"invites":          {},
	"moderation":       {},
	"role_changes":     {},
}

// LoggingConfig routes one category of guild events to a channel and an
// optional webhook.
type LoggingConfig struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id,string"`
	Name           string            `gorm:"type:text;not null" json:"name"`
	GuildID        string            `gorm:"column:guild_id;type:text;not null;index" json:"guildId"`
	ChannelID      string            `gorm:"column:channel_id;type:text;not null" json:"channelId"`
	ChannelName    *string           `gorm:"column:channel_name;type:text" json:"channelName"`
	LogType        string            `gorm:"column:log_type;type:text;not null" json:"logType"`
	IsActive       bool              `gorm:"column:is_active;not null;default:true" json:"isActive"`
	WebhookURL     *string           `gorm:"column:webhook_url;type:text" json:"webhookUrl"`
	FilterSettings datatypes.JSONMap `gorm:"column:filter_settings;type:jsonb;not null" json:"filterSettings"`
	Description    *string           `gorm:"type:text" json:"description"`
	CreatedBy      snowflake.ID      `gorm:"column:created_by" json:"createdBy,string"`
	CreatedAt      time.Time         `gorm:"not null" json:"createdAt"`
	UpdatedAt      time.Time         `gorm:"not null" json:"updatedAt"`
}

func (LoggingConfig) TableName() string { return "logging_configs" }

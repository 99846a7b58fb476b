package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeToken  ActorType = "access_token"
	ActorTypeSystem ActorType = "system"
)

// AuditLog is an append-only record of a security relevant action.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id,string"`
	GuildID    *string           `gorm:"column:guild_id;type:text;index" json:"guildId,omitempty"`
	ActorType  string            `gorm:"column:actor_type;type:text;not null" json:"actorType"`
	ActorID    *string           `gorm:"column:actor_id;type:text" json:"actorId,omitempty"`
	Action     string            `gorm:"column:action;type:text;not null" json:"action"`
	TargetType string            `gorm:"column:target_type;type:text;not null" json:"targetType"`
	TargetID   *string           `gorm:"column:target_id;type:text" json:"targetId,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata;type:jsonb;not null;default:'{}'" json:"metadata"`
	IPAddress  *string           `gorm:"column:ip_address;type:text" json:"ipAddress,omitempty"`
	UserAgent  *string           `gorm:"column:user_agent;type:text" json:"userAgent,omitempty"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	GuildID    string
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}

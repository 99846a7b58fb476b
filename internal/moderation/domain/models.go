package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	ActionWarn            = "warn"
	ActionMute            = "mute"
	ActionKick            = "kick"
	ActionBan             = "ban"
	ActionDeleteMessage   = "delete_message"
	ActionFilterTriggered = "filter_triggered"
)

var LogActions = map[string]struct{}{
	ActionWarn:            {},
	ActionMute:            {},
	ActionKick:            {},
	ActionBan:             {},
	ActionDeleteMessage:   {},
	ActionFilterTriggered: {},
}

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

var Severities = map[string]struct{}{
	SeverityLow:      {},
	SeverityMedium:   {},
	SeverityHigh:     {},
	SeverityCritical: {},
}

// ModerationLog is an append-only journal entry. Reverting only clears IsActive.
type ModerationLog struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Action       string       `gorm:"type:text;not null" json:"action"`
	TargetUserID *string      `gorm:"column:target_user_id;type:text;index" json:"targetUserId"`
	ModeratorID  *string      `gorm:"column:moderator_id;type:text;index" json:"moderatorId"`
	Reason       *string      `gorm:"type:text" json:"reason"`
	Details      *string      `gorm:"type:text" json:"details"`
	Severity     string       `gorm:"type:text;not null;default:'low'" json:"severity"`
	GuildID      *string      `gorm:"column:guild_id;type:text;index" json:"guildId"`
	ChannelID    *string      `gorm:"column:channel_id;type:text" json:"channelId"`
	MessageID    *string      `gorm:"column:message_id;type:text" json:"messageId"`
	Duration     *int         `gorm:"column:duration" json:"duration"`
	IsActive     bool         `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt    time.Time    `gorm:"not null" json:"createdAt"`
}

func (ModerationLog) TableName() string { return "moderation_logs" }

const (
	FilterWord     = "word"
	FilterRegex    = "regex"
	FilterLink     = "link"
	FilterSpam     = "spam"
	FilterToxicity = "toxicity"
)

var FilterTypes = map[string]struct{}{
	FilterWord:     {},
	FilterRegex:    {},
	FilterLink:     {},
	FilterSpam:     {},
	FilterToxicity: {},
}

var FilterActions = map[string]struct{}{
	"warn":          {},
	"delete":        {},
	"flag":          {},
	"auto_moderate": {},
}

// ContentFilter with a nil GuildID applies to every guild.
type ContentFilter struct {
	ID         snowflake.ID                `gorm:"primaryKey" json:"id,string"`
	Name       string                      `gorm:"type:text;not null" json:"name"`
	FilterType string                      `gorm:"column:filter_type;type:text;not null" json:"filterType"`
	Pattern    string                      `gorm:"type:text;not null" json:"pattern"`
	Action     string                      `gorm:"type:text;not null" json:"action"`
	Severity   string                      `gorm:"type:text;not null" json:"severity"`
	IsActive   bool                        `gorm:"column:is_active;not null;default:true" json:"isActive"`
	GuildID    *string                     `gorm:"column:guild_id;type:text;index" json:"guildId"`
	Whitelist  datatypes.JSONSlice[string] `gorm:"column:whitelist;type:jsonb;not null" json:"whitelist"`
	CreatedBy  snowflake.ID                `gorm:"column:created_by" json:"createdBy,string"`
	CreatedAt  time.Time                   `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time                   `gorm:"not null" json:"updatedAt"`
}

func (ContentFilter) TableName() string { return "content_filters" }

const (
	ReportPending       = "pending"
	ReportInvestigating = "investigating"
	ReportResolved      = "resolved"
	ReportDismissed     = "dismissed"
)

var ReportStatuses = map[string]struct{}{
	ReportPending:       {},
	ReportInvestigating: {},
	ReportResolved:      {},
	ReportDismissed:     {},
}

var ReportContentTypes = map[string]struct{}{
	"message": {},
	"poll":    {},
	"event":   {},
	"user":    {},
}

type Report struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id,string"`
	ReportedUserID *string      `gorm:"column:reported_user_id;type:text" json:"reportedUserId"`
	ReporterUserID *string      `gorm:"column:reporter_user_id;type:text" json:"reporterUserId"`
	ContentType    string       `gorm:"column:content_type;type:text;not null" json:"contentType"`
	ContentID      *string      `gorm:"column:content_id;type:text" json:"contentId"`
	Reason         string       `gorm:"type:text;not null" json:"reason"`
	Description    *string      `gorm:"type:text" json:"description"`
	Status         string       `gorm:"type:text;not null;default:'pending'" json:"status"`
	AssignedTo     *string      `gorm:"column:assigned_to;type:text;index" json:"assignedTo"`
	Resolution     *string      `gorm:"type:text" json:"resolution"`
	GuildID        string       `gorm:"column:guild_id;type:text;not null" json:"guildId"`
	ChannelID      *string      `gorm:"column:channel_id;type:text" json:"channelId"`
	MessageID      *string      `gorm:"column:message_id;type:text" json:"messageId"`
	CreatedAt      time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updatedAt"`
	ResolvedAt     *time.Time   `gorm:"column:resolved_at" json:"resolvedAt"`
}

func (Report) TableName() string { return "reports" }

// Closed reports whether status ends the report's lifecycle.
func Closed(status string) bool {
	return status == ReportResolved || status == ReportDismissed
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var TriggerTypes = map[string]struct{}{
	"message_sent":   {},
	"user_joined":    {},
	"role_added":     {},
	"reaction_added": {},
	"time_based":     {},
}

// AutomationRule fires its actions when a trigger matches. Higher priority
// wins; ties go to the older rule.
type AutomationRule struct {
	ID                snowflake.ID                `gorm:"primaryKey" json:"id,string"`
	Name              string                      `gorm:"type:text;not null" json:"name"`
	Description       *string                     `gorm:"type:text" json:"description"`
	TriggerType       string                      `gorm:"column:trigger_type;type:text;not null" json:"triggerType"`
	TriggerConditions datatypes.JSONMap           `gorm:"column:trigger_conditions;type:jsonb;not null" json:"triggerConditions"`
	Actions           datatypes.JSONSlice[string] `gorm:"column:actions;type:jsonb;not null" json:"actions"`
	ActionSettings    datatypes.JSONMap           `gorm:"column:action_settings;type:jsonb;not null" json:"actionSettings"`
	IsActive          bool                        `gorm:"column:is_active;not null;default:true" json:"isActive"`
	GuildID           string                      `gorm:"column:guild_id;type:text;not null;index" json:"guildId"`
	ChannelID         *string                     `gorm:"column:channel_id;type:text" json:"channelId"`
	Priority          int                         `gorm:"not null;default:1" json:"priority"`
	CooldownSeconds   int                         `gorm:"column:cooldown_seconds;not null;default:0" json:"cooldownSeconds"`
	LastTriggered     *time.Time                  `gorm:"column:last_triggered" json:"lastTriggered"`
	TriggerCount      int                         `gorm:"column:trigger_count;not null;default:0" json:"triggerCount"`
	CreatedBy         snowflake.ID                `gorm:"column:created_by" json:"createdBy,string"`
	CreatedAt         time.Time                   `gorm:"not null" json:"createdAt"`
	UpdatedAt         time.Time                   `gorm:"not null" json:"updatedAt"`
}

func (AutomationRule) TableName() string { return "automation_rules" }

var AltActions = map[string]struct{}{
	"kick":       {},
	"ban":        {},
	"quarantine": {},
	"alert":      {},
}

type AltDetectionRule struct {
	ID                     snowflake.ID                `gorm:"primaryKey" json:"id,string"`
	Name                   string                      `gorm:"type:text;not null" json:"name"`
	Description            *string                     `gorm:"type:text" json:"description"`
	GuildID                string                      `gorm:"column:guild_id;type:text;not null;index" json:"guildId"`
	MinAccountAge          int                         `gorm:"column:min_account_age;not null;default:7" json:"minAccountAge"`
	RequireAvatar          bool                        `gorm:"column:require_avatar;not null;default:true" json:"requireAvatar"`
	RequireVerification    bool                        `gorm:"column:require_verification;not null;default:false" json:"requireVerification"`
	MinMutualServers       int                         `gorm:"column:min_mutual_servers;not null;default:0" json:"minMutualServers"`
	BannedUsernamePatterns datatypes.JSONSlice[string] `gorm:"column:banned_username_patterns;type:jsonb;not null" json:"bannedUsernamePatterns"`
	Action                 string                      `gorm:"type:text;not null" json:"action"`
	NotifyChannel          *string                     `gorm:"column:notify_channel;type:text" json:"notifyChannel"`
	ExemptRoles            datatypes.JSONSlice[string] `gorm:"column:exempt_roles;type:jsonb;not null" json:"exemptRoles"`
	Priority               int                         `gorm:"not null;default:5" json:"priority"`
	CooldownSeconds        int                         `gorm:"column:cooldown_seconds;not null;default:0" json:"cooldownSeconds"`
	LastTriggered          *time.Time                  `gorm:"column:last_triggered" json:"lastTriggered"`
	TriggerCount           int                         `gorm:"column:trigger_count;not null;default:0" json:"triggerCount"`
	IsActive               bool                        `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedBy              snowflake.ID                `gorm:"column:created_by" json:"createdBy,string"`
	CreatedAt              time.Time                   `gorm:"not null" json:"createdAt"`
	UpdatedAt              time.Time                   `gorm:"not null" json:"updatedAt"`
}

func (AltDetectionRule) TableName() string { return "alt_detection_rules" }

var AutoRoleTriggers = map[string]struct{}{
	"join":          {},
	"level_up":      {},
	"message_count": {},
	"time_based":    {},
	"reaction":      {},
	"manual":        {},
}

type AutoRole struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id,string"`
	Name          string            `gorm:"type:text;not null" json:"name"`
	Description   *string           `gorm:"type:text" json:"description"`
	RoleID        string            `gorm:"column:role_id;type:text;not null" json:"roleId"`
	RoleName      string            `gorm:"column:role_name;type:text;not null" json:"roleName"`
	TriggerType   string            `gorm:"column:trigger_type;type:text;not null" json:"triggerType"`
	TriggerValue  *int              `gorm:"column:trigger_value" json:"triggerValue"`
	Conditions    datatypes.JSONMap `gorm:"column:conditions;type:jsonb;not null" json:"conditions"`
	GuildID       string            `gorm:"column:guild_id;type:text;not null;index" json:"guildId"`
	ChannelID     *string           `gorm:"column:channel_id;type:text" json:"channelId"`
	IsActive      bool              `gorm:"column:is_active;not null;default:true" json:"isActive"`
	RemoveOnLeave bool              `gorm:"column:remove_on_leave;not null;default:false" json:"removeOnLeave"`
	Stackable     bool              `gorm:"not null;default:true" json:"stackable"`
	Priority      int               `gorm:"not null;default:1" json:"priority"`
	AssignedCount int               `gorm:"column:assigned_count;not null;default:0" json:"assignedCount"`
	CreatedBy     snowflake.ID      `gorm:"column:created_by" json:"createdBy,string"`
	CreatedAt     time.Time         `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updatedAt"`
}

func (AutoRole) TableName() string { return "auto_roles" }

// UserAutoRole records that a Discord user received an auto-role.
type UserAutoRole struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id,string"`
	UserID     string       `gorm:"column:user_id;type:text;not null;index" json:"userId"`
	AutoRoleID snowflake.ID `gorm:"column:auto_role_id;not null" json:"autoRoleId,string"`
	RoleID     string       `gorm:"column:role_id;type:text;not null" json:"roleId"`
	GuildID    string       `gorm:"column:guild_id;type:text;not null;index" json:"guildId"`
	AssignedBy *string      `gorm:"column:assigned_by;type:text" json:"assignedBy"`
	AssignedAt time.Time    `gorm:"column:assigned_at;not null" json:"assignedAt"`
	IsActive   bool         `gorm:"column:is_active;not null;default:true" json:"isActive"`
}

func (UserAutoRole) TableName() string { return "user_auto_roles" }

// EvaluateCooldown reports whether a rule last fired at lastTriggered may
// fire again at now.
func EvaluateCooldown(lastTriggered *time.Time, cooldownSeconds int, now time.Time) bool {
	if lastTriggered == nil || cooldownSeconds <= 0 {
		return true
	}
	return now.Sub(*lastTriggered) >= time.Duration(cooldownSeconds)*time.Second
}

// Eligible reports whether the rule is off cooldown at now.
func (r AutomationRule) Eligible(now time.Time) bool {
	return EvaluateCooldown(r.LastTriggered, r.CooldownSeconds, now)
}

func (r AltDetectionRule) Eligible(now time.Time) bool {
	return EvaluateCooldown(r.LastTriggered, r.CooldownSeconds, now)
}

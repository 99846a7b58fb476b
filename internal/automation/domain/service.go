package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertRule(ctx context.Context, db *gorm.DB, rule *AutomationRule) error
	UpdateRule(ctx context.Context, db *gorm.DB, rule *AutomationRule) error
	DeleteRule(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindRule(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AutomationRule, error)
	ListRules(ctx context.Context, db *gorm.DB, guildID string, activeOnly bool) ([]AutomationRule, error)
	TriggerRule(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error)

	InsertAltRule(ctx context.Context, db *gorm.DB, rule *AltDetectionRule) error
	UpdateAltRule(ctx context.Context, db *gorm.DB, rule *AltDetectionRule) error
	DeleteAltRule(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindAltRule(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AltDetectionRule, error)
	ListAltRules(ctx context.Context, db *gorm.DB, guildID string) ([]AltDetectionRule, error)
	TriggerAltRule(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error)

	InsertAutoRole(ctx context.Context, db *gorm.DB, role *AutoRole) error
	UpdateAutoRole(ctx context.Context, db *gorm.DB, role *AutoRole) error
	DeleteAutoRole(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindAutoRole(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AutoRole, error)
	ListAutoRoles(ctx context.Context, db *gorm.DB, guildID string) ([]AutoRole, error)
	IncrementAssigned(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertUserAutoRole(ctx context.Context, db *gorm.DB, assignment *UserAutoRole) error
	DeactivateUserAutoRole(ctx context.Context, db *gorm.DB, userID string, autoRoleID snowflake.ID) (int64, error)
	ListUserAutoRoles(ctx context.Context, db *gorm.DB, userID string, guildID *string) ([]UserAutoRole, error)
	ListActiveAssignmentsInGuild(ctx context.Context, db *gorm.DB, userID string, guildID string) ([]UserAutoRole, error)
}

type Service interface {
	ListRules(ctx context.Context, guildID string) ([]AutomationRule, error)
	GetRule(ctx context.Context, id string) (*AutomationRule, error)
	CreateRule(ctx context.Context, createdBy snowflake.ID, req CreateRuleRequest) (*AutomationRule, error)
	UpdateRule(ctx context.Context, id string, req UpdateRuleRequest) (*AutomationRule, error)
	DeleteRule(ctx context.Context, id string) error
	TriggerRule(ctx context.Context, id string) (*AutomationRule, error)
	Evaluate(ctx context.Context, req EvaluateRequest) ([]Decision, error)

	ListAltRules(ctx context.Context, guildID string) ([]AltDetectionRule, error)
	GetAltRule(ctx context.Context, id string) (*AltDetectionRule, error)
	CreateAltRule(ctx context.Context, createdBy snowflake.ID, req CreateAltRuleRequest) (*AltDetectionRule, error)
	UpdateAltRule(ctx context.Context, id string, req UpdateAltRuleRequest) (*AltDetectionRule, error)
	DeleteAltRule(ctx context.Context, id string) error
	TriggerAltRule(ctx context.Context, id string) (*AltDetectionRule, error)

	ListAutoRoles(ctx context.Context, guildID string) ([]AutoRole, error)
	GetAutoRole(ctx context.Context, id string) (*AutoRole, error)
	CreateAutoRole(ctx context.Context, createdBy snowflake.ID, req CreateAutoRoleRequest) (*AutoRole, error)
	UpdateAutoRole(ctx context.Context, id string, req UpdateAutoRoleRequest) (*AutoRole, error)
	DeleteAutoRole(ctx context.Context, id string) error
	AssignUserAutoRole(ctx context.Context, userID string, req AssignAutoRoleRequest) (*UserAutoRole, error)
	RemoveUserAutoRole(ctx context.Context, userID string, autoRoleID string) error
	ListUserAutoRoles(ctx context.Context, userID string, guildID string) ([]UserAutoRole, error)
}

type CreateRuleRequest struct {
	Name              string         `json:"name" binding:"required,max=255"`
	Description       *string        `json:"description"`
	TriggerType       string         `json:"triggerType" binding:"required"`
	TriggerConditions map[string]any `json:"triggerConditions"`
	Actions           []string       `json:"actions" binding:"required,min=1"`
	ActionSettings    map[string]any `json:"actionSettings"`
	GuildID           string         `json:"guildId" binding:"required"`
	ChannelID         *string        `json:"channelId"`
	Priority          *int           `json:"priority"`
	CooldownSeconds   *int           `json:"cooldownSeconds" binding:"omitempty,gte=0"`
}

type UpdateRuleRequest struct {
	Name              *string        `json:"name" binding:"omitempty,max=255"`
	Description       *string        `json:"description"`
	TriggerType       *string        `json:"triggerType"`
	TriggerConditions map[string]any `json:"triggerConditions"`
	Actions           []string       `json:"actions"`
	ActionSettings    map[string]any `json:"actionSettings"`
	ChannelID         *string        `json:"channelId"`
	Priority          *int           `json:"priority"`
	CooldownSeconds   *int           `json:"cooldownSeconds" binding:"omitempty,gte=0"`
	IsActive          *bool          `json:"isActive"`
}

type Match struct {
	RuleID       string `json:"ruleId" binding:"required"`
	TargetUserID string `json:"targetUserId" binding:"required"`
}

type EvaluateRequest struct {
	GuildID string  `json:"guildId" binding:"required"`
	Matches []Match `json:"matches" binding:"required,dive"`
}

const (
	OutcomeApplied    = "applied"
	OutcomeCooldown   = "cooldown"
	OutcomeSuperseded = "superseded"
	OutcomeIgnored    = "ignored"
)

type Decision struct {
	RuleID       string          `json:"ruleId"`
	TargetUserID string          `json:"targetUserId"`
	Outcome      string          `json:"outcome"`
	Rule         *AutomationRule `json:"rule,omitempty"`
}

type CreateAltRuleRequest struct {
	Name                   string   `json:"name" binding:"required,max=255"`
	Description            *string  `json:"description"`
	GuildID                string   `json:"guildId" binding:"required"`
	MinAccountAge          *int     `json:"minAccountAge" binding:"omitempty,gte=0"`
	RequireAvatar          *bool    `json:"requireAvatar"`
	RequireVerification    bool     `json:"requireVerification"`
	MinMutualServers       int      `json:"minMutualServers" binding:"gte=0"`
	BannedUsernamePatterns []string `json:"bannedUsernamePatterns"`
	Action                 string   `json:"action" binding:"required"`
	NotifyChannel          *string  `json:"notifyChannel"`
	ExemptRoles            []string `json:"exemptRoles"`
	Priority               *int     `json:"priority"`
	CooldownSeconds        *int     `json:"cooldownSeconds" binding:"omitempty,gte=0"`
}

type UpdateAltRuleRequest struct {
	Name                   *string  `json:"name" binding:"omitempty,max=255"`
	Description            *string  `json:"description"`
	MinAccountAge          *int     `json:"minAccountAge" binding:"omitempty,gte=0"`
	RequireAvatar          *bool    `json:"requireAvatar"`
	RequireVerification    *bool    `json:"requireVerification"`
	MinMutualServers       *int     `json:"minMutualServers" binding:"omitempty,gte=0"`
	BannedUsernamePatterns []string `json:"bannedUsernamePatterns"`
	Action                 *string  `json:"action"`
	NotifyChannel          *string  `json:"notifyChannel"`
	ExemptRoles            []string `json:"exemptRoles"`
	Priority               *int     `json:"priority"`
	CooldownSeconds        *int     `json:"cooldownSeconds" binding:"omitempty,gte=0"`
	IsActive               *bool    `json:"isActive"`
}

type CreateAutoRoleRequest struct {
	Name          string         `json:"name" binding:"required,max=255"`
	Description   *string        `json:"description"`
	RoleID        string         `json:"roleId" binding:"required"`
	RoleName      string         `json:"roleName" binding:"required"`
	TriggerType   string         `json:"triggerType" binding:"required"`
	TriggerValue  *int           `json:"triggerValue"`
	Conditions    map[string]any `json:"conditions"`
	GuildID       string         `json:"guildId" binding:"required"`
	ChannelID     *string        `json:"channelId"`
	RemoveOnLeave bool           `json:"removeOnLeave"`
	Stackable     *bool          `json:"stackable"`
	Priority      *int           `json:"priority"`
}

type UpdateAutoRoleRequest struct {
	Name          *string        `json:"name" binding:"omitempty,max=255"`
	Description   *string        `json:"description"`
	RoleName      *string        `json:"roleName"`
	TriggerType   *string        `json:"triggerType"`
	TriggerValue  *int           `json:"triggerValue"`
	Conditions    map[string]any `json:"conditions"`
	ChannelID     *string        `json:"channelId"`
	IsActive      *bool          `json:"isActive"`
	RemoveOnLeave *bool          `json:"removeOnLeave"`
	Stackable     *bool          `json:"stackable"`
	Priority      *int           `json:"priority"`
}

type AssignAutoRoleRequest struct {
	AutoRoleID string  `json:"autoRoleId" binding:"required"`
	AssignedBy *string `json:"assignedBy"`
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidGuild       = errors.New("invalid_guild_id")
	ErrInvalidTriggerType = errors.New("invalid_trigger_type")
	ErrInvalidActions     = errors.New("invalid_actions")
	ErrInvalidAction      = errors.New("invalid_action")
	ErrInvalidCooldown    = errors.New("invalid_cooldown")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidUserID      = errors.New("invalid_user_id")
	ErrAutoRoleInactive   = errors.New("invalid_auto_role_inactive")
	ErrNotStackable       = errors.New("invalid_auto_role_not_stackable")
	ErrNotFound           = errors.New("not_found")
)

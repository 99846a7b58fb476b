package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/automation/domain"
	"gorm.io/gorm"
)

const (
	ruleColumns     = `id, name, description, trigger_type, trigger_conditions, actions, action_settings, is_active, guild_id, channel_id, priority, cooldown_seconds, last_triggered, trigger_count, created_by, created_at, updated_at`
	altRuleColumns  = `id, name, description, guild_id, min_account_age, require_avatar, require_verification, min_mutual_servers, banned_username_patterns, action, notify_channel, exempt_roles, priority, cooldown_seconds, last_triggered, trigger_count, is_active, created_by, created_at, updated_at`
	autoRoleColumns = `id, name, description, role_id, role_name, trigger_type, trigger_value, conditions, guild_id, channel_id, is_active, remove_on_leave, stackable, priority, assigned_count, created_by, created_at, updated_at`
	userRoleColumns = `id, user_id, auto_role_id, role_id, guild_id, assigned_by, assigned_at, is_active`

	// Precedence for rule evaluation.
	ruleOrder = `ORDER BY priority DESC, created_at ASC, id ASC`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertRule(ctx context.Context, db *gorm.DB, rule *domain.AutomationRule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO automation_rules (`+ruleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.Name,
		rule.Description,
		rule.TriggerType,
		rule.TriggerConditions,
		rule.Actions,
		rule.ActionSettings,
		rule.IsActive,
		rule.GuildID,
		rule.ChannelID,
		rule.Priority,
		rule.CooldownSeconds,
		rule.LastTriggered,
		rule.TriggerCount,
		rule.CreatedBy,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

// UpdateRule writes the editable columns. Trigger bookkeeping is only touched
// by TriggerRule.
func (r *repo) UpdateRule(ctx context.Context, db *gorm.DB, rule *domain.AutomationRule) error {
	return db.WithContext(ctx).Exec(
		`UPDATE automation_rules
		 SET name = ?, description = ?, trigger_type = ?, trigger_conditions = ?, actions = ?, action_settings = ?,
		     is_active = ?, channel_id = ?, priority = ?, cooldown_seconds = ?, updated_at = ?
		 WHERE id = ?`,
		rule.Name,
		rule.Description,
		rule.TriggerType,
		rule.TriggerConditions,
		rule.Actions,
		rule.ActionSettings,
		rule.IsActive,
		rule.ChannelID,
		rule.Priority,
		rule.CooldownSeconds,
		rule.UpdatedAt,
		rule.ID,
	).Error
}

func (r *repo) DeleteRule(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM automation_rules WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) FindRule(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AutomationRule, error) {
	var rule domain.AutomationRule
	err := db.WithContext(ctx).Raw(
		`SELECT `+ruleColumns+` FROM automation_rules WHERE id = ?`,
		id,
	).Scan(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) ListRules(ctx context.Context, db *gorm.DB, guildID string, activeOnly bool) ([]domain.AutomationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE guild_id = ?`
	args := []any{guildID}
	if activeOnly {
		query += ` AND is_active = ?`
		args = append(args, true)
	}

	var rules []domain.AutomationRule
	if err := db.WithContext(ctx).Raw(query+` `+ruleOrder, args...).Scan(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) TriggerRule(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE automation_rules
		 SET trigger_count = trigger_count + 1, last_triggered = ?
		 WHERE id = ?`,
		at,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) InsertAltRule(ctx context.Context, db *gorm.DB, rule *domain.AltDetectionRule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO alt_detection_rules (`+altRuleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.Name,
		rule.Description,
		rule.GuildID,
		rule.MinAccountAge,
		rule.RequireAvatar,
		rule.RequireVerification,
		rule.MinMutualServers,
		rule.BannedUsernamePatterns,
		rule.Action,
		rule.NotifyChannel,
		rule.ExemptRoles,
		rule.Priority,
		rule.CooldownSeconds,
		rule.LastTriggered,
		rule.TriggerCount,
		rule.IsActive,
		rule.CreatedBy,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

func (r *repo) UpdateAltRule(ctx context.Context, db *gorm.DB, rule *domain.AltDetectionRule) error {
	return db.WithContext(ctx).Exec(
		`UPDATE alt_detection_rules
		 SET name = ?, description = ?, min_account_age = ?, require_avatar = ?, require_verification = ?,
		     min_mutual_servers = ?, banned_username_patterns = ?, action = ?, notify_channel = ?, exempt_roles = ?,
		     priority = ?, cooldown_seconds = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		rule.Name,
		rule.Description,
		rule.MinAccountAge,
		rule.RequireAvatar,
		rule.RequireVerification,
		rule.MinMutualServers,
		rule.BannedUsernamePatterns,
		rule.Action,
		rule.NotifyChannel,
		rule.ExemptRoles,
		rule.Priority,
		rule.CooldownSeconds,
		rule.IsActive,
		rule.UpdatedAt,
		rule.ID,
	).Error
}

func (r *repo) DeleteAltRule(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM alt_detection_rules WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) FindAltRule(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AltDetectionRule, error) {
	var rule domain.AltDetectionRule
	err := db.WithContext(ctx).Raw(
		`SELECT `+altRuleColumns+` FROM alt_detection_rules WHERE id = ?`,
		id,
	).Scan(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) ListAltRules(ctx context.Context, db *gorm.DB, guildID string) ([]domain.AltDetectionRule, error) {
	var rules []domain.AltDetectionRule
	err := db.WithContext(ctx).Raw(
		`SELECT `+altRuleColumns+` FROM alt_detection_rules WHERE guild_id = ? `+ruleOrder,
		guildID,
	).Scan(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) TriggerAltRule(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE alt_detection_rules
		 SET trigger_count = trigger_count + 1, last_triggered = ?
		 WHERE id = ?`,
		at,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) InsertAutoRole(ctx context.Context, db *gorm.DB, role *domain.AutoRole) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO auto_roles (`+autoRoleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		role.ID,
		role.Name,
		role.Description,
		role.RoleID,
		role.RoleName,
		role.TriggerType,
		role.TriggerValue,
		role.Conditions,
		role.GuildID,
		role.ChannelID,
		role.IsActive,
		role.RemoveOnLeave,
		role.Stackable,
		role.Priority,
		role.AssignedCount,
		role.CreatedBy,
		role.CreatedAt,
		role.UpdatedAt,
	).Error
}

func (r *repo) UpdateAutoRole(ctx context.Context, db *gorm.DB, role *domain.AutoRole) error {
	return db.WithContext(ctx).Exec(
		`UPDATE auto_roles
		 SET name = ?, description = ?, role_name = ?, trigger_type = ?, trigger_value = ?, conditions = ?,
		     channel_id = ?, is_active = ?, remove_on_leave = ?, stackable = ?, priority = ?, updated_at = ?
		 WHERE id = ?`,
		role.Name,
		role.Description,
		role.RoleName,
		role.TriggerType,
		role.TriggerValue,
		role.Conditions,
		role.ChannelID,
		role.IsActive,
		role.RemoveOnLeave,
		role.Stackable,
		role.Priority,
		role.UpdatedAt,
		role.ID,
	).Error
}

func (r *repo) DeleteAutoRole(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var affected int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM user_auto_roles WHERE auto_role_id = ?`, id).Error; err != nil {
			return err
		}
		res := tx.Exec(`DELETE FROM auto_roles WHERE id = ?`, id)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

func (r *repo) FindAutoRole(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AutoRole, error) {
	var role domain.AutoRole
	err := db.WithContext(ctx).Raw(
		`SELECT `+autoRoleColumns+` FROM auto_roles WHERE id = ?`,
		id,
	).Scan(&role).Error
	if err != nil {
		return nil, err
	}
	if role.ID == 0 {
		return nil, nil
	}
	return &role, nil
}

func (r *repo) ListAutoRoles(ctx context.Context, db *gorm.DB, guildID string) ([]domain.AutoRole, error) {
	var roles []domain.AutoRole
	err := db.WithContext(ctx).Raw(
		`SELECT `+autoRoleColumns+` FROM auto_roles WHERE guild_id = ? `+ruleOrder,
		guildID,
	).Scan(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repo) IncrementAssigned(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE auto_roles SET assigned_count = assigned_count + 1 WHERE id = ?`,
		id,
	).Error
}

func (r *repo) InsertUserAutoRole(ctx context.Context, db *gorm.DB, assignment *domain.UserAutoRole) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO user_auto_roles (`+userRoleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		assignment.ID,
		assignment.UserID,
		assignment.AutoRoleID,
		assignment.RoleID,
		assignment.GuildID,
		assignment.AssignedBy,
		assignment.AssignedAt,
		assignment.IsActive,
	).Error
}

func (r *repo) DeactivateUserAutoRole(ctx context.Context, db *gorm.DB, userID string, autoRoleID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE user_auto_roles SET is_active = ?
		 WHERE user_id = ? AND auto_role_id = ? AND is_active = ?`,
		false,
		userID,
		autoRoleID,
		true,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListUserAutoRoles(ctx context.Context, db *gorm.DB, userID string, guildID *string) ([]domain.UserAutoRole, error) {
	query := `SELECT ` + userRoleColumns + ` FROM user_auto_roles WHERE user_id = ?`
	args := []any{userID}
	if guildID != nil {
		query += ` AND guild_id = ?`
		args = append(args, *guildID)
	}

	var assignments []domain.UserAutoRole
	if err := db.WithContext(ctx).Raw(query+` ORDER BY assigned_at DESC, id DESC`, args...).Scan(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repo) ListActiveAssignmentsInGuild(ctx context.Context, db *gorm.DB, userID string, guildID string) ([]domain.UserAutoRole, error) {
	var assignments []domain.UserAutoRole
	err := db.WithContext(ctx).Raw(
		`SELECT `+userRoleColumns+` FROM user_auto_roles
		 WHERE user_id = ? AND guild_id = ? AND is_active = ?`,
		userID,
		guildID,
		true,
	).Scan(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

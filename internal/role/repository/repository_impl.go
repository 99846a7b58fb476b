package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/role/domain"
	"gorm.io/gorm"
)

const roleColumns = `id, user_id, role, guild_id, permissions, assigned_by, assigned_at, expires_at, is_active`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, role *domain.UserRole) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO user_roles (`+roleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		role.ID,
		role.UserID,
		role.Role,
		role.GuildID,
		role.Permissions,
		role.AssignedBy,
		role.AssignedAt,
		role.ExpiresAt,
		role.IsActive,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, role *domain.UserRole) error {
	return db.WithContext(ctx).Exec(
		`UPDATE user_roles
		 SET role = ?, permissions = ?, expires_at = ?, is_active = ?
		 WHERE id = ?`,
		role.Role,
		role.Permissions,
		role.ExpiresAt,
		role.IsActive,
		role.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM user_roles WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.UserRole, error) {
	var role domain.UserRole
	err := db.WithContext(ctx).Raw(
		`SELECT `+roleColumns+` FROM user_roles WHERE id = ?`,
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

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.UserRole, error) {
	conditions := []string{"1 = 1"}
	args := []any{}
	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.GuildID != nil {
		conditions = append(conditions, "guild_id = ?")
		args = append(args, *filter.GuildID)
	}

	var roles []domain.UserRole
	err := db.WithContext(ctx).Raw(
		`SELECT `+roleColumns+` FROM user_roles
		 WHERE `+strings.Join(conditions, " AND ")+`
		 ORDER BY assigned_at DESC, id DESC`,
		args...,
	).Scan(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// ListActiveForGuild returns active grants for the guild plus global grants.
// Expiry is left to the caller.
func (r *repo) ListActiveForGuild(ctx context.Context, db *gorm.DB, userID snowflake.ID, guildID string) ([]domain.UserRole, error) {
	var roles []domain.UserRole
	err := db.WithContext(ctx).Raw(
		`SELECT `+roleColumns+` FROM user_roles
		 WHERE user_id = ?
		   AND is_active = ?
		   AND (guild_id = ? OR guild_id IS NULL)`,
		userID,
		true,
		guildID,
	).Scan(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// ListLapsed returns active grants whose expiry is at or before now, oldest first.
func (r *repo) ListLapsed(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.UserRole, error) {
	var roles []domain.UserRole
	err := db.WithContext(ctx).Raw(
		`SELECT `+roleColumns+` FROM user_roles
		 WHERE is_active = ?
		   AND expires_at IS NOT NULL
		   AND expires_at <= ?
		 ORDER BY expires_at ASC, id ASC
		 LIMIT ?`,
		true,
		now,
		limit,
	).Scan(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE user_roles SET is_active = ? WHERE id IN ? AND is_active = ?`,
		false,
		ids,
		true,
	)
	return res.RowsAffected, res.Error
}

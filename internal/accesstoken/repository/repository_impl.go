package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	"gorm.io/gorm"
)

const tokenColumns = `id, user_id, secret_hash, secret_hint, secret_sealed, name, permissions, expires_at, last_used_at, is_active, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, token *domain.AccessToken) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO access_tokens (`+tokenColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.UserID,
		token.SecretHash,
		token.SecretHint,
		token.SecretSealed,
		token.Name,
		token.Permissions,
		token.ExpiresAt,
		token.LastUsedAt,
		token.IsActive,
		token.CreatedAt,
		token.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, token *domain.AccessToken) error {
	return db.WithContext(ctx).Exec(
		`UPDATE access_tokens
		 SET name = ?, permissions = ?, expires_at = ?, is_active = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		token.Name,
		token.Permissions,
		token.ExpiresAt,
		token.IsActive,
		token.UpdatedAt,
		token.UserID,
		token.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM access_tokens WHERE user_id = ? AND id = ?`,
		userID,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.AccessToken, error) {
	var token domain.AccessToken
	err := db.WithContext(ctx).Raw(
		`SELECT `+tokenColumns+` FROM access_tokens WHERE user_id = ? AND id = ?`,
		userID,
		id,
	).Scan(&token).Error
	if err != nil {
		return nil, err
	}
	if token.ID == 0 {
		return nil, nil
	}
	return &token, nil
}

func (r *repo) FindBySecretHash(ctx context.Context, db *gorm.DB, hash string) (*domain.AccessToken, error) {
	var token domain.AccessToken
	err := db.WithContext(ctx).Raw(
		`SELECT `+tokenColumns+` FROM access_tokens WHERE secret_hash = ? LIMIT 1`,
		hash,
	).Scan(&token).Error
	if err != nil {
		return nil, err
	}
	if token.ID == 0 {
		return nil, nil
	}
	return &token, nil
}

func (r *repo) TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE access_tokens SET last_used_at = ? WHERE id = ?`,
		at,
		id,
	).Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.AccessToken, error) {
	var tokens []domain.AccessToken
	err := db.WithContext(ctx).Raw(
		`SELECT `+tokenColumns+` FROM access_tokens WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	).Scan(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

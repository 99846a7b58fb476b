package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/bot/domain"
	"gorm.io/gorm"
)

const (
	botColumns      = `id, owner_id, name, description, token_sealed, token_hint, avatar_url, status, server_count, user_count, is_active, is_premium, bot_type, server_type, features, prefix, created_at, updated_at`
	standardColumns = `id, name, client_id, token_sealed, token_hint, is_active, version, created_at, updated_at`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bot *domain.Bot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bots (`+botColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bot.ID,
		bot.OwnerID,
		bot.Name,
		bot.Description,
		bot.TokenSealed,
		bot.TokenHint,
		bot.AvatarURL,
		bot.Status,
		bot.ServerCount,
		bot.UserCount,
		bot.IsActive,
		bot.IsPremium,
		bot.BotType,
		bot.ServerType,
		bot.Features,
		bot.Prefix,
		bot.CreatedAt,
		bot.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, bot *domain.Bot) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bots
		 SET name = ?, description = ?, token_sealed = ?, token_hint = ?, avatar_url = ?, status = ?,
		     is_active = ?, is_premium = ?, server_type = ?, features = ?, prefix = ?, updated_at = ?
		 WHERE id = ?`,
		bot.Name,
		bot.Description,
		bot.TokenSealed,
		bot.TokenHint,
		bot.AvatarURL,
		bot.Status,
		bot.IsActive,
		bot.IsPremium,
		bot.ServerType,
		bot.Features,
		bot.Prefix,
		bot.UpdatedAt,
		bot.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Bot, error) {
	var bot domain.Bot
	err := db.WithContext(ctx).Raw(
		`SELECT `+botColumns+` FROM bots WHERE id = ?`,
		id,
	).Scan(&bot).Error
	if err != nil {
		return nil, err
	}
	if bot.ID == 0 {
		return nil, nil
	}
	return &bot, nil
}

func (r *repo) ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]domain.Bot, error) {
	var bots []domain.Bot
	err := db.WithContext(ctx).Raw(
		`SELECT `+botColumns+` FROM bots
		 WHERE owner_id = ? AND is_active = ?
		 ORDER BY created_at DESC, id DESC`,
		ownerID,
		true,
	).Scan(&bots).Error
	if err != nil {
		return nil, err
	}
	return bots, nil
}

func (r *repo) StatsByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (domain.Stats, error) {
	var stats domain.Stats
	err := db.WithContext(ctx).Raw(
		`SELECT
		     COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active_bots,
		     COALESCE(SUM(server_count), 0) AS total_servers,
		     COALESCE(SUM(user_count), 0) AS active_users
		 FROM bots
		 WHERE owner_id = ? AND is_active = ?`,
		domain.StatusOnline,
		ownerID,
		true,
	).Scan(&stats).Error
	return stats, err
}

func (r *repo) FindStandard(ctx context.Context, db *gorm.DB) (*domain.StandardBot, error) {
	var bot domain.StandardBot
	err := db.WithContext(ctx).Raw(
		`SELECT ` + standardColumns + ` FROM standard_bots ORDER BY created_at ASC, id ASC LIMIT 1`,
	).Scan(&bot).Error
	if err != nil {
		return nil, err
	}
	if bot.ID == 0 {
		return nil, nil
	}
	return &bot, nil
}

func (r *repo) InsertStandard(ctx context.Context, db *gorm.DB, bot *domain.StandardBot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO standard_bots (`+standardColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bot.ID,
		bot.Name,
		bot.ClientID,
		bot.TokenSealed,
		bot.TokenHint,
		bot.IsActive,
		bot.Version,
		bot.CreatedAt,
		bot.UpdatedAt,
	).Error
}

func (r *repo) UpdateStandard(ctx context.Context, db *gorm.DB, bot *domain.StandardBot) error {
	return db.WithContext(ctx).Exec(
		`UPDATE standard_bots
		 SET client_id = ?, token_sealed = ?, token_hint = ?, updated_at = ?
		 WHERE id = ?`,
		bot.ClientID,
		bot.TokenSealed,
		bot.TokenHint,
		bot.UpdatedAt,
		bot.ID,
	).Error
}

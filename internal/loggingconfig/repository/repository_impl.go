package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/loggingconfig/domain"
	"gorm.io/gorm"
)

const configColumns = `id, name, guild_id, channel_id, channel_name, log_type, is_active, webhook_url, filter_settings, description, created_by, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, cfg *domain.LoggingConfig) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO logging_configs (`+configColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.ID,
		cfg.Name,
		cfg.GuildID,
		cfg.ChannelID,
		cfg.ChannelName,
		cfg.LogType,
		cfg.IsActive,
		cfg.WebhookURL,
		cfg.FilterSettings,
		cfg.Description,
		cfg.CreatedBy,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, cfg *domain.LoggingConfig) error {
	return db.WithContext(ctx).Exec(
		`UPDATE logging_configs
		 SET name = ?, channel_id = ?, channel_name = ?, log_type = ?, is_active = ?, webhook_url = ?,
		     filter_settings = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		cfg.Name,
		cfg.ChannelID,
		cfg.ChannelName,
		cfg.LogType,
		cfg.IsActive,
		cfg.WebhookURL,
		cfg.FilterSettings,
		cfg.Description,
		cfg.UpdatedAt,
		cfg.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM logging_configs WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.LoggingConfig, error) {
	var cfg domain.LoggingConfig
	err := db.WithContext(ctx).Raw(
		`SELECT `+configColumns+` FROM logging_configs WHERE id = ?`,
		id,
	).Scan(&cfg).Error
	if err != nil {
		return nil, err
	}
	if cfg.ID == 0 {
		return nil, nil
	}
	return &cfg, nil
}

func (r *repo) ListByGuild(ctx context.Context, db *gorm.DB, guildID string) ([]domain.LoggingConfig, error) {
	var configs []domain.LoggingConfig
	err := db.WithContext(ctx).Raw(
		`SELECT `+configColumns+` FROM logging_configs
		 WHERE guild_id = ?
		 ORDER BY created_at ASC, id ASC`,
		guildID,
	).Scan(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

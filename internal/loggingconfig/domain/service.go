package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, cfg *LoggingConfig) error
	Update(ctx context.Context, db *gorm.DB, cfg *LoggingConfig) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LoggingConfig, error)
	ListByGuild(ctx context.Context, db *gorm.DB, guildID string) ([]LoggingConfig, error)
}

type Service interface {
	List(ctx context.Context, guildID string) ([]LoggingConfig, error)
	Get(ctx context.Context, id string) (*LoggingConfig, error)
	Create(ctx context.Context, createdBy snowflake.ID, req CreateRequest) (*LoggingConfig, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*LoggingConfig, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	Name           string         `json:"name" binding:"required,max=255"`
	GuildID        string         `json:"guildId" binding:"required"`
	ChannelID      string         `json:"channelId" binding:"required"`
	ChannelName    *string        `json:"channelName"`
	LogType        string         `json:"logType" binding:"required"`
	WebhookURL     *string        `json:"webhookUrl" binding:"omitempty,url"`
	FilterSettings map[string]any `json:"filterSettings"`
	Description    *string        `json:"description"`
}

type UpdateRequest struct {
	Name           *string        `json:"name" binding:"omitempty,max=255"`
	ChannelID      *string        `json:"channelId"`
	ChannelName    *string        `json:"channelName"`
	LogType        *string        `json:"logType"`
	IsActive       *bool          `json:"isActive"`
	WebhookURL     *string        `json:"webhookUrl"`
	FilterSettings map[string]any `json:"filterSettings"`
	Description    *string        `json:"description"`
}

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidGuild   = errors.New("invalid_guild_id")
	ErrInvalidChannel = errors.New("invalid_channel_id")
	ErrInvalidLogType = errors.New("invalid_log_type")
	ErrInvalidWebhook = errors.New("invalid_webhook_url")
	ErrNotFound       = errors.New("not_found")
)

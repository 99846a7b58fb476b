package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	DefaultStandardName    = "BotCentral Bot"
	DefaultStandardVersion = "1.0.0"
	DefaultPrefix          = "!"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bot *Bot) error
	Update(ctx context.Context, db *gorm.DB, bot *Bot) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bot, error)
	ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Bot, error)
	StatsByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (Stats, error)

	FindStandard(ctx context.Context, db *gorm.DB) (*StandardBot, error)
	InsertStandard(ctx context.Context, db *gorm.DB, bot *StandardBot) error
	UpdateStandard(ctx context.Context, db *gorm.DB, bot *StandardBot) error
}

type Service interface {
	List(ctx context.Context, ownerID snowflake.ID) ([]Bot, error)
	Get(ctx context.Context, ownerID snowflake.ID, id string) (*Bot, error)
	Create(ctx context.Context, ownerID snowflake.ID, premium bool, req CreateRequest) (*Bot, error)
	Update(ctx context.Context, ownerID snowflake.ID, premium bool, id string, req UpdateRequest) (*Bot, error)
	Delete(ctx context.Context, ownerID snowflake.ID, id string) error
	Stats(ctx context.Context, ownerID snowflake.ID) (Stats, error)

	StandardConfig(ctx context.Context) (*StandardConfig, error)
	SetStandardToken(ctx context.Context, req StandardTokenRequest) (*StandardConfig, error)
}

type CreateRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	Description *string  `json:"description"`
	Token       *string  `json:"token"`
	AvatarURL   *string  `json:"avatarUrl"`
	BotType     string   `json:"botType"`
	ServerType  *string  `json:"serverType"`
	Features    []string `json:"features"`
	Prefix      string   `json:"prefix" binding:"max=5"`
	IsPremium   bool     `json:"isPremium"`
}

type UpdateRequest struct {
	Name        *string   `json:"name" binding:"omitempty,max=100"`
	Description *string   `json:"description"`
	Token       *string   `json:"token"`
	AvatarURL   *string   `json:"avatarUrl"`
	Status      *string   `json:"status"`
	ServerType  *string   `json:"serverType"`
	Features    *[]string `json:"features"`
	Prefix      *string   `json:"prefix" binding:"omitempty,max=5"`
	IsActive    *bool     `json:"isActive"`
	IsPremium   *bool     `json:"isPremium"`
}

type StandardTokenRequest struct {
	Token    string  `json:"token" binding:"required"`
	ClientID *string `json:"clientId"`
}

// StandardConfig is the public view of the standard bot.
type StandardConfig struct {
	Name            string     `json:"name"`
	ClientID        string     `json:"clientId"`
	IsActive        bool       `json:"isActive"`
	Version         string     `json:"version"`
	TokenConfigured bool       `json:"tokenConfigured"`
	TokenHint       string     `json:"tokenHint,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidType     = errors.New("invalid_bot_type")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidToken    = errors.New("invalid_token")
	ErrInvalidPrefix   = errors.New("invalid_prefix")
	ErrInvalidClientID = errors.New("invalid_client_id")
	ErrPremiumRequired = errors.New("premium_required")
	ErrNotFound        = errors.New("not_found")
)

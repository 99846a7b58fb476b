package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	UserID  *snowflake.ID
	GuildID *string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, role *UserRole) error
	Update(ctx context.Context, db *gorm.DB, role *UserRole) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*UserRole, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]UserRole, error)
	ListActiveForGuild(ctx context.Context, db *gorm.DB, userID snowflake.ID, guildID string) ([]UserRole, error)
	ListLapsed(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]UserRole, error)
	Deactivate(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error)
}

type Service interface {
	ListRoles(ctx context.Context, req ListRequest) ([]UserRole, error)
	Get(ctx context.Context, id string) (*UserRole, error)
	Create(ctx context.Context, assignedBy snowflake.ID, req CreateRequest) (*UserRole, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*UserRole, error)
	Delete(ctx context.Context, id string) error
	HasRole(ctx context.Context, userID snowflake.ID, guildID, role string) (bool, error)
	ActiveRoles(ctx context.Context, userID snowflake.ID, guildID string) ([]string, error)
	ExpireLapsed(ctx context.Context, limit int) ([]UserRole, error)
}

type ListRequest struct {
	UserID  string `form:"userId"`
	GuildID string `form:"guildId"`
}

type CreateRequest struct {
	UserID      string     `json:"userId" binding:"required"`
	Role        string     `json:"role" binding:"required"`
	GuildID     *string    `json:"guildId"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type UpdateRequest struct {
	Role        *string    `json:"role"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	IsActive    *bool      `json:"isActive"`
}

var (
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidUserID = errors.New("invalid_user_id")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidGuild  = errors.New("invalid_guild_id")
	ErrNotFound      = errors.New("not_found")
)

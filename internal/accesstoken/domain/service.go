package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	PermissionPremium = "premium"
	PermissionAdmin   = "admin"
)

// KnownPermissions lists the capability names a token may carry.
var KnownPermissions = map[string]struct{}{
	PermissionPremium: {},
	PermissionAdmin:   {},
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, token *AccessToken) error
	Update(ctx context.Context, db *gorm.DB, token *AccessToken) error
	Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*AccessToken, error)
	FindBySecretHash(ctx context.Context, db *gorm.DB, hash string) (*AccessToken, error)
	TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]AccessToken, error)
}

type Service interface {
	Issue(ctx context.Context, userID snowflake.ID, req CreateRequest) (*SecretResponse, error)
	Validate(ctx context.Context, secret string) (*AccessToken, error)
	List(ctx context.Context, userID snowflake.ID) ([]Response, error)
	Update(ctx context.Context, userID snowflake.ID, id string, req UpdateRequest) (*Response, error)
	Revoke(ctx context.Context, userID snowflake.ID, id string) error
	Delete(ctx context.Context, userID snowflake.ID, id string) error
}

type CreateRequest struct {
	Name        string     `json:"name" binding:"required,max=255"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type UpdateRequest struct {
	Name        *string    `json:"name" binding:"omitempty,max=255"`
	Permissions []string   `json:"permissions"`
	IsActive    *bool      `json:"isActive"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type Response struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Token       string     `json:"token,omitempty"`
	TokenHint   string     `json:"tokenHint"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"isActive"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	LastUsedAt  *time.Time `json:"lastUsedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SecretResponse is returned at issuance.
type SecretResponse struct {
	Token  Response `json:"token"`
	Secret string   `json:"secret"`
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidPermission = errors.New("invalid_permission")
	ErrInvalidExpiry     = errors.New("invalid_expires_at")
	ErrInvalidTokenID    = errors.New("invalid_token_id")
	ErrInvalidToken      = errors.New("invalid_token")
	ErrNotFound          = errors.New("not_found")
)

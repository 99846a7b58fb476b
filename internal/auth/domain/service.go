package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateSubscription(ctx context.Context, id snowflake.ID, req UpdateSubscriptionRequest) (*User, error)
	PurgeSessions(ctx context.Context, retention time.Duration) (int64, error)
}

type CreateUserRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

type LoginRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type LoginResult struct {
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}

// UpdateSubscriptionRequest carries the subscription state written by the
// payment side. Nil fields are left untouched.
type UpdateSubscriptionRequest struct {
	Tier        *string
	Status      *string
	ExpiresAt   *time.Time
	ClearExpiry bool
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	UpsertConnection(ctx context.Context, db *gorm.DB, conn *Connection) error
	FindConnection(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Connection, error)
	DeleteConnection(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)

	UpsertServer(ctx context.Context, db *gorm.DB, server *Server) error
	FindServer(ctx context.Context, db *gorm.DB, userID snowflake.ID, serverID string) (*Server, error)
	ListServers(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Server, error)
	ClearSelected(ctx context.Context, db *gorm.DB, userID snowflake.ID) error
	SelectServer(ctx context.Context, db *gorm.DB, userID snowflake.ID, serverID string) (int64, error)
	DeleteServers(ctx context.Context, db *gorm.DB, userID snowflake.ID) error
}

type Service interface {
	// AuthURL builds the Discord authorize URL with a signed state bound to userID.
	AuthURL(ctx context.Context, userID snowflake.ID) (string, error)
	// VerifyState returns the user the state was issued to.
	VerifyState(ctx context.Context, state string) (snowflake.ID, error)
	// Connect exchanges code, fetches the Discord profile and guilds and stores both.
	Connect(ctx context.Context, userID snowflake.ID, code string) (*Connection, error)

	GetConnection(ctx context.Context, userID snowflake.ID) (*Connection, error)
	ListServers(ctx context.Context, userID snowflake.ID) ([]Server, error)
	SelectServer(ctx context.Context, userID snowflake.ID, serverID string) (*Server, error)
	Disconnect(ctx context.Context, userID snowflake.ID) error

	IsGuildAdmin(ctx context.Context, userID snowflake.ID, guildID string) (bool, error)
}

// NonceStore remembers consumed OAuth states so a callback cannot be replayed.
type NonceStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type SelectServerRequest struct {
	ServerID string `json:"serverId" binding:"required"`
}

var (
	ErrNotConfigured = errors.New("discord_not_configured")
	ErrInvalidState  = errors.New("invalid_state")
	ErrInvalidCode   = errors.New("invalid_code")
	ErrInvalidServer = errors.New("invalid_server_id")
	ErrUpstream      = errors.New("discord_upstream_error")
	ErrNotFound      = errors.New("not_found")
)

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPoll(ctx context.Context, db *gorm.DB, poll *Poll) error
	UpdatePoll(ctx context.Context, db *gorm.DB, poll *Poll) error
	DeletePoll(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindPoll(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Poll, error)
	ListPolls(ctx context.Context, db *gorm.DB, category string) ([]Poll, error)

	InsertOption(ctx context.Context, db *gorm.DB, option *Option) error
	ListOptions(ctx context.Context, db *gorm.DB, pollIDs []snowflake.ID) ([]Option, error)
	CountOptions(ctx context.Context, db *gorm.DB, pollID snowflake.ID) (int64, error)

	InsertVote(ctx context.Context, db *gorm.DB, vote *Vote) error
	FindVote(ctx context.Context, db *gorm.DB, pollID, userID snowflake.ID) (*Vote, error)
	CountVotesByOption(ctx context.Context, db *gorm.DB, pollID snowflake.ID) ([]OptionResult, error)
}

type Service interface {
	List(ctx context.Context, category string) ([]Poll, error)
	Get(ctx context.Context, id string) (*Poll, error)
	Create(ctx context.Context, createdBy snowflake.ID, req CreateRequest) (*Poll, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Poll, error)
	Delete(ctx context.Context, id string) error

	AddOption(ctx context.Context, pollID string, req AddOptionRequest) (*Option, error)
	ListOptions(ctx context.Context, pollID string) ([]Option, error)

	Vote(ctx context.Context, pollID string, userID snowflake.ID, req VoteRequest) (*Vote, error)
	MyVote(ctx context.Context, pollID string, userID snowflake.ID) (*Vote, error)
	Results(ctx context.Context, pollID string) (*Results, error)
}

type CreateRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Description *string    `json:"description"`
	Category    string     `json:"category"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	IsAnonymous bool       `json:"isAnonymous"`
	Options     []string   `json:"options"`
}

type UpdateRequest struct {
	Title       *string    `json:"title" binding:"omitempty,max=255"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	IsActive    *bool      `json:"isActive"`
}

type AddOptionRequest struct {
	Text string `json:"text" binding:"required,max=255"`
}

type VoteRequest struct {
	OptionID string `json:"optionId" binding:"required"`
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidTitle    = errors.New("invalid_title")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidExpiry   = errors.New("invalid_expires_at")
	ErrInvalidOption   = errors.New("invalid_option")
	ErrTooManyOptions  = errors.New("too_many_options")
	ErrPollClosed      = errors.New("poll_closed")
	ErrAlreadyVoted    = errors.New("already_voted")
	ErrNotFound        = errors.New("not_found")
)

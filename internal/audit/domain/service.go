package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/botcentral/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	GuildID    string
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"auditLogs"`
}

type Service interface {
	AuditLog(ctx context.Context, guildID *string, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
	// ListActivity returns the most recent entries the actor produced across
	// all guilds.
	ListActivity(ctx context.Context, actorID string, limit int) ([]AuditLog, error)
}

var (
	ErrInvalidGuild     = errors.New("invalid_guild")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidActor     = errors.New("invalid_actor")
)

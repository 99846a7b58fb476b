package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 250
)

type LogFilter struct {
	GuildID        *string
	TargetUserID   *string
	ModeratorID    *string
	Limit          int
	IncludeHistory bool
}

type ReportFilter struct {
	GuildID    string
	Status     *string
	AssignedTo *string
}

type Repository interface {
	InsertLog(ctx context.Context, db *gorm.DB, entry *ModerationLog) error
	FindLog(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ModerationLog, error)
	QueryLogs(ctx context.Context, db *gorm.DB, filter LogFilter) ([]ModerationLog, error)
	DeactivateLog(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)

	InsertFilter(ctx context.Context, db *gorm.DB, filter *ContentFilter) error
	UpdateFilter(ctx context.Context, db *gorm.DB, filter *ContentFilter) error
	DeleteFilter(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindFilter(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ContentFilter, error)
	ListFilters(ctx context.Context, db *gorm.DB, guildID *string, activeOnly bool) ([]ContentFilter, error)
	ListActiveFiltersForGuild(ctx context.Context, db *gorm.DB, guildID string) ([]ContentFilter, error)

	InsertReport(ctx context.Context, db *gorm.DB, report *Report) error
	UpdateReport(ctx context.Context, db *gorm.DB, report *Report) error
	FindReport(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Report, error)
	ListReports(ctx context.Context, db *gorm.DB, filter ReportFilter) ([]Report, error)
}

type Service interface {
	RecordLog(ctx context.Context, req RecordLogRequest) (*ModerationLog, error)
	QueryLogs(ctx context.Context, req QueryLogsRequest) ([]ModerationLog, error)
	GetLog(ctx context.Context, id string) (*ModerationLog, error)
	RevertLog(ctx context.Context, id string) (*ModerationLog, error)

	ListFilters(ctx context.Context, guildID *string) ([]ContentFilter, error)
	GetFilter(ctx context.Context, id string) (*ContentFilter, error)
	CreateFilter(ctx context.Context, createdBy snowflake.ID, req CreateFilterRequest) (*ContentFilter, error)
	UpdateFilter(ctx context.Context, id string, req UpdateFilterRequest) (*ContentFilter, error)
	DeleteFilter(ctx context.Context, id string) error
	EffectiveFilters(ctx context.Context, guildID string) ([]ContentFilter, error)

	ListReports(ctx context.Context, req ListReportsRequest) ([]Report, error)
	GetReport(ctx context.Context, id string) (*Report, error)
	CreateReport(ctx context.Context, req CreateReportRequest) (*Report, error)
	UpdateReport(ctx context.Context, id string, req UpdateReportRequest) (*Report, error)
}

type RecordLogRequest struct {
	Action       string  `json:"action" binding:"required"`
	TargetUserID *string `json:"targetUserId"`
	ModeratorID  *string `json:"moderatorId"`
	Reason       *string `json:"reason"`
	Details      *string `json:"details"`
	Severity     string  `json:"severity"`
	GuildID      *string `json:"guildId"`
	ChannelID    *string `json:"channelId"`
	MessageID    *string `json:"messageId"`
	Duration     *int    `json:"duration" binding:"omitempty,gte=1"`
}

type QueryLogsRequest struct {
	GuildID        string `form:"guildId"`
	TargetUserID   string `form:"targetUserId"`
	ModeratorID    string `form:"moderatorId"`
	Limit          int    `form:"limit"`
	IncludeHistory bool   `form:"includeHistory"`
}

type CreateFilterRequest struct {
	Name       string   `json:"name" binding:"required,max=255"`
	FilterType string   `json:"filterType" binding:"required"`
	Pattern    string   `json:"pattern" binding:"required"`
	Action     string   `json:"action"`
	Severity   string   `json:"severity"`
	GuildID    *string  `json:"guildId"`
	Whitelist  []string `json:"whitelist"`
}

type UpdateFilterRequest struct {
	Name      *string  `json:"name" binding:"omitempty,max=255"`
	Pattern   *string  `json:"pattern"`
	Action    *string  `json:"action"`
	Severity  *string  `json:"severity"`
	IsActive  *bool    `json:"isActive"`
	Whitelist []string `json:"whitelist"`
}

type ListReportsRequest struct {
	GuildID    string `form:"guildId"`
	Status     string `form:"status"`
	AssignedTo string `form:"assignedTo"`
}

type CreateReportRequest struct {
	ReportedUserID *string `json:"reportedUserId"`
	ReporterUserID *string `json:"reporterUserId"`
	ContentType    string  `json:"contentType" binding:"required"`
	ContentID      *string `json:"contentId"`
	Reason         string  `json:"reason" binding:"required"`
	Description    *string `json:"description"`
	GuildID        string  `json:"guildId" binding:"required"`
	ChannelID      *string `json:"channelId"`
	MessageID      *string `json:"messageId"`
}

type UpdateReportRequest struct {
	Status      *string `json:"status"`
	AssignedTo  *string `json:"assignedTo"`
	Resolution  *string `json:"resolution"`
	Description *string `json:"description"`
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidAction      = errors.New("invalid_action")
	ErrInvalidSeverity    = errors.New("invalid_severity")
	ErrInvalidDuration    = errors.New("invalid_duration")
	ErrInvalidGuild       = errors.New("invalid_guild_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidFilterType  = errors.New("invalid_filter_type")
	ErrInvalidPattern     = errors.New("invalid_pattern")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidContentType = errors.New("invalid_content_type")
	ErrInvalidReason      = errors.New("invalid_reason")
	ErrNotFound           = errors.New("not_found")
)

package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/moderation/domain"
	"gorm.io/gorm"
)

const (
	logColumns    = `id, action, target_user_id, moderator_id, reason, details, severity, guild_id, channel_id, message_id, duration, is_active, created_at`
	filterColumns = `id, name, filter_type, pattern, action, severity, is_active, guild_id, whitelist, created_by, created_at, updated_at`
	reportColumns = `id, reported_user_id, reporter_user_id, content_type, content_id, reason, description, status, assigned_to, resolution, guild_id, channel_id, message_id, created_at, updated_at, resolved_at`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertLog(ctx context.Context, db *gorm.DB, entry *domain.ModerationLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO moderation_logs (`+logColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Action,
		entry.TargetUserID,
		entry.ModeratorID,
		entry.Reason,
		entry.Details,
		entry.Severity,
		entry.GuildID,
		entry.ChannelID,
		entry.MessageID,
		entry.Duration,
		entry.IsActive,
		entry.CreatedAt,
	).Error
}

func (r *repo) FindLog(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ModerationLog, error) {
	var entry domain.ModerationLog
	err := db.WithContext(ctx).Raw(
		`SELECT `+logColumns+` FROM moderation_logs WHERE id = ?`,
		id,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) QueryLogs(ctx context.Context, db *gorm.DB, filter domain.LogFilter) ([]domain.ModerationLog, error) {
	conditions := []string{"1 = 1"}
	args := []any{}
	if !filter.IncludeHistory {
		conditions = append(conditions, "is_active = ?")
		args = append(args, true)
	}
	if filter.GuildID != nil {
		conditions = append(conditions, "guild_id = ?")
		args = append(args, *filter.GuildID)
	}
	if filter.TargetUserID != nil {
		conditions = append(conditions, "target_user_id = ?")
		args = append(args, *filter.TargetUserID)
	}
	if filter.ModeratorID != nil {
		conditions = append(conditions, "moderator_id = ?")
		args = append(args, *filter.ModeratorID)
	}
	args = append(args, filter.Limit)

	var entries []domain.ModerationLog
	err := db.WithContext(ctx).Raw(
		`SELECT `+logColumns+` FROM moderation_logs
		 WHERE `+strings.Join(conditions, " AND ")+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		args...,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) DeactivateLog(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE moderation_logs SET is_active = ? WHERE id = ?`,
		false,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) InsertFilter(ctx context.Context, db *gorm.DB, filter *domain.ContentFilter) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO content_filters (`+filterColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		filter.ID,
		filter.Name,
		filter.FilterType,
		filter.Pattern,
		filter.Action,
		filter.Severity,
		filter.IsActive,
		filter.GuildID,
		filter.Whitelist,
		filter.CreatedBy,
		filter.CreatedAt,
		filter.UpdatedAt,
	).Error
}

func (r *repo) UpdateFilter(ctx context.Context, db *gorm.DB, filter *domain.ContentFilter) error {
	return db.WithContext(ctx).Exec(
		`UPDATE content_filters
		 SET name = ?, pattern = ?, action = ?, severity = ?, is_active = ?, whitelist = ?, updated_at = ?
		 WHERE id = ?`,
		filter.Name,
		filter.Pattern,
		filter.Action,
		filter.Severity,
		filter.IsActive,
		filter.Whitelist,
		filter.UpdatedAt,
		filter.ID,
	).Error
}

func (r *repo) DeleteFilter(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM content_filters WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) FindFilter(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ContentFilter, error) {
	var filter domain.ContentFilter
	err := db.WithContext(ctx).Raw(
		`SELECT `+filterColumns+` FROM content_filters WHERE id = ?`,
		id,
	).Scan(&filter).Error
	if err != nil {
		return nil, err
	}
	if filter.ID == 0 {
		return nil, nil
	}
	return &filter, nil
}

// ListFilters lists the filters owned by guildID, or the global filters when
// guildID is nil.
func (r *repo) ListFilters(ctx context.Context, db *gorm.DB, guildID *string, activeOnly bool) ([]domain.ContentFilter, error) {
	conditions := []string{}
	args := []any{}
	if guildID == nil {
		conditions = append(conditions, "guild_id IS NULL")
	} else {
		conditions = append(conditions, "guild_id = ?")
		args = append(args, *guildID)
	}
	if activeOnly {
		conditions = append(conditions, "is_active = ?")
		args = append(args, true)
	}

	var filters []domain.ContentFilter
	err := db.WithContext(ctx).Raw(
		`SELECT `+filterColumns+` FROM content_filters
		 WHERE `+strings.Join(conditions, " AND ")+`
		 ORDER BY created_at ASC, id ASC`,
		args...,
	).Scan(&filters).Error
	if err != nil {
		return nil, err
	}
	return filters, nil
}

func (r *repo) ListActiveFiltersForGuild(ctx context.Context, db *gorm.DB, guildID string) ([]domain.ContentFilter, error) {
	var filters []domain.ContentFilter
	err := db.WithContext(ctx).Raw(
		`SELECT `+filterColumns+` FROM content_filters
		 WHERE is_active = ? AND (guild_id = ? OR guild_id IS NULL)
		 ORDER BY created_at ASC, id ASC`,
		true,
		guildID,
	).Scan(&filters).Error
	if err != nil {
		return nil, err
	}
	return filters, nil
}

func (r *repo) InsertReport(ctx context.Context, db *gorm.DB, report *domain.Report) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO reports (`+reportColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.ReportedUserID,
		report.ReporterUserID,
		report.ContentType,
		report.ContentID,
		report.Reason,
		report.Description,
		report.Status,
		report.AssignedTo,
		report.Resolution,
		report.GuildID,
		report.ChannelID,
		report.MessageID,
		report.CreatedAt,
		report.UpdatedAt,
		report.ResolvedAt,
	).Error
}

func (r *repo) UpdateReport(ctx context.Context, db *gorm.DB, report *domain.Report) error {
	return db.WithContext(ctx).Exec(
		`UPDATE reports
		 SET status = ?, assigned_to = ?, resolution = ?, description = ?, updated_at = ?, resolved_at = ?
		 WHERE id = ?`,
		report.Status,
		report.AssignedTo,
		report.Resolution,
		report.Description,
		report.UpdatedAt,
		report.ResolvedAt,
		report.ID,
	).Error
}

func (r *repo) FindReport(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Report, error) {
	var report domain.Report
	err := db.WithContext(ctx).Raw(
		`SELECT `+reportColumns+` FROM reports WHERE id = ?`,
		id,
	).Scan(&report).Error
	if err != nil {
		return nil, err
	}
	if report.ID == 0 {
		return nil, nil
	}
	return &report, nil
}

func (r *repo) ListReports(ctx context.Context, db *gorm.DB, filter domain.ReportFilter) ([]domain.Report, error) {
	conditions := []string{"guild_id = ?"}
	args := []any{filter.GuildID}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.AssignedTo != nil {
		conditions = append(conditions, "assigned_to = ?")
		args = append(args, *filter.AssignedTo)
	}

	var reports []domain.Report
	err := db.WithContext(ctx).Raw(
		`SELECT `+reportColumns+` FROM reports
		 WHERE `+strings.Join(conditions, " AND ")+`
		 ORDER BY created_at DESC, id DESC`,
		args...,
	).Scan(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

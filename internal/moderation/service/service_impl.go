package service

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/moderation/domain"
	"github.com/smallbiznis/botcentral/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("moderation.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) RecordLog(ctx context.Context, req domain.RecordLogRequest) (*domain.ModerationLog, error) {
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if _, ok := domain.LogActions[action]; !ok {
		return nil, domain.ErrInvalidAction
	}
	severity, err := normalizeSeverity(req.Severity, domain.SeverityLow)
	if err != nil {
		return nil, err
	}
	if req.Duration != nil {
		if action != domain.ActionMute && action != domain.ActionBan {
			return nil, domain.ErrInvalidDuration
		}
		if *req.Duration <= 0 {
			return nil, domain.ErrInvalidDuration
		}
	}

	entry := &domain.ModerationLog{
		ID:           s.genID.Generate(),
		Action:       action,
		TargetUserID: trimmed(req.TargetUserID),
		ModeratorID:  trimmed(req.ModeratorID),
		Reason:       req.Reason,
		Details:      req.Details,
		Severity:     severity,
		GuildID:      trimmed(req.GuildID),
		ChannelID:    trimmed(req.ChannelID),
		MessageID:    trimmed(req.MessageID),
		Duration:     req.Duration,
		IsActive:     true,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.InsertLog(ctx, s.db, entry); err != nil {
		return nil, err
	}

	guildID := ""
	if entry.GuildID != nil {
		guildID = *entry.GuildID
	}
	s.metrics.RecordModerationAction(ctx, guildID, action, severity)
	return entry, nil
}

func (s *Service) QueryLogs(ctx context.Context, req domain.QueryLogsRequest) ([]domain.ModerationLog, error) {
	filter := domain.LogFilter{
		GuildID:        optional(req.GuildID),
		TargetUserID:   optional(req.TargetUserID),
		ModeratorID:    optional(req.ModeratorID),
		Limit:          clampLimit(req.Limit),
		IncludeHistory: req.IncludeHistory,
	}

	entries, err := s.repo.QueryLogs(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.ModerationLog{}
	}
	return entries, nil
}

func (s *Service) GetLog(ctx context.Context, id string) (*domain.ModerationLog, error) {
	logID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.FindLog(ctx, s.db, logID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

func (s *Service) RevertLog(ctx context.Context, id string) (*domain.ModerationLog, error) {
	logID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.DeactivateLog(ctx, s.db, logID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}
	return s.GetLog(ctx, id)
}

func (s *Service) ListFilters(ctx context.Context, guildID *string) ([]domain.ContentFilter, error) {
	filters, err := s.repo.ListFilters(ctx, s.db, trimmed(guildID), false)
	if err != nil {
		return nil, err
	}
	if filters == nil {
		filters = []domain.ContentFilter{}
	}
	return filters, nil
}

func (s *Service) GetFilter(ctx context.Context, id string) (*domain.ContentFilter, error) {
	filterID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	filter, err := s.repo.FindFilter(ctx, s.db, filterID)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return nil, domain.ErrNotFound
	}
	return filter, nil
}

func (s *Service) CreateFilter(ctx context.Context, createdBy snowflake.ID, req domain.CreateFilterRequest) (*domain.ContentFilter, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	filterType := strings.ToLower(strings.TrimSpace(req.FilterType))
	if _, ok := domain.FilterTypes[filterType]; !ok {
		return nil, domain.ErrInvalidFilterType
	}
	pattern, err := validatePattern(filterType, req.Pattern)
	if err != nil {
		return nil, err
	}
	action, err := normalizeFilterAction(req.Action)
	if err != nil {
		return nil, err
	}
	severity, err := normalizeSeverity(req.Severity, domain.SeverityMedium)
	if err != nil {
		return nil, err
	}
	var guildID *string
	if req.GuildID != nil {
		if guildID = trimmed(req.GuildID); guildID == nil {
			return nil, domain.ErrInvalidGuild
		}
	}

	now := s.clock.Now()
	filter := &domain.ContentFilter{
		ID:         s.genID.Generate(),
		Name:       name,
		FilterType: filterType,
		Pattern:    pattern,
		Action:     action,
		Severity:   severity,
		IsActive:   true,
		GuildID:    guildID,
		Whitelist:  normalizeList(req.Whitelist),
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertFilter(ctx, s.db, filter); err != nil {
		return nil, err
	}
	return filter, nil
}

func (s *Service) UpdateFilter(ctx context.Context, id string, req domain.UpdateFilterRequest) (*domain.ContentFilter, error) {
	filter, err := s.GetFilter(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		filter.Name = name
	}
	if req.Pattern != nil {
		pattern, err := validatePattern(filter.FilterType, *req.Pattern)
		if err != nil {
			return nil, err
		}
		filter.Pattern = pattern
	}
	if req.Action != nil {
		action, err := normalizeFilterAction(*req.Action)
		if err != nil {
			return nil, err
		}
		filter.Action = action
	}
	if req.Severity != nil {
		severity, err := normalizeSeverity(*req.Severity, "")
		if err != nil {
			return nil, err
		}
		filter.Severity = severity
	}
	if req.IsActive != nil {
		filter.IsActive = *req.IsActive
	}
	if req.Whitelist != nil {
		filter.Whitelist = normalizeList(req.Whitelist)
	}
	filter.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateFilter(ctx, s.db, filter); err != nil {
		return nil, err
	}
	return filter, nil
}

func (s *Service) DeleteFilter(ctx context.Context, id string) error {
	filterID, err := parseID(id)
	if err != nil {
		return err
	}
	affected, err := s.repo.DeleteFilter(ctx, s.db, filterID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// EffectiveFilters returns the active filters that apply in a guild. A guild
// filter replaces every global filter of the same type.
func (s *Service) EffectiveFilters(ctx context.Context, guildID string) ([]domain.ContentFilter, error) {
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return nil, domain.ErrInvalidGuild
	}

	candidates, err := s.repo.ListActiveFiltersForGuild(ctx, s.db, guildID)
	if err != nil {
		return nil, err
	}

	overridden := map[string]struct{}{}
	for _, f := range candidates {
		if f.GuildID != nil {
			overridden[f.FilterType] = struct{}{}
		}
	}

	out := make([]domain.ContentFilter, 0, len(candidates))
	for _, f := range candidates {
		if f.GuildID == nil {
			if _, ok := overridden[f.FilterType]; ok {
				continue
			}
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *Service) ListReports(ctx context.Context, req domain.ListReportsRequest) ([]domain.Report, error) {
	guildID := strings.TrimSpace(req.GuildID)
	if guildID == "" {
		return nil, domain.ErrInvalidGuild
	}
	filter := domain.ReportFilter{
		GuildID:    guildID,
		AssignedTo: optional(req.AssignedTo),
	}
	if status := optional(req.Status); status != nil {
		normalized := strings.ToLower(*status)
		if _, ok := domain.ReportStatuses[normalized]; !ok {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = &normalized
	}

	reports, err := s.repo.ListReports(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	return reports, nil
}

func (s *Service) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	reportID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	report, err := s.repo.FindReport(ctx, s.db, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, domain.ErrNotFound
	}
	return report, nil
}

func (s *Service) CreateReport(ctx context.Context, req domain.CreateReportRequest) (*domain.Report, error) {
	guildID := strings.TrimSpace(req.GuildID)
	if guildID == "" {
		return nil, domain.ErrInvalidGuild
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if _, ok := domain.ReportContentTypes[contentType]; !ok {
		return nil, domain.ErrInvalidContentType
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, domain.ErrInvalidReason
	}

	now := s.clock.Now()
	report := &domain.Report{
		ID:             s.genID.Generate(),
		ReportedUserID: trimmed(req.ReportedUserID),
		ReporterUserID: trimmed(req.ReporterUserID),
		ContentType:    contentType,
		ContentID:      trimmed(req.ContentID),
		Reason:         reason,
		Description:    req.Description,
		Status:         domain.ReportPending,
		GuildID:        guildID,
		ChannelID:      trimmed(req.ChannelID),
		MessageID:      trimmed(req.MessageID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertReport(ctx, s.db, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) UpdateReport(ctx context.Context, id string, req domain.UpdateReportRequest) (*domain.Report, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if req.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*req.Status))
		if _, ok := domain.ReportStatuses[status]; !ok {
			return nil, domain.ErrInvalidStatus
		}
		switch {
		case domain.Closed(status) && !domain.Closed(report.Status):
			report.ResolvedAt = &now
		case !domain.Closed(status):
			report.ResolvedAt = nil
		}
		report.Status = status
	}
	if req.AssignedTo != nil {
		report.AssignedTo = trimmed(req.AssignedTo)
	}
	if req.Resolution != nil {
		report.Resolution = req.Resolution
	}
	if req.Description != nil {
		report.Description = req.Description
	}
	report.UpdatedAt = now

	if err := s.repo.UpdateReport(ctx, s.db, report); err != nil {
		return nil, err
	}
	return report, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return domain.DefaultQueryLimit
	case limit > domain.MaxQueryLimit:
		return domain.MaxQueryLimit
	default:
		return limit
	}
}

func normalizeSeverity(value, fallback string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" && fallback != "" {
		return fallback, nil
	}
	if _, ok := domain.Severities[value]; !ok {
		return "", domain.ErrInvalidSeverity
	}
	return value, nil
}

func normalizeFilterAction(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "warn", nil
	}
	if _, ok := domain.FilterActions[value]; !ok {
		return "", domain.ErrInvalidAction
	}
	return value, nil
}

func validatePattern(filterType, pattern string) (string, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "", domain.ErrInvalidPattern
	}
	if filterType == domain.FilterRegex {
		if _, err := regexp.Compile(pattern); err != nil {
			return "", domain.ErrInvalidPattern
		}
	}
	return pattern, nil
}

func normalizeList(values []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	return optional(*value)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

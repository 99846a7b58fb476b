package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/loggingconfig/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("loggingconfig.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context, guildID string) ([]domain.LoggingConfig, error) {
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return nil, domain.ErrInvalidGuild
	}
	configs, err := s.repo.ListByGuild(ctx, s.db, guildID)
	if err != nil {
		return nil, err
	}
	if configs == nil {
		configs = []domain.LoggingConfig{}
	}
	return configs, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.LoggingConfig, error) {
	configID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	cfg, err := s.repo.FindByID(ctx, s.db, configID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrNotFound
	}
	return cfg, nil
}

func (s *Service) Create(ctx context.Context, createdBy snowflake.ID, req domain.CreateRequest) (*domain.LoggingConfig, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	guildID := strings.TrimSpace(req.GuildID)
	if guildID == "" {
		return nil, domain.ErrInvalidGuild
	}
	channelID := strings.TrimSpace(req.ChannelID)
	if channelID == "" {
		return nil, domain.ErrInvalidChannel
	}
	logType, err := normalizeLogType(req.LogType)
	if err != nil {
		return nil, err
	}
	webhook, err := normalizeWebhook(req.WebhookURL)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cfg := &domain.LoggingConfig{
		ID:             s.genID.Generate(),
		Name:           name,
		GuildID:        guildID,
		ChannelID:      channelID,
		ChannelName:    req.ChannelName,
		LogType:        logType,
		IsActive:       true,
		WebhookURL:     webhook,
		FilterSettings: filterSettings(req.FilterSettings),
		Description:    req.Description,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.LoggingConfig, error) {
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		cfg.Name = name
	}
	if req.ChannelID != nil {
		channelID := strings.TrimSpace(*req.ChannelID)
		if channelID == "" {
			return nil, domain.ErrInvalidChannel
		}
		cfg.ChannelID = channelID
	}
	if req.ChannelName != nil {
		cfg.ChannelName = req.ChannelName
	}
	if req.LogType != nil {
		if cfg.LogType, err = normalizeLogType(*req.LogType); err != nil {
			return nil, err
		}
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if req.WebhookURL != nil {
		// An empty string clears the webhook.
		if cfg.WebhookURL, err = normalizeWebhook(req.WebhookURL); err != nil {
			return nil, err
		}
	}
	if req.FilterSettings != nil {
		cfg.FilterSettings = filterSettings(req.FilterSettings)
	}
	if req.Description != nil {
		cfg.Description = req.Description
	}
	cfg.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	configID, err := parseID(id)
	if err != nil {
		return err
	}
	affected, err := s.repo.Delete(ctx, s.db, configID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func normalizeLogType(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := domain.LogTypes[value]; !ok {
		return "", domain.ErrInvalidLogType
	}
	return value, nil
}

// normalizeWebhook accepts absolute https URLs only.
func normalizeWebhook(value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	raw := strings.TrimSpace(*value)
	if raw == "" {
		return nil, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return nil, domain.ErrInvalidWebhook
	}
	return &raw, nil
}

func filterSettings(values map[string]any) datatypes.JSONMap {
	if values == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(values)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

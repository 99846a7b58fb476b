package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/audit/masking"
	"github.com/smallbiznis/botcentral/internal/bot/domain"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/config"
	"github.com/smallbiznis/botcentral/internal/secretbox"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Config config.Config
	Box    *secretbox.Box `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	box      *secretbox.Box
	clientID string
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("bot.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		box:      p.Box,
		clientID: p.Config.Discord.ClientID,
	}
}

func (s *Service) List(ctx context.Context, ownerID snowflake.ID) ([]domain.Bot, error) {
	bots, err := s.repo.ListByOwner(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}
	if bots == nil {
		bots = []domain.Bot{}
	}
	return bots, nil
}

// Get returns the owner's bot. Bots of other users and deleted bots are
// reported as not found.
func (s *Service) Get(ctx context.Context, ownerID snowflake.ID, id string) (*domain.Bot, error) {
	botID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	bot, err := s.repo.FindByID(ctx, s.db, botID)
	if err != nil {
		return nil, err
	}
	if bot == nil || bot.OwnerID != ownerID || !bot.IsActive {
		return nil, domain.ErrNotFound
	}
	return bot, nil
}

func (s *Service) Create(ctx context.Context, ownerID snowflake.ID, premium bool, req domain.CreateRequest) (*domain.Bot, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	botType, err := normalizeType(req.BotType)
	if err != nil {
		return nil, err
	}
	if (botType == domain.TypeCustom || req.IsPremium) && !premium {
		return nil, domain.ErrPremiumRequired
	}
	prefix, err := normalizePrefix(req.Prefix)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	bot := &domain.Bot{
		ID:          s.genID.Generate(),
		OwnerID:     ownerID,
		Name:        name,
		Description: req.Description,
		AvatarURL:   req.AvatarURL,
		Status:      domain.StatusOffline,
		IsActive:    true,
		IsPremium:   req.IsPremium,
		BotType:     botType,
		ServerType:  req.ServerType,
		Features:    features(req.Features),
		Prefix:      prefix,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Token != nil {
		if bot.TokenSealed, bot.TokenHint, err = s.seal(bot.ID.String(), *req.Token); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Insert(ctx, s.db, bot); err != nil {
		return nil, err
	}
	return bot, nil
}

func (s *Service) Update(ctx context.Context, ownerID snowflake.ID, premium bool, id string, req domain.UpdateRequest) (*domain.Bot, error) {
	bot, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		bot.Name = name
	}
	if req.Description != nil {
		bot.Description = req.Description
	}
	if req.Token != nil {
		if bot.TokenSealed, bot.TokenHint, err = s.seal(bot.ID.String(), *req.Token); err != nil {
			return nil, err
		}
	}
	if req.AvatarURL != nil {
		bot.AvatarURL = req.AvatarURL
	}
	if req.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*req.Status))
		if _, ok := domain.Statuses[status]; !ok {
			return nil, domain.ErrInvalidStatus
		}
		bot.Status = status
	}
	if req.ServerType != nil {
		bot.ServerType = req.ServerType
	}
	if req.Features != nil {
		bot.Features = features(*req.Features)
	}
	if req.Prefix != nil {
		if bot.Prefix, err = normalizePrefix(*req.Prefix); err != nil {
			return nil, err
		}
	}
	if req.IsActive != nil {
		bot.IsActive = *req.IsActive
	}
	if req.IsPremium != nil {
		if *req.IsPremium && !premium {
			return nil, domain.ErrPremiumRequired
		}
		bot.IsPremium = *req.IsPremium
	}
	bot.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, bot); err != nil {
		return nil, err
	}
	return bot, nil
}

// Delete deactivates the bot. The row is kept for its audit trail.
func (s *Service) Delete(ctx context.Context, ownerID snowflake.ID, id string) error {
	bot, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	bot.IsActive = false
	bot.Status = domain.StatusOffline
	bot.UpdatedAt = s.clock.Now()
	return s.repo.Update(ctx, s.db, bot)
}

func (s *Service) Stats(ctx context.Context, ownerID snowflake.ID) (domain.Stats, error) {
	return s.repo.StatsByOwner(ctx, s.db, ownerID)
}

// StandardConfig reports the standard bot. Before a token is stored the
// defaults and the Discord application id from configuration are returned.
func (s *Service) StandardConfig(ctx context.Context) (*domain.StandardConfig, error) {
	bot, err := s.repo.FindStandard(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if bot == nil {
		return &domain.StandardConfig{
			Name:     domain.DefaultStandardName,
			ClientID: s.clientID,
			IsActive: true,
			Version:  domain.DefaultStandardVersion,
		}, nil
	}
	return standardConfig(bot), nil
}

func (s *Service) SetStandardToken(ctx context.Context, req domain.StandardTokenRequest) (*domain.StandardConfig, error) {
	var out *domain.StandardConfig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bot, err := s.repo.FindStandard(ctx, tx)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		insert := bot == nil
		if insert {
			bot = &domain.StandardBot{
				ID:        s.genID.Generate(),
				Name:      domain.DefaultStandardName,
				ClientID:  s.clientID,
				IsActive:  true,
				Version:   domain.DefaultStandardVersion,
				CreatedAt: now,
			}
		}
		if req.ClientID != nil {
			bot.ClientID = strings.TrimSpace(*req.ClientID)
		}
		if bot.ClientID == "" {
			return domain.ErrInvalidClientID
		}
		if bot.TokenSealed, bot.TokenHint, err = s.seal(bot.ID.String(), req.Token); err != nil {
			return err
		}
		bot.UpdatedAt = now

		if insert {
			err = s.repo.InsertStandard(ctx, tx, bot)
		} else {
			err = s.repo.UpdateStandard(ctx, tx, bot)
		}
		if err != nil {
			return err
		}
		out = standardConfig(bot)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("standard bot token updated", zap.String("token_hint", out.TokenHint))
	return out, nil
}

func (s *Service) seal(owner string, token string) (datatypes.JSON, string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, "", domain.ErrInvalidToken
	}
	sealed, err := s.box.Seal(owner, token)
	if err != nil {
		return nil, "", err
	}
	return sealed, masking.MaskSecret(token), nil
}

func standardConfig(bot *domain.StandardBot) *domain.StandardConfig {
	updatedAt := bot.UpdatedAt
	return &domain.StandardConfig{
		Name:            bot.Name,
		ClientID:        bot.ClientID,
		IsActive:        bot.IsActive,
		Version:         bot.Version,
		TokenConfigured: len(bot.TokenSealed) > 0,
		TokenHint:       bot.TokenHint,
		UpdatedAt:       &updatedAt,
	}
}

func normalizeType(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return domain.TypeStandard, nil
	}
	if _, ok := domain.Types[value]; !ok {
		return "", domain.ErrInvalidType
	}
	return value, nil
}

func normalizePrefix(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.DefaultPrefix, nil
	}
	if strings.ContainsAny(value, " \t\n") {
		return "", domain.ErrInvalidPrefix
	}
	return value, nil
}

func features(values []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/botcentral/internal/audit/domain"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/config"
	"github.com/smallbiznis/botcentral/internal/discord/domain"
	obstracing "github.com/smallbiznis/botcentral/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var defaultScopes = []string{"identify", "guilds"}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Repo       domain.Repository
	HTTPClient *http.Client        `optional:"true"`
	AuditSvc   auditdomain.Service `optional:"true"`
	Nonces     domain.NonceStore   `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	auditSvc    auditdomain.Service
	nonces      domain.NonceStore
	httpClient  *http.Client
	oauth       *oauth2.Config
	apiURL      string
	stateSecret []byte
	stateTTL    time.Duration
	enabled     bool
}

func New(p Params) domain.Service {
	cfg := p.Config.Discord
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &Service{
		db:         p.DB,
		log:        p.Log.Named("discord.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		auditSvc:   p.AuditSvc,
		nonces:     p.Nonces,
		httpClient: obstracing.WrapHTTPClient(client),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       defaultScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL:      strings.TrimRight(cfg.APIURL, "/"),
		stateSecret: []byte(cfg.StateSecret),
		stateTTL:    ttl,
		enabled:     cfg.Enabled(),
	}
}

func (s *Service) AuthURL(ctx context.Context, userID snowflake.ID) (string, error) {
	if !s.enabled {
		return "", domain.ErrNotConfigured
	}
	if userID <= 0 {
		return "", domain.ErrInvalidState
	}
	state, err := s.signState(userID)
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

func (s *Service) VerifyState(ctx context.Context, state string) (snowflake.ID, error) {
	if !s.enabled {
		return 0, domain.ErrNotConfigured
	}
	return s.consumeState(ctx, state)
}

func (s *Service) Connect(ctx context.Context, userID snowflake.ID, code string) (*domain.Connection, error) {
	if !s.enabled {
		return nil, domain.ErrNotConfigured
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.oauth.Exchange(exchangeCtx, code)
	if err != nil {
		s.log.Warn("discord code exchange failed", zap.Error(err))
		return nil, domain.ErrUpstream
	}

	var profile discordUser
	if err := s.getJSON(ctx, token.AccessToken, "/users/@me", &profile); err != nil {
		s.log.Warn("discord profile fetch failed", zap.Error(err))
		return nil, domain.ErrUpstream
	}
	if strings.TrimSpace(profile.ID) == "" {
		return nil, domain.ErrUpstream
	}
	var guilds []discordGuild
	if err := s.getJSON(ctx, token.AccessToken, "/users/@me/guilds", &guilds); err != nil {
		s.log.Warn("discord guild fetch failed", zap.Error(err))
		return nil, domain.ErrUpstream
	}

	now := s.clock.Now()
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = now.Add(7 * 24 * time.Hour)
	}

	var stored *domain.Connection
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conn := &domain.Connection{
			ID:                   s.genID.Generate(),
			UserID:               userID,
			DiscordUserID:        profile.ID,
			DiscordUsername:      profile.Username,
			DiscordDiscriminator: profile.Discriminator,
			DiscordAvatar:        profile.Avatar,
			AccessToken:          token.AccessToken,
			RefreshToken:         token.RefreshToken,
			TokenExpiresAt:       expiresAt.UTC(),
			Scopes:               datatypes.JSONSlice[string](grantedScopes(token)),
			IsActive:             true,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := s.repo.UpsertConnection(ctx, tx, conn); err != nil {
			return err
		}

		for _, g := range guilds {
			if strings.TrimSpace(g.ID) == "" {
				continue
			}
			features := g.Features
			if features == nil {
				features = []string{}
			}
			perms := string(g.Permissions)
			if perms == "" {
				perms = "0"
			}
			server := &domain.Server{
				ID:          s.genID.Generate(),
				UserID:      userID,
				ServerID:    g.ID,
				ServerName:  g.Name,
				ServerIcon:  g.Icon,
				ServerOwner: g.Owner,
				Permissions: perms,
				Features:    datatypes.JSONSlice[string](features),
				MemberCount: g.ApproximateMemberCount,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.repo.UpsertServer(ctx, tx, server); err != nil {
				return err
			}
		}

		found, err := s.repo.FindConnection(ctx, tx, userID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrNotFound
		}
		stored = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, "discord.connected", map[string]any{
		"discord_user_id": profile.ID,
		"guild_count":     len(guilds),
	})
	return stored, nil
}

func (s *Service) GetConnection(ctx context.Context, userID snowflake.ID) (*domain.Connection, error) {
	conn, err := s.repo.FindConnection(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, domain.ErrNotFound
	}
	return conn, nil
}

func (s *Service) ListServers(ctx context.Context, userID snowflake.ID) ([]domain.Server, error) {
	servers, err := s.repo.ListServers(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if servers == nil {
		servers = []domain.Server{}
	}
	return servers, nil
}

func (s *Service) SelectServer(ctx context.Context, userID snowflake.ID, serverID string) (*domain.Server, error) {
	serverID = strings.TrimSpace(serverID)
	if serverID == "" {
		return nil, domain.ErrInvalidServer
	}

	var selected *domain.Server
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindServer(ctx, tx, userID, serverID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if err := s.repo.ClearSelected(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := s.repo.SelectServer(ctx, tx, userID, serverID); err != nil {
			return err
		}
		existing.IsSelected = true
		selected = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return selected, nil
}

func (s *Service) Disconnect(ctx context.Context, userID snowflake.ID) error {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteServers(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		affected, err = s.repo.DeleteConnection(ctx, tx, userID)
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	s.audit(ctx, userID, "discord.disconnected", nil)
	return nil
}

// IsGuildAdmin reports whether the user's synced guild row marks them as owner
// or administrator.
func (s *Service) IsGuildAdmin(ctx context.Context, userID snowflake.ID, guildID string) (bool, error) {
	guildID = strings.TrimSpace(guildID)
	if userID <= 0 || guildID == "" {
		return false, nil
	}
	server, err := s.repo.FindServer(ctx, s.db, userID, guildID)
	if err != nil {
		return false, err
	}
	if server == nil {
		return false, nil
	}
	return server.CanAdminister(), nil
}

func (s *Service) audit(ctx context.Context, userID snowflake.ID, action string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actorID := userID.String()
	if err := s.auditSvc.AuditLog(ctx, nil, string(auditdomain.ActorTypeUser), &actorID, action, "discord_connection", &actorID, metadata); err != nil {
		s.log.Warn("failed to write discord audit log", zap.Error(err))
	}
}

func grantedScopes(token *oauth2.Token) []string {
	if raw, ok := token.Extra("scope").(string); ok && strings.TrimSpace(raw) != "" {
		return strings.Fields(raw)
	}
	return append([]string(nil), defaultScopes...)
}

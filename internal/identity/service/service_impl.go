package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	accesstokendomain "github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	authdomain "github.com/smallbiznis/botcentral/internal/auth/domain"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/config"
	"github.com/smallbiznis/botcentral/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	Sessions     authdomain.Service
	Tokens       accesstokendomain.Service
	Users        domain.UserSource
	Entitlements *config.EntitlementConfigHolder
}

type Service struct {
	log          *zap.Logger
	clock        clock.Clock
	sessions     authdomain.Service
	tokens       accesstokendomain.Service
	users        domain.UserSource
	entitlements *config.EntitlementConfigHolder
}

func New(p Params) domain.Resolver {
	return &Service{
		log:          p.Log.Named("identity.service"),
		clock:        p.Clock,
		sessions:     p.Sessions,
		tokens:       p.Tokens,
		users:        p.Users,
		entitlements: p.Entitlements,
	}
}

// NewUserSource exposes the auth service as the owner lookup.
func NewUserSource(auth authdomain.Service) domain.UserSource {
	return auth
}

func (s *Service) Resolve(ctx context.Context, creds domain.Credentials) (*domain.Principal, error) {
	if raw := strings.TrimSpace(creds.SessionToken); raw != "" {
		principal, err := s.resolveSession(ctx, raw)
		switch {
		case err == nil:
			return principal, nil
		case !errors.Is(err, domain.ErrUnauthenticated):
			return nil, err
		}
	}

	if raw := strings.TrimSpace(creds.BearerToken); raw != "" {
		return s.resolveToken(ctx, raw)
	}

	return nil, domain.ErrUnauthenticated
}

func (s *Service) resolveSession(ctx context.Context, raw string) (*domain.Principal, error) {
	session, err := s.sessions.Authenticate(ctx, raw)
	if err != nil {
		if isSessionRejection(err) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	user, err := s.loadUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	return &domain.Principal{
		UserID:      user.ID,
		AuthMethod:  domain.AuthMethodSession,
		Permissions: s.Entitlement(user),
	}, nil
}

func (s *Service) resolveToken(ctx context.Context, raw string) (*domain.Principal, error) {
	token, err := s.tokens.Validate(ctx, raw)
	if err != nil {
		if errors.Is(err, accesstokendomain.ErrInvalidToken) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	user, err := s.loadUser(ctx, token.UserID)
	if err != nil {
		return nil, err
	}

	tokenID := token.ID
	return &domain.Principal{
		UserID:      user.ID,
		AuthMethod:  domain.AuthMethodToken,
		Permissions: intersect(token.Permissions, s.Entitlement(user)),
		TokenID:     &tokenID,
		TokenHint:   token.SecretHint,
	}, nil
}

func (s *Service) loadUser(ctx context.Context, id snowflake.ID) (*authdomain.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

// Entitlement returns the capabilities the user's subscription grants right now.
func (s *Service) Entitlement(user *authdomain.User) []string {
	if user == nil || s.entitlements == nil {
		return []string{}
	}
	cfg := s.entitlements.Get()
	if !cfg.StatusActive(user.SubscriptionStatus) {
		return []string{}
	}
	if user.SubscriptionExpiresAt != nil && !user.SubscriptionExpiresAt.After(s.clock.Now()) {
		return []string{}
	}
	caps := cfg.Capabilities(user.SubscriptionTier)
	if caps == nil {
		return []string{}
	}
	return caps
}

func isSessionRejection(err error) bool {
	return errors.Is(err, authdomain.ErrInvalidSession) ||
		errors.Is(err, authdomain.ErrSessionExpired) ||
		errors.Is(err, authdomain.ErrSessionRevoked) ||
		errors.Is(err, authdomain.ErrSessionNotFound)
}

func intersect(granted, allowed []string) []string {
	out := make([]string, 0, len(granted))
	for _, g := range granted {
		for _, a := range allowed {
			if g == a {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

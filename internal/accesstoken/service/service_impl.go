package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	"github.com/smallbiznis/botcentral/internal/audit/masking"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/observability/metrics"
	"github.com/smallbiznis/botcentral/internal/secretbox"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	secretPrefix      = "bat_"
	secretBytes       = 32
	lastUsedTimeout   = 5 * time.Second
	validationOK      = "valid"
	validationInvalid = "invalid"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
	Box     *secretbox.Box   `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
	box     *secretbox.Box
}

func New(p Params) domain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("accesstoken.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
		box:     p.Box,
	}
}

func (s *Service) Issue(ctx context.Context, userID snowflake.ID, req domain.CreateRequest) (*domain.SecretResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	permissions := req.Permissions
	if permissions == nil {
		permissions = []string{domain.PermissionPremium}
	}
	permissions, err := normalizePermissions(permissions)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, domain.ErrInvalidExpiry
	}

	plain, err := generateSecret()
	if err != nil {
		return nil, err
	}

	token := &domain.AccessToken{
		ID:          s.genID.Generate(),
		UserID:      userID,
		SecretHash:  domain.HashSecret(plain),
		SecretHint:  masking.MaskSecret(plain),
		Name:        name,
		Permissions: datatypes.JSONSlice[string](permissions),
		ExpiresAt:   utcPtr(req.ExpiresAt),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if s.box.Enabled() {
		sealed, err := s.box.Seal(token.ID.String(), plain)
		if err != nil {
			return nil, err
		}
		token.SecretSealed = sealed
	}
	if err := s.repo.Insert(ctx, s.db, token); err != nil {
		return nil, err
	}

	s.log.Info("access token issued",
		zap.String("user_id", userID.String()),
		zap.String("token_id", token.ID.String()),
	)

	resp := toResponse(token)
	resp.Token = plain
	return &domain.SecretResponse{Token: resp, Secret: plain}, nil
}

func (s *Service) Validate(ctx context.Context, secret string) (*domain.AccessToken, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		s.metrics.RecordTokenValidation(ctx, validationInvalid)
		return nil, domain.ErrInvalidToken
	}

	token, err := s.repo.FindBySecretHash(ctx, s.db, domain.HashSecret(secret))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if token == nil || !token.ValidAt(now) {
		s.metrics.RecordTokenValidation(ctx, validationInvalid)
		return nil, domain.ErrInvalidToken
	}
	s.metrics.RecordTokenValidation(ctx, validationOK)

	s.touchLastUsed(ctx, token.ID, now)
	return token, nil
}

// touchLastUsed records usage without holding up the caller.
func (s *Service) touchLastUsed(ctx context.Context, id snowflake.ID, at time.Time) {
	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, lastUsedTimeout)
		defer cancel()

		if err := s.repo.TouchLastUsed(ctx, s.db, id, at); err != nil {
			s.log.Warn("failed to update token last_used_at",
				zap.String("token_id", id.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *Service) List(ctx context.Context, userID snowflake.ID) ([]domain.Response, error) {
	items, err := s.repo.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		item := toResponse(&items[i])
		item.Token = s.reveal(&items[i])
		resp = append(resp, item)
	}
	return resp, nil
}

// reveal returns the plain secret of token, or "" when it cannot be opened.
func (s *Service) reveal(token *domain.AccessToken) string {
	if !s.box.Enabled() || len(token.SecretSealed) == 0 {
		return ""
	}
	plain, err := s.box.Open(token.ID.String(), token.SecretSealed)
	if err != nil {
		s.log.Warn("failed to open sealed token secret",
			zap.String("token_id", token.ID.String()),
			zap.Error(err),
		)
		return ""
	}
	return plain
}

func (s *Service) Update(ctx context.Context, userID snowflake.ID, id string, req domain.UpdateRequest) (*domain.Response, error) {
	tokenID, err := parseTokenID(id)
	if err != nil {
		return nil, err
	}

	token, err := s.repo.FindByID(ctx, s.db, userID, tokenID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, domain.ErrNotFound
	}

	now := s.clock.Now()
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		token.Name = name
	}
	if req.Permissions != nil {
		permissions, err := normalizePermissions(req.Permissions)
		if err != nil {
			return nil, err
		}
		token.Permissions = datatypes.JSONSlice[string](permissions)
	}
	if req.ExpiresAt != nil {
		if !req.ExpiresAt.After(now) {
			return nil, domain.ErrInvalidExpiry
		}
		token.ExpiresAt = utcPtr(req.ExpiresAt)
	}
	if req.IsActive != nil {
		token.IsActive = *req.IsActive
	}
	token.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, token); err != nil {
		return nil, err
	}

	resp := toResponse(token)
	resp.Token = s.reveal(token)
	return &resp, nil
}

func (s *Service) Revoke(ctx context.Context, userID snowflake.ID, id string) error {
	tokenID, err := parseTokenID(id)
	if err != nil {
		return err
	}

	token, err := s.repo.FindByID(ctx, s.db, userID, tokenID)
	if err != nil {
		return err
	}
	if token == nil {
		return domain.ErrNotFound
	}

	token.IsActive = false
	token.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, token); err != nil {
		return err
	}

	s.log.Info("access token revoked",
		zap.String("user_id", userID.String()),
		zap.String("token_id", tokenID.String()),
	)
	return nil
}

func (s *Service) Delete(ctx context.Context, userID snowflake.ID, id string) error {
	tokenID, err := parseTokenID(id)
	if err != nil {
		return err
	}

	affected, err := s.repo.Delete(ctx, s.db, userID, tokenID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func normalizePermissions(values []string) ([]string, error) {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if _, ok := domain.KnownPermissions[value]; !ok {
			return nil, domain.ErrInvalidPermission
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out, nil
}

func parseTokenID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidTokenID
	}
	return id, nil
}

func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return secretPrefix + hex.EncodeToString(buf), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func toResponse(token *domain.AccessToken) domain.Response {
	permissions := []string(token.Permissions)
	if permissions == nil {
		permissions = []string{}
	}
	return domain.Response{
		ID:          token.ID.String(),
		Name:        token.Name,
		TokenHint:   token.SecretHint,
		Permissions: permissions,
		IsActive:    token.IsActive,
		ExpiresAt:   token.ExpiresAt,
		LastUsedAt:  token.LastUsedAt,
		CreatedAt:   token.CreatedAt,
		UpdatedAt:   token.UpdatedAt,
	}
}

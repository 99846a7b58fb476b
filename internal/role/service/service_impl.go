package service

import (
	"context"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/role/domain"
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
		log:   p.Log.Named("role.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) ListRoles(ctx context.Context, req domain.ListRequest) ([]domain.UserRole, error) {
	var filter domain.ListFilter
	if v := strings.TrimSpace(req.UserID); v != "" {
		userID, err := parseID(v, domain.ErrInvalidUserID)
		if err != nil {
			return nil, err
		}
		filter.UserID = &userID
	}
	if v := strings.TrimSpace(req.GuildID); v != "" {
		filter.GuildID = &v
	}

	roles, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []domain.UserRole{}
	}
	return roles, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.UserRole, error) {
	roleID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	role, err := s.repo.FindByID(ctx, s.db, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, domain.ErrNotFound
	}
	return role, nil
}

func (s *Service) Create(ctx context.Context, assignedBy snowflake.ID, req domain.CreateRequest) (*domain.UserRole, error) {
	userID, err := parseID(req.UserID, domain.ErrInvalidUserID)
	if err != nil {
		return nil, err
	}
	roleName, err := normalizeRole(req.Role)
	if err != nil {
		return nil, err
	}

	var guildID *string
	if req.GuildID != nil {
		v := strings.TrimSpace(*req.GuildID)
		if v == "" {
			return nil, domain.ErrInvalidGuild
		}
		guildID = &v
	}

	role := &domain.UserRole{
		ID:          s.genID.Generate(),
		UserID:      userID,
		Role:        roleName,
		GuildID:     guildID,
		Permissions: normalizePermissions(req.Permissions),
		AssignedBy:  assignedBy,
		AssignedAt:  s.clock.Now(),
		ExpiresAt:   req.ExpiresAt,
		IsActive:    true,
	}
	if err := s.repo.Insert(ctx, s.db, role); err != nil {
		return nil, err
	}

	s.log.Info("role assigned",
		zap.String("user_id", userID.String()),
		zap.String("role", roleName),
		zap.Stringp("guild_id", guildID),
	)
	return role, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.UserRole, error) {
	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Role != nil {
		name, err := normalizeRole(*req.Role)
		if err != nil {
			return nil, err
		}
		role.Role = name
	}
	if req.Permissions != nil {
		role.Permissions = normalizePermissions(req.Permissions)
	}
	if req.ExpiresAt != nil {
		expiresAt := req.ExpiresAt.UTC()
		role.ExpiresAt = &expiresAt
	}
	if req.IsActive != nil {
		role.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, s.db, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	roleID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return err
	}
	affected, err := s.repo.Delete(ctx, s.db, roleID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ExpireLapsed flips up to limit lapsed grants to inactive and returns them.
func (s *Service) ExpireLapsed(ctx context.Context, limit int) ([]domain.UserRole, error) {
	if limit <= 0 {
		return nil, nil
	}

	var expired []domain.UserRole
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lapsed, err := s.repo.ListLapsed(ctx, tx, s.clock.Now(), limit)
		if err != nil {
			return err
		}
		if len(lapsed) == 0 {
			return nil
		}

		ids := make([]snowflake.ID, 0, len(lapsed))
		for _, r := range lapsed {
			ids = append(ids, r.ID)
		}
		if _, err := s.repo.Deactivate(ctx, tx, ids); err != nil {
			return err
		}
		for i := range lapsed {
			lapsed[i].IsActive = false
		}
		expired = lapsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(expired) > 0 {
		s.log.Info("expired lapsed role grants", zap.Int("count", len(expired)))
	}
	return expired, nil
}

func (s *Service) HasRole(ctx context.Context, userID snowflake.ID, guildID, role string) (bool, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if _, ok := domain.KnownRoles[role]; !ok {
		return false, domain.ErrInvalidRole
	}
	roles, err := s.ActiveRoles(ctx, userID, guildID)
	if err != nil {
		return false, err
	}
	return slices.Contains(roles, role), nil
}

func (s *Service) ActiveRoles(ctx context.Context, userID snowflake.ID, guildID string) ([]string, error) {
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return nil, domain.ErrInvalidGuild
	}

	rows, err := s.repo.ListActiveForGuild(ctx, s.db, userID, guildID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if !row.EffectiveAt(now) {
			continue
		}
		if !slices.Contains(names, row.Role) {
			names = append(names, row.Role)
		}
	}
	slices.Sort(names)
	return names, nil
}

func normalizeRole(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := domain.KnownRoles[value]; !ok {
		return "", domain.ErrInvalidRole
	}
	return value, nil
}

func normalizePermissions(values []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}

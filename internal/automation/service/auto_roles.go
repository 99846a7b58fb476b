package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/automation/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) ListAutoRoles(ctx context.Context, guildID string) ([]domain.AutoRole, error) {
	guildID, err := normalizeGuild(guildID)
	if err != nil {
		return nil, err
	}
	roles, err := s.repo.ListAutoRoles(ctx, s.db, guildID)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []domain.AutoRole{}
	}
	return roles, nil
}

func (s *Service) GetAutoRole(ctx context.Context, id string) (*domain.AutoRole, error) {
	autoRoleID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	role, err := s.repo.FindAutoRole(ctx, s.db, autoRoleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, domain.ErrNotFound
	}
	return role, nil
}

func (s *Service) CreateAutoRole(ctx context.Context, createdBy snowflake.ID, req domain.CreateAutoRoleRequest) (*domain.AutoRole, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	guildID, err := normalizeGuild(req.GuildID)
	if err != nil {
		return nil, err
	}
	roleID := strings.TrimSpace(req.RoleID)
	roleName := strings.TrimSpace(req.RoleName)
	if roleID == "" || roleName == "" {
		return nil, domain.ErrInvalidRole
	}
	triggerType, err := normalizeAutoRoleTrigger(req.TriggerType)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	role := &domain.AutoRole{
		ID:            s.genID.Generate(),
		Name:          name,
		Description:   req.Description,
		RoleID:        roleID,
		RoleName:      roleName,
		TriggerType:   triggerType,
		TriggerValue:  req.TriggerValue,
		Conditions:    jsonMap(req.Conditions),
		GuildID:       guildID,
		ChannelID:     trimmed(req.ChannelID),
		IsActive:      true,
		RemoveOnLeave: req.RemoveOnLeave,
		Stackable:     boolOr(req.Stackable, true),
		Priority:      intOr(req.Priority, defaultAutoRolePriority),
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.InsertAutoRole(ctx, s.db, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *Service) UpdateAutoRole(ctx context.Context, id string, req domain.UpdateAutoRoleRequest) (*domain.AutoRole, error) {
	role, err := s.GetAutoRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if role.Name, err = normalizeName(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		role.Description = req.Description
	}
	if req.RoleName != nil {
		name := strings.TrimSpace(*req.RoleName)
		if name == "" {
			return nil, domain.ErrInvalidRole
		}
		role.RoleName = name
	}
	if req.TriggerType != nil {
		if role.TriggerType, err = normalizeAutoRoleTrigger(*req.TriggerType); err != nil {
			return nil, err
		}
	}
	if req.TriggerValue != nil {
		role.TriggerValue = req.TriggerValue
	}
	if req.Conditions != nil {
		role.Conditions = jsonMap(req.Conditions)
	}
	if req.ChannelID != nil {
		role.ChannelID = trimmed(req.ChannelID)
	}
	if req.IsActive != nil {
		role.IsActive = *req.IsActive
	}
	if req.RemoveOnLeave != nil {
		role.RemoveOnLeave = *req.RemoveOnLeave
	}
	if req.Stackable != nil {
		role.Stackable = *req.Stackable
	}
	if req.Priority != nil {
		role.Priority = *req.Priority
	}
	role.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateAutoRole(ctx, s.db, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *Service) DeleteAutoRole(ctx context.Context, id string) error {
	autoRoleID, err := parseID(id)
	if err != nil {
		return err
	}
	affected, err := s.repo.DeleteAutoRole(ctx, s.db, autoRoleID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AssignUserAutoRole records the assignment and bumps the role's counter in
// one transaction. Assigning an already active role returns the existing row.
func (s *Service) AssignUserAutoRole(ctx context.Context, userID string, req domain.AssignAutoRoleRequest) (*domain.UserAutoRole, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	autoRoleID, err := parseID(req.AutoRoleID)
	if err != nil {
		return nil, err
	}

	var assignment *domain.UserAutoRole
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.repo.FindAutoRole(ctx, tx, autoRoleID)
		if err != nil {
			return err
		}
		if role == nil {
			return domain.ErrNotFound
		}
		if !role.IsActive {
			return domain.ErrAutoRoleInactive
		}

		active, err := s.repo.ListActiveAssignmentsInGuild(ctx, tx, userID, role.GuildID)
		if err != nil {
			return err
		}
		for i := range active {
			if active[i].AutoRoleID == role.ID {
				assignment = &active[i]
				return nil
			}
		}
		if !role.Stackable && len(active) > 0 {
			return domain.ErrNotStackable
		}

		assignment = &domain.UserAutoRole{
			ID:         s.genID.Generate(),
			UserID:     userID,
			AutoRoleID: role.ID,
			RoleID:     role.RoleID,
			GuildID:    role.GuildID,
			AssignedBy: trimmed(req.AssignedBy),
			AssignedAt: s.clock.Now(),
			IsActive:   true,
		}
		if err := s.repo.InsertUserAutoRole(ctx, tx, assignment); err != nil {
			return err
		}
		return s.repo.IncrementAssigned(ctx, tx, role.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("auto role assigned",
		zap.String("user_id", userID),
		zap.String("auto_role_id", autoRoleID.String()),
	)
	return assignment, nil
}

func (s *Service) RemoveUserAutoRole(ctx context.Context, userID string, autoRoleID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidUserID
	}
	id, err := parseID(autoRoleID)
	if err != nil {
		return err
	}
	affected, err := s.repo.DeactivateUserAutoRole(ctx, s.db, userID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) ListUserAutoRoles(ctx context.Context, userID string, guildID string) ([]domain.UserAutoRole, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	var guild *string
	if g := strings.TrimSpace(guildID); g != "" {
		guild = &g
	}
	assignments, err := s.repo.ListUserAutoRoles(ctx, s.db, userID, guild)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []domain.UserAutoRole{}
	}
	return assignments, nil
}

func normalizeAutoRoleTrigger(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := domain.AutoRoleTriggers[value]; !ok {
		return "", domain.ErrInvalidTriggerType
	}
	return value, nil
}

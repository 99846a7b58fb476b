package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/automation/domain"
)

func (s *Service) ListAltRules(ctx context.Context, guildID string) ([]domain.AltDetectionRule, error) {
	guildID, err := normalizeGuild(guildID)
	if err != nil {
		return nil, err
	}
	rules, err := s.repo.ListAltRules(ctx, s.db, guildID)
	if err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []domain.AltDetectionRule{}
	}
	return rules, nil
}

func (s *Service) GetAltRule(ctx context.Context, id string) (*domain.AltDetectionRule, error) {
	ruleID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findAltRule(ctx, ruleID)
}

func (s *Service) findAltRule(ctx context.Context, id snowflake.ID) (*domain.AltDetectionRule, error) {
	rule, err := s.repo.FindAltRule(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}
	return rule, nil
}

func (s *Service) CreateAltRule(ctx context.Context, createdBy snowflake.ID, req domain.CreateAltRuleRequest) (*domain.AltDetectionRule, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	guildID, err := normalizeGuild(req.GuildID)
	if err != nil {
		return nil, err
	}
	action, err := normalizeAltAction(req.Action)
	if err != nil {
		return nil, err
	}
	cooldown, err := validCooldown(req.CooldownSeconds)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rule := &domain.AltDetectionRule{
		ID:                     s.genID.Generate(),
		Name:                   name,
		Description:            req.Description,
		GuildID:                guildID,
		MinAccountAge:          intOr(req.MinAccountAge, defaultMinAccountAge),
		RequireAvatar:          boolOr(req.RequireAvatar, true),
		RequireVerification:    req.RequireVerification,
		MinMutualServers:       req.MinMutualServers,
		BannedUsernamePatterns: stringList(req.BannedUsernamePatterns),
		Action:                 action,
		NotifyChannel:          trimmed(req.NotifyChannel),
		ExemptRoles:            stringList(req.ExemptRoles),
		Priority:               intOr(req.Priority, defaultAltPriority),
		CooldownSeconds:        cooldown,
		IsActive:               true,
		CreatedBy:              createdBy,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.repo.InsertAltRule(ctx, s.db, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) UpdateAltRule(ctx context.Context, id string, req domain.UpdateAltRuleRequest) (*domain.AltDetectionRule, error) {
	rule, err := s.GetAltRule(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if rule.Name, err = normalizeName(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		rule.Description = req.Description
	}
	if req.MinAccountAge != nil {
		rule.MinAccountAge = *req.MinAccountAge
	}
	if req.RequireAvatar != nil {
		rule.RequireAvatar = *req.RequireAvatar
	}
	if req.RequireVerification != nil {
		rule.RequireVerification = *req.RequireVerification
	}
	if req.MinMutualServers != nil {
		rule.MinMutualServers = *req.MinMutualServers
	}
	if req.BannedUsernamePatterns != nil {
		rule.BannedUsernamePatterns = stringList(req.BannedUsernamePatterns)
	}
	if req.Action != nil {
		if rule.Action, err = normalizeAltAction(*req.Action); err != nil {
			return nil, err
		}
	}
	if req.NotifyChannel != nil {
		rule.NotifyChannel = trimmed(req.NotifyChannel)
	}
	if req.ExemptRoles != nil {
		rule.ExemptRoles = stringList(req.ExemptRoles)
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.CooldownSeconds != nil {
		if rule.CooldownSeconds, err = validCooldown(req.CooldownSeconds); err != nil {
			return nil, err
		}
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	rule.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateAltRule(ctx, s.db, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) DeleteAltRule(ctx context.Context, id string) error {
	ruleID, err := parseID(id)
	if err != nil {
		return err
	}
	affected, err := s.repo.DeleteAltRule(ctx, s.db, ruleID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) TriggerAltRule(ctx context.Context, id string) (*domain.AltDetectionRule, error) {
	ruleID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.TriggerAltRule(ctx, s.db, ruleID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}
	rule, err := s.findAltRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRuleTrigger(ctx, rule.GuildID, kindAltDetection)
	return rule, nil
}

func normalizeAltAction(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := domain.AltActions[value]; !ok {
		return "", domain.ErrInvalidAction
	}
	return value, nil
}

package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/automation/domain"
	"github.com/smallbiznis/botcentral/internal/observability/metrics"
	"go.uber.org/zap"
)

func (s *Service) ListRules(ctx context.Context, guildID string) ([]domain.AutomationRule, error) {
	guildID, err := normalizeGuild(guildID)
	if err != nil {
		return nil, err
	}
	rules, err := s.repo.ListRules(ctx, s.db, guildID, false)
	if err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []domain.AutomationRule{}
	}
	return rules, nil
}

func (s *Service) GetRule(ctx context.Context, id string) (*domain.AutomationRule, error) {
	ruleID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findRule(ctx, ruleID)
}

func (s *Service) findRule(ctx context.Context, id snowflake.ID) (*domain.AutomationRule, error) {
	rule, err := s.repo.FindRule(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}
	return rule, nil
}

func (s *Service) CreateRule(ctx context.Context, createdBy snowflake.ID, req domain.CreateRuleRequest) (*domain.AutomationRule, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	guildID, err := normalizeGuild(req.GuildID)
	if err != nil {
		return nil, err
	}
	triggerType, err := normalizeTriggerType(req.TriggerType)
	if err != nil {
		return nil, err
	}
	actions := stringList(req.Actions)
	if len(actions) == 0 {
		return nil, domain.ErrInvalidActions
	}
	cooldown, err := validCooldown(req.CooldownSeconds)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rule := &domain.AutomationRule{
		ID:                s.genID.Generate(),
		Name:              name,
		Description:       req.Description,
		TriggerType:       triggerType,
		TriggerConditions: jsonMap(req.TriggerConditions),
		Actions:           actions,
		ActionSettings:    jsonMap(req.ActionSettings),
		IsActive:          true,
		GuildID:           guildID,
		ChannelID:         trimmed(req.ChannelID),
		Priority:          intOr(req.Priority, defaultRulePriority),
		CooldownSeconds:   cooldown,
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.InsertRule(ctx, s.db, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) UpdateRule(ctx context.Context, id string, req domain.UpdateRuleRequest) (*domain.AutomationRule, error) {
	rule, err := s.GetRule(ctx, id)
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
	if req.TriggerType != nil {
		if rule.TriggerType, err = normalizeTriggerType(*req.TriggerType); err != nil {
			return nil, err
		}
	}
	if req.TriggerConditions != nil {
		rule.TriggerConditions = jsonMap(req.TriggerConditions)
	}
	if req.Actions != nil {
		actions := stringList(req.Actions)
		if len(actions) == 0 {
			return nil, domain.ErrInvalidActions
		}
		rule.Actions = actions
	}
	if req.ActionSettings != nil {
		rule.ActionSettings = jsonMap(req.ActionSettings)
	}
	if req.ChannelID != nil {
		rule.ChannelID = trimmed(req.ChannelID)
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

	if err := s.repo.UpdateRule(ctx, s.db, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, id string) error {
	ruleID, err := parseID(id)
	if err != nil {
		return err
	}
	affected, err := s.repo.DeleteRule(ctx, s.db, ruleID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TriggerRule bumps the counter in a single statement so concurrent triggers
// never lose an increment.
func (s *Service) TriggerRule(ctx context.Context, id string) (*domain.AutomationRule, error) {
	ruleID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.TriggerRule(ctx, s.db, ruleID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}
	rule, err := s.findRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRuleTrigger(ctx, rule.GuildID, kindAutomation)
	return rule, nil
}

// Evaluate resolves a batch of rule matches against the guild's active rules.
// Matches are visited in rule precedence order and each target receives at
// most one applied rule. Decisions come back in request order.
func (s *Service) Evaluate(ctx context.Context, req domain.EvaluateRequest) ([]domain.Decision, error) {
	guildID, err := normalizeGuild(req.GuildID)
	if err != nil {
		return nil, err
	}
	rules, err := s.repo.ListRules(ctx, s.db, guildID, true)
	if err != nil {
		return nil, err
	}

	rank := make(map[snowflake.ID]int, len(rules))
	byID := make(map[snowflake.ID]*domain.AutomationRule, len(rules))
	for i := range rules {
		rank[rules[i].ID] = i
		byID[rules[i].ID] = &rules[i]
	}

	decisions := make([]domain.Decision, len(req.Matches))
	order := make([]int, 0, len(req.Matches))
	ids := make([]snowflake.ID, len(req.Matches))
	for i, m := range req.Matches {
		decisions[i] = domain.Decision{
			RuleID:       strings.TrimSpace(m.RuleID),
			TargetUserID: strings.TrimSpace(m.TargetUserID),
			Outcome:      domain.OutcomeIgnored,
		}
		id, err := parseID(m.RuleID)
		if err != nil {
			continue
		}
		if _, ok := byID[id]; !ok {
			continue
		}
		ids[i] = id
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rank[ids[order[a]]] < rank[ids[order[b]]]
	})

	now := s.clock.Now()
	applied := make(map[string]struct{})
	for _, i := range order {
		rule := byID[ids[i]]
		target := decisions[i].TargetUserID

		switch {
		case !rule.Eligible(now):
			decisions[i].Outcome = domain.OutcomeCooldown
		case hasKey(applied, target):
			decisions[i].Outcome = domain.OutcomeSuperseded
		default:
			affected, err := s.repo.TriggerRule(ctx, s.db, rule.ID, now)
			if err != nil {
				return nil, err
			}
			if affected == 0 {
				// Deleted since the rules were loaded.
				continue
			}
			at := now
			rule.LastTriggered = &at
			rule.TriggerCount++
			snapshot := *rule
			decisions[i].Outcome = domain.OutcomeApplied
			decisions[i].Rule = &snapshot
			applied[target] = struct{}{}
			s.metrics.RecordRuleTrigger(ctx, guildID, kindAutomation)
		}
	}

	for _, d := range decisions {
		metrics.Access().IncEvaluation(d.Outcome)
	}
	s.log.Debug("evaluated automation matches",
		zap.String("guild_id", guildID),
		zap.Int("matches", len(req.Matches)),
		zap.Int("applied", len(applied)),
	)
	return decisions, nil
}

func normalizeTriggerType(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := domain.TriggerTypes[value]; !ok {
		return "", domain.ErrInvalidTriggerType
	}
	return value, nil
}

func hasKey(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/botcentral/internal/audit/domain"
	"github.com/smallbiznis/botcentral/internal/observability/metrics"
	roledomain "github.com/smallbiznis/botcentral/internal/role/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectModerationLog    = "moderation_log"
	ObjectUserRole         = "user_role"
	ObjectContentFilter    = "content_filter"
	ObjectReport           = "report"
	ObjectAutomationRule   = "automation_rule"
	ObjectAltDetectionRule = "alt_detection_rule"
	ObjectAutoRole         = "auto_role"
	ObjectLoggingConfig    = "logging_config"
	ObjectAuditLog         = "audit_log"
)

const (
	ActionModerationLogView   = "moderation_log.view"
	ActionModerationLogManage = "moderation_log.manage"

	ActionUserRoleView   = "user_role.view"
	ActionUserRoleManage = "user_role.manage"

	ActionContentFilterView   = "content_filter.view"
	ActionContentFilterManage = "content_filter.manage"

	ActionReportView   = "report.view"
	ActionReportCreate = "report.create"
	ActionReportManage = "report.manage"

	ActionAutomationRuleView   = "automation_rule.view"
	ActionAutomationRuleManage = "automation_rule.manage"

	ActionAltDetectionRuleView   = "alt_detection_rule.view"
	ActionAltDetectionRuleManage = "alt_detection_rule.manage"

	ActionAutoRoleView   = "auto_role.view"
	ActionAutoRoleManage = "auto_role.manage"

	ActionLoggingConfigView   = "logging_config.view"
	ActionLoggingConfigManage = "logging_config.manage"

	ActionAuditLogView = "audit_log.view"
)

const (
	roleMember    = "role:member"
	roleModerator = "role:moderator"
	roleAdmin     = "role:admin"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Enforcer   *casbin.SyncedEnforcer
	Roles      RoleSource
	GuildAdmin GuildAdminSource    `optional:"true"`
	AuditSvc   auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log        *zap.Logger
	enforcer   *casbin.SyncedEnforcer
	roles      RoleSource
	guildAdmin GuildAdminSource
	auditSvc   auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:        p.Log.Named("authorization.service"),
		enforcer:   p.Enforcer,
		roles:      p.Roles,
		guildAdmin: p.GuildAdmin,
		auditSvc:   p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID snowflake.ID, guildID string, object string, action string) error {
	if userID <= 0 {
		return ErrInvalidActor
	}
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return ErrInvalidGuild
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roles, err := s.Roles(ctx, userID, guildID)
	if err != nil {
		metrics.Access().IncStoreError("authorization", err)
		return err
	}
	if slices.Contains(roles, roledomain.RoleBanned) {
		s.deny(ctx, userID, guildID, object, action, "banned")
		return ErrForbidden
	}

	subject := subjectFor(userID)
	domain := domainFor(guildID)
	if err := s.syncGrouping(subject, domain, roles); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.deny(ctx, userID, guildID, object, action, "policy")
		return ErrForbidden
	}

	metrics.Access().IncDecision(object, action, metrics.DecisionGranted)
	if strings.HasSuffix(action, ".manage") {
		s.audit(ctx, "authorization.granted", userID, guildID, object, action, "")
	}
	return nil
}

// Roles returns the ledger roles for the guild, plus admin when the user owns
// or administers the guild on Discord.
func (s *ServiceImpl) Roles(ctx context.Context, userID snowflake.ID, guildID string) ([]string, error) {
	roles, err := s.roles.ActiveRoles(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	if s.guildAdmin != nil && !slices.Contains(roles, roledomain.RoleAdmin) {
		isAdmin, err := s.guildAdmin.IsGuildAdmin(ctx, userID, guildID)
		if err != nil {
			return nil, err
		}
		if isAdmin {
			roles = append(roles, roledomain.RoleAdmin)
		}
	}
	return roles, nil
}

// syncGrouping makes the subject's role links in domain match roles exactly.
func (s *ServiceImpl) syncGrouping(subject string, domain string, roles []string) error {
	want := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == roledomain.RoleBanned {
			continue
		}
		want = append(want, "role:"+r)
	}

	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	have := make([]string, 0, len(existing))
	for _, rule := range existing {
		if len(rule) < 3 {
			continue
		}
		if !slices.Contains(want, rule[1]) {
			if _, err := s.enforcer.RemoveGroupingPolicy(rule[0], rule[1], rule[2]); err != nil {
				return err
			}
			continue
		}
		have = append(have, rule[1])
	}

	for _, roleName := range want {
		if slices.Contains(have, roleName) {
			continue
		}
		if _, err := s.enforcer.AddGroupingPolicy(subject, roleName, domain); err != nil {
			return err
		}
	}
	return nil
}

func (s *ServiceImpl) deny(ctx context.Context, userID snowflake.ID, guildID, object, action, reason string) {
	metrics.Access().IncDecision(object, action, metrics.DecisionDenied)
	s.log.Debug("authorization denied",
		zap.String("user_id", userID.String()),
		zap.String("guild_id", guildID),
		zap.String("action", action),
		zap.String("reason", reason),
	)
	s.audit(ctx, "authorization.denied", userID, guildID, object, action, reason)
}

func (s *ServiceImpl) audit(ctx context.Context, event string, userID snowflake.ID, guildID, object, action, reason string) {
	if s.auditSvc == nil {
		return
	}
	actorID := userID.String()
	targetID := object
	metadata := map[string]any{
		"object":  object,
		"action":  action,
		"subject": subjectFor(userID),
	}
	if reason != "" {
		metadata["reason"] = reason
	}
	if err := s.auditSvc.AuditLog(ctx, &guildID, string(auditdomain.ActorTypeUser), &actorID, event, "authorization", &targetID, metadata); err != nil {
		s.log.Warn("failed to write authorization audit log", zap.Error(err))
	}
}

func subjectFor(userID snowflake.ID) string {
	return fmt.Sprintf("user:%s", userID.String())
}

func domainFor(guildID string) string {
	return fmt.Sprintf("guild:%s", guildID)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	member := [][]string{
		{ObjectReport, ActionReportView},
		{ObjectReport, ActionReportCreate},
	}
	moderator := append(slices.Clone(member),
		[]string{ObjectModerationLog, ActionModerationLogView},
		[]string{ObjectModerationLog, ActionModerationLogManage},
		[]string{ObjectContentFilter, ActionContentFilterView},
		[]string{ObjectContentFilter, ActionContentFilterManage},
		[]string{ObjectReport, ActionReportManage},
		[]string{ObjectAutomationRule, ActionAutomationRuleView},
		[]string{ObjectAltDetectionRule, ActionAltDetectionRuleView},
	)
	admin := append(slices.Clone(moderator),
		[]string{ObjectAutomationRule, ActionAutomationRuleManage},
		[]string{ObjectAltDetectionRule, ActionAltDetectionRuleManage},
		[]string{ObjectAutoRole, ActionAutoRoleView},
		[]string{ObjectAutoRole, ActionAutoRoleManage},
		[]string{ObjectLoggingConfig, ActionLoggingConfigView},
		[]string{ObjectLoggingConfig, ActionLoggingConfigManage},
		[]string{ObjectUserRole, ActionUserRoleView},
		[]string{ObjectUserRole, ActionUserRoleManage},
		[]string{ObjectAuditLog, ActionAuditLogView},
	)

	grants := []struct {
		role  string
		rules [][]string
	}{
		{role: roleMember, rules: member},
		{role: roleModerator, rules: moderator},
		{role: roleAdmin, rules: admin},
	}
	for _, grant := range grants {
		for _, rule := range grant.rules {
			if _, err := enforcer.AddPolicy(grant.role, rule[0], rule[1]); err != nil {
				return err
			}
		}
	}
	return nil
}

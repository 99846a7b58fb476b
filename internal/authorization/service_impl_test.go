package authorization

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/botcentral/internal/audit/domain"
	"github.com/smallbiznis/botcentral/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRoles struct {
	roles map[string][]string
}

func (s *stubRoles) ActiveRoles(_ context.Context, _ snowflake.ID, guildID string) ([]string, error) {
	return append([]string(nil), s.roles[guildID]...), nil
}

type stubGuildAdmin struct {
	guilds map[string]bool
}

func (s *stubGuildAdmin) IsGuildAdmin(_ context.Context, _ snowflake.ID, guildID string) (bool, error) {
	return s.guilds[guildID], nil
}

type recordedAudit struct {
	action   string
	metadata map[string]any
}

type stubAudit struct {
	mu      sync.Mutex
	entries []recordedAudit
}

func (s *stubAudit) AuditLog(_ context.Context, _ *string, _ string, _ *string, action string, _ string, _ *string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, recordedAudit{action: action, metadata: metadata})
	return nil
}

func (s *stubAudit) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

func (s *stubAudit) ListActivity(context.Context, string, int) ([]auditdomain.AuditLog, error) {
	return nil, nil
}

func (s *stubAudit) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.action)
	}
	return out
}

func newTestService(t *testing.T) (Service, *stubRoles, *stubGuildAdmin, *stubAudit) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)

	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	roles := &stubRoles{roles: map[string][]string{}}
	admins := &stubGuildAdmin{guilds: map[string]bool{}}
	audit := &stubAudit{}
	svc := NewService(Params{
		Log:        zap.NewNop(),
		Enforcer:   enforcer,
		Roles:      roles,
		GuildAdmin: admins,
		AuditSvc:   audit,
	})
	return svc, roles, admins, audit
}

const user = snowflake.ID(321)

func TestRoleHierarchy(t *testing.T) {
	svc, roles, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		role    string
		object  string
		action  string
		allowed bool
	}{
		{role: "member", object: ObjectReport, action: ActionReportView, allowed: true},
		{role: "member", object: ObjectModerationLog, action: ActionModerationLogView, allowed: false},
		{role: "moderator", object: ObjectReport, action: ActionReportView, allowed: true},
		{role: "moderator", object: ObjectModerationLog, action: ActionModerationLogManage, allowed: true},
		{role: "moderator", object: ObjectAutomationRule, action: ActionAutomationRuleView, allowed: true},
		{role: "moderator", object: ObjectAutomationRule, action: ActionAutomationRuleManage, allowed: false},
		{role: "moderator", object: ObjectUserRole, action: ActionUserRoleManage, allowed: false},
		{role: "admin", object: ObjectContentFilter, action: ActionContentFilterManage, allowed: true},
		{role: "admin", object: ObjectUserRole, action: ActionUserRoleManage, allowed: true},
		{role: "admin", object: ObjectAuditLog, action: ActionAuditLogView, allowed: true},
	}

	for _, tc := range cases {
		roles.roles["g1"] = []string{tc.role}
		err := svc.Authorize(ctx, user, "g1", tc.object, tc.action)
		if tc.allowed {
			assert.NoError(t, err, "%s %s", tc.role, tc.action)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "%s %s", tc.role, tc.action)
		}
	}
}

func TestNoRoleIsForbiddenAndGrantsDoNotLeakAcrossGuilds(t *testing.T) {
	svc, roles, _, _ := newTestService(t)
	ctx := context.Background()

	roles.roles["g1"] = []string{"admin"}
	require.NoError(t, svc.Authorize(ctx, user, "g1", ObjectAutoRole, ActionAutoRoleManage))

	err := svc.Authorize(ctx, user, "g2", ObjectReport, ActionReportView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBannedOverridesEveryRole(t *testing.T) {
	svc, roles, admins, audit := newTestService(t)
	ctx := context.Background()

	roles.roles["g1"] = []string{"admin", "banned"}
	admins.guilds["g1"] = true

	err := svc.Authorize(ctx, user, "g1", ObjectReport, ActionReportView)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, []string{"authorization.denied"}, audit.actions())
	assert.Equal(t, "banned", audit.entries[0].metadata["reason"])
}

func TestDiscordOwnerIsAdmin(t *testing.T) {
	svc, _, admins, audit := newTestService(t)
	ctx := context.Background()

	admins.guilds["g9"] = true
	require.NoError(t, svc.Authorize(ctx, user, "g9", ObjectLoggingConfig, ActionLoggingConfigManage))
	require.NoError(t, svc.Authorize(ctx, user, "g9", ObjectLoggingConfig, ActionLoggingConfigView))

	assert.Equal(t, []string{"authorization.granted"}, audit.actions())
}

func TestRevokedRoleTakesEffectImmediately(t *testing.T) {
	svc, roles, _, _ := newTestService(t)
	ctx := context.Background()

	roles.roles["g1"] = []string{"moderator"}
	require.NoError(t, svc.Authorize(ctx, user, "g1", ObjectModerationLog, ActionModerationLogView))

	roles.roles["g1"] = nil
	err := svc.Authorize(ctx, user, "g1", ObjectModerationLog, ActionModerationLogView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, 0, "g1", ObjectReport, ActionReportView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, user, " ", ObjectReport, ActionReportView), ErrInvalidGuild)
	assert.ErrorIs(t, svc.Authorize(ctx, user, "g1", "", ActionReportView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, user, "g1", ObjectReport, ""), ErrInvalidAction)
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/automation/domain"
	"github.com/smallbiznis/botcentral/internal/automation/repository"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testGuild = "guild-1"

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.AutomationRule{},
		&domain.AltDetectionRule{},
		&domain.AutoRole{},
		&domain.UserAutoRole{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	}), clk
}

func intPtr(v int) *int { return &v }

func createRule(t *testing.T, svc domain.Service, name string, priority, cooldown int) *domain.AutomationRule {
	t.Helper()
	rule, err := svc.CreateRule(context.Background(), 7, domain.CreateRuleRequest{
		Name:            name,
		TriggerType:     "message_sent",
		Actions:         []string{"warn"},
		GuildID:         testGuild,
		Priority:        intPtr(priority),
		CooldownSeconds: intPtr(cooldown),
	})
	require.NoError(t, err)
	return rule
}

func TestCreateRuleDefaultsAndValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rule, err := svc.CreateRule(ctx, 7, domain.CreateRuleRequest{
		Name:        " spam ",
		TriggerType: "MESSAGE_SENT",
		Actions:     []string{"delete", "warn", "delete"},
		GuildID:     testGuild,
	})
	require.NoError(t, err)
	assert.Equal(t, "spam", rule.Name)
	assert.Equal(t, "message_sent", rule.TriggerType)
	assert.Equal(t, []string{"delete", "warn"}, []string(rule.Actions))
	assert.Equal(t, 1, rule.Priority)
	assert.Equal(t, 0, rule.CooldownSeconds)
	assert.NotNil(t, rule.TriggerConditions)

	cases := []struct {
		name string
		req  domain.CreateRuleRequest
		want error
	}{
		{
			name: "missing guild",
			req:  domain.CreateRuleRequest{Name: "x", TriggerType: "user_joined", Actions: []string{"kick"}},
			want: domain.ErrInvalidGuild,
		},
		{
			name: "unknown trigger",
			req:  domain.CreateRuleRequest{Name: "x", TriggerType: "moon_phase", Actions: []string{"kick"}, GuildID: testGuild},
			want: domain.ErrInvalidTriggerType,
		},
		{
			name: "blank actions",
			req:  domain.CreateRuleRequest{Name: "x", TriggerType: "user_joined", Actions: []string{" "}, GuildID: testGuild},
			want: domain.ErrInvalidActions,
		},
		{
			name: "negative cooldown",
			req:  domain.CreateRuleRequest{Name: "x", TriggerType: "user_joined", Actions: []string{"kick"}, GuildID: testGuild, CooldownSeconds: intPtr(-1)},
			want: domain.ErrInvalidCooldown,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateRule(ctx, 7, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestListRulesOrdersByPriorityThenAge(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	low := createRule(t, svc, "low", 1, 0)
	clk.Advance(time.Minute)
	highOld := createRule(t, svc, "high-old", 5, 0)
	clk.Advance(time.Minute)
	highNew := createRule(t, svc, "high-new", 5, 0)

	rules, err := svc.ListRules(ctx, testGuild)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, highOld.ID, rules[0].ID)
	assert.Equal(t, highNew.ID, rules[1].ID)
	assert.Equal(t, low.ID, rules[2].ID)

	other, err := svc.ListRules(ctx, "guild-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestTriggerRuleIncrementsAtomically(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	rule := createRule(t, svc, "count", 1, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.TriggerRule(ctx, rule.ID.String())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := svc.GetRule(ctx, rule.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, got.TriggerCount)
	require.NotNil(t, got.LastTriggered)
	assert.True(t, got.LastTriggered.Equal(clk.Now()))

	_, err = svc.TriggerRule(ctx, "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.TriggerRule(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestEvaluateCooldown(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		at := now.Add(-d)
		return &at
	}

	cases := []struct {
		name     string
		last     *time.Time
		cooldown int
		want     bool
	}{
		{name: "never triggered", cooldown: 60, want: true},
		{name: "no cooldown", last: ago(0), want: true},
		{name: "inside window", last: ago(30 * time.Second), cooldown: 60, want: false},
		{name: "exactly at boundary", last: ago(60 * time.Second), cooldown: 60, want: true},
		{name: "past window", last: ago(2 * time.Minute), cooldown: 60, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.EvaluateCooldown(tc.last, tc.cooldown, now))
		})
	}
}

func TestEvaluateFirstMatchWinsPerTarget(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	low := createRule(t, svc, "low", 1, 0)
	clk.Advance(time.Second)
	high := createRule(t, svc, "high", 10, 0)
	clk.Advance(time.Second)
	inactive := createRule(t, svc, "inactive", 50, 0)
	_, err := svc.UpdateRule(ctx, inactive.ID.String(), domain.UpdateRuleRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)

	decisions, err := svc.Evaluate(ctx, domain.EvaluateRequest{
		GuildID: testGuild,
		Matches: []domain.Match{
			{RuleID: low.ID.String(), TargetUserID: "u1"},
			{RuleID: high.ID.String(), TargetUserID: "u1"},
			{RuleID: low.ID.String(), TargetUserID: "u2"},
			{RuleID: inactive.ID.String(), TargetUserID: "u3"},
			{RuleID: "999", TargetUserID: "u4"},
		},
	})
	require.NoError(t, err)
	require.Len(t, decisions, 5)

	assert.Equal(t, domain.OutcomeSuperseded, decisions[0].Outcome)
	assert.Equal(t, domain.OutcomeApplied, decisions[1].Outcome)
	require.NotNil(t, decisions[1].Rule)
	assert.Equal(t, high.ID, decisions[1].Rule.ID)
	assert.Equal(t, domain.OutcomeApplied, decisions[2].Outcome)
	assert.Equal(t, domain.OutcomeIgnored, decisions[3].Outcome)
	assert.Equal(t, domain.OutcomeIgnored, decisions[4].Outcome)

	got, err := svc.GetRule(ctx, low.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, got.TriggerCount)
}

func TestEvaluateRespectsCooldown(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	rule := createRule(t, svc, "slow", 1, 60)
	req := domain.EvaluateRequest{
		GuildID: testGuild,
		Matches: []domain.Match{{RuleID: rule.ID.String(), TargetUserID: "u1"}},
	}

	first, err := svc.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, first[0].Outcome)

	clk.Advance(30 * time.Second)
	second, err := svc.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCooldown, second[0].Outcome)

	clk.Advance(30 * time.Second)
	third, err := svc.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, third[0].Outcome)

	got, err := svc.GetRule(ctx, rule.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, got.TriggerCount)
}

func TestAltRuleLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAltRule(ctx, 7, domain.CreateAltRuleRequest{Name: "x", GuildID: testGuild, Action: "nuke"})
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	rule, err := svc.CreateAltRule(ctx, 7, domain.CreateAltRuleRequest{
		Name:                   "new accounts",
		GuildID:                testGuild,
		Action:                 "quarantine",
		BannedUsernamePatterns: []string{"spam.*", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, rule.MinAccountAge)
	assert.True(t, rule.RequireAvatar)
	assert.Equal(t, 5, rule.Priority)
	assert.Equal(t, []string{"spam.*"}, []string(rule.BannedUsernamePatterns))
	assert.Empty(t, rule.ExemptRoles)

	updated, err := svc.UpdateAltRule(ctx, rule.ID.String(), domain.UpdateAltRuleRequest{
		Action:        strPtr("ban"),
		MinAccountAge: intPtr(30),
	})
	require.NoError(t, err)
	assert.Equal(t, "ban", updated.Action)
	assert.Equal(t, 30, updated.MinAccountAge)

	triggered, err := svc.TriggerAltRule(ctx, rule.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, triggered.TriggerCount)

	require.NoError(t, svc.DeleteAltRule(ctx, rule.ID.String()))
	assert.ErrorIs(t, svc.DeleteAltRule(ctx, rule.ID.String()), domain.ErrNotFound)
}

func TestAssignUserAutoRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	role, err := svc.CreateAutoRole(ctx, 7, domain.CreateAutoRoleRequest{
		Name:        "newcomer",
		RoleID:      "r-1",
		RoleName:    "Newcomer",
		TriggerType: "join",
		GuildID:     testGuild,
	})
	require.NoError(t, err)
	assert.True(t, role.Stackable)

	assignment, err := svc.AssignUserAutoRole(ctx, "u1", domain.AssignAutoRoleRequest{AutoRoleID: role.ID.String()})
	require.NoError(t, err)
	assert.True(t, assignment.IsActive)
	assert.Equal(t, "r-1", assignment.RoleID)

	again, err := svc.AssignUserAutoRole(ctx, "u1", domain.AssignAutoRoleRequest{AutoRoleID: role.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, assignment.ID, again.ID)

	got, err := svc.GetAutoRole(ctx, role.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, got.AssignedCount)

	list, err := svc.ListUserAutoRoles(ctx, "u1", testGuild)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.RemoveUserAutoRole(ctx, "u1", role.ID.String()))
	assert.ErrorIs(t, svc.RemoveUserAutoRole(ctx, "u1", role.ID.String()), domain.ErrNotFound)

	list, err = svc.ListUserAutoRoles(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)
}

func TestAssignUserAutoRoleRejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	exclusive, err := svc.CreateAutoRole(ctx, 7, domain.CreateAutoRoleRequest{
		Name:        "exclusive",
		RoleID:      "r-ex",
		RoleName:    "Exclusive",
		TriggerType: "manual",
		GuildID:     testGuild,
		Stackable:   boolPtr(false),
	})
	require.NoError(t, err)
	other, err := svc.CreateAutoRole(ctx, 7, domain.CreateAutoRoleRequest{
		Name:        "other",
		RoleID:      "r-other",
		RoleName:    "Other",
		TriggerType: "manual",
		GuildID:     testGuild,
	})
	require.NoError(t, err)

	_, err = svc.AssignUserAutoRole(ctx, "u1", domain.AssignAutoRoleRequest{AutoRoleID: other.ID.String()})
	require.NoError(t, err)
	_, err = svc.AssignUserAutoRole(ctx, "u1", domain.AssignAutoRoleRequest{AutoRoleID: exclusive.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotStackable)

	_, err = svc.UpdateAutoRole(ctx, other.ID.String(), domain.UpdateAutoRoleRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)
	_, err = svc.AssignUserAutoRole(ctx, "u2", domain.AssignAutoRoleRequest{AutoRoleID: other.ID.String()})
	assert.ErrorIs(t, err, domain.ErrAutoRoleInactive)

	_, err = svc.AssignUserAutoRole(ctx, "u2", domain.AssignAutoRoleRequest{AutoRoleID: "42"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.AssignUserAutoRole(ctx, " ", domain.AssignAutoRoleRequest{AutoRoleID: other.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)
}

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }

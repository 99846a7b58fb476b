package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/role/domain"
	"github.com/smallbiznis/botcentral/internal/role/repository"
	"github.com/smallbiznis/botcentral/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	assigner = snowflake.ID(1)
	member   = snowflake.ID(500)
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.UserRole{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC))
	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	}), clk
}

func guild(id string) *string { return &id }

func TestHasRoleHonoursGuildAndGlobalGrants(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, assigner, domain.CreateRequest{UserID: member.String(), Role: "moderator", GuildID: guild("g1")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, assigner, domain.CreateRequest{UserID: member.String(), Role: "admin"})
	require.NoError(t, err)

	ok, err := svc.HasRole(ctx, member, "g1", "moderator")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasRole(ctx, member, "g2", "moderator")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasRole(ctx, member, "g2", "admin")
	require.NoError(t, err)
	assert.True(t, ok, "global grant applies to every guild")

	_, err = svc.HasRole(ctx, member, "g1", "owner")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestActiveRolesIgnoresExpiredAndInactive(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	expiry := clk.Now().Add(time.Hour)
	_, err := svc.Create(ctx, assigner, domain.CreateRequest{UserID: member.String(), Role: "moderator", GuildID: guild("g1"), ExpiresAt: &expiry})
	require.NoError(t, err)
	inactive, err := svc.Create(ctx, assigner, domain.CreateRequest{UserID: member.String(), Role: "admin", GuildID: guild("g1")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, assigner, domain.CreateRequest{UserID: member.String(), Role: "member", GuildID: guild("g1")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, assigner, domain.CreateRequest{UserID: member.String(), Role: "member", GuildID: guild("g1")})
	require.NoError(t, err)

	off := false
	_, err = svc.Update(ctx, inactive.ID.String(), domain.UpdateRequest{IsActive: &off})
	require.NoError(t, err)

	roles, err := svc.ActiveRoles(ctx, member, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"member", "moderator"}, roles)

	clk.Advance(time.Hour)
	roles, err = svc.ActiveRoles(ctx, member, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"member"}, roles)

	all, err := svc.ListRoles(ctx, domain.ListRequest{UserID: member.String(), GuildID: "g1"})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDeleteIsHard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, assigner, domain.CreateRequest{UserID: member.String(), Role: "member", GuildID: guild("g1")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID.String()))

	_, err = svc.Get(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	roles, err := svc.ListRoles(ctx, domain.ListRequest{UserID: member.String()})
	require.NoError(t, err)
	assert.Empty(t, roles)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID.String()), domain.ErrNotFound)
}

func TestCreateValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{name: "unknown role", req: domain.CreateRequest{UserID: "5", Role: "owner"}, want: domain.ErrInvalidRole},
		{name: "bad user", req: domain.CreateRequest{UserID: "abc", Role: "member"}, want: domain.ErrInvalidUserID},
		{name: "blank guild", req: domain.CreateRequest{UserID: "5", Role: "member", GuildID: guild(" ")}, want: domain.ErrInvalidGuild},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, assigner, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestExpireLapsedDeactivatesOnlyDueGrants(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	soon := clk.Now().Add(time.Hour)
	later := clk.Now().Add(48 * time.Hour)
	due, err := svc.Create(ctx, assigner, domain.CreateRequest{UserID: member.String(), Role: "moderator", GuildID: guild("g1"), ExpiresAt: &soon})
	require.NoError(t, err)
	_, err = svc.Create(ctx, assigner, domain.CreateRequest{UserID: member.String(), Role: "member", GuildID: guild("g1"), ExpiresAt: &later})
	require.NoError(t, err)
	_, err = svc.Create(ctx, assigner, domain.CreateRequest{UserID: member.String(), Role: "member", GuildID: guild("g2")})
	require.NoError(t, err)

	expired, err := svc.ExpireLapsed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, expired)

	clk.Advance(2 * time.Hour)

	expired, err = svc.ExpireLapsed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, due.ID, expired[0].ID)
	assert.False(t, expired[0].IsActive)

	stored, err := svc.Get(ctx, due.ID.String())
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	expired, err = svc.ExpireLapsed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

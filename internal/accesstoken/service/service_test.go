package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	"github.com/smallbiznis/botcentral/internal/accesstoken/repository"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/secretbox"
	"github.com/smallbiznis/botcentral/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	ownerID    = snowflake.ID(1001)
	strangerID = snowflake.ID(2002)
)

const testSecretKey = "access-token-test-key"

func newTestService(t *testing.T) (*Service, *clock.FakeClock) {
	t.Helper()
	return newTestServiceWithKey(t, testSecretKey)
}

func newTestServiceWithKey(t *testing.T, key string) (*Service, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.AccessToken{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	svc := newService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
		Box:   secretbox.New(key),
	})
	return svc, clk
}

func waitLastUsed(t *testing.T, svc *Service, userID snowflake.ID, tokenID string) *time.Time {
	t.Helper()
	var lastUsed *time.Time
	require.Eventually(t, func() bool {
		items, err := svc.List(context.Background(), userID)
		if err != nil {
			return false
		}
		for _, item := range items {
			if item.ID == tokenID && item.LastUsedAt != nil {
				lastUsed = item.LastUsedAt
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return lastUsed
}

func timePtr(t time.Time) *time.Time { return &t }

func TestIssueReturnsSecretOnceAndStoresHash(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, ownerID, domain.CreateRequest{Name: " ci bot "})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(issued.Secret, "bat_"))
	assert.Len(t, issued.Secret, len("bat_")+64)
	assert.Equal(t, "ci bot", issued.Token.Name)
	assert.Equal(t, []string{domain.PermissionPremium}, issued.Token.Permissions)
	assert.True(t, issued.Token.IsActive)
	assert.Nil(t, issued.Token.LastUsedAt)
	assert.Equal(t, "bat_****"+issued.Secret[len(issued.Secret)-4:], issued.Token.TokenHint)

	stored, err := svc.repo.FindBySecretHash(ctx, svc.db, domain.HashSecret(issued.Secret))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, issued.Secret, stored.SecretHash)
}

func TestIssueRejectsBadInput(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{name: "blank name", req: domain.CreateRequest{Name: "  "}, want: domain.ErrInvalidName},
		{name: "unknown permission", req: domain.CreateRequest{Name: "x", Permissions: []string{"superuser"}}, want: domain.ErrInvalidPermission},
		{name: "expiry in the past", req: domain.CreateRequest{Name: "x", ExpiresAt: timePtr(clk.Now().Add(-time.Minute))}, want: domain.ErrInvalidExpiry},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Issue(ctx, ownerID, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateHonoursExpiry(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, ownerID, domain.CreateRequest{
		Name:      "short",
		ExpiresAt: timePtr(clk.Now().Add(time.Hour)),
	})
	require.NoError(t, err)

	token, err := svc.Validate(ctx, issued.Secret)
	require.NoError(t, err)
	assert.Equal(t, ownerID, token.UserID)
	waitLastUsed(t, svc, ownerID, issued.Token.ID)

	clk.Advance(time.Hour)
	_, err = svc.Validate(ctx, issued.Secret)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = svc.Validate(ctx, "bat_unknown")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestValidateRecordsLastUsed(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, ownerID, domain.CreateRequest{Name: "ci"})
	require.NoError(t, err)

	clk.Advance(3 * time.Minute)
	validatedAt := clk.Now()
	_, err = svc.Validate(ctx, issued.Secret)
	require.NoError(t, err)

	lastUsed := waitLastUsed(t, svc, ownerID, issued.Token.ID)
	assert.False(t, lastUsed.Before(validatedAt))
}

func TestRevokeKeepsRowButFailsValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, ownerID, domain.CreateRequest{Name: "ci"})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, ownerID, issued.Token.ID))

	_, err = svc.Validate(ctx, issued.Secret)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	items, err := svc.List(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].IsActive)
}

func TestOwnershipScopedCallsReturnNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, ownerID, domain.CreateRequest{Name: "mine"})
	require.NoError(t, err)

	name := "stolen"
	_, err = svc.Update(ctx, strangerID, issued.Token.ID, domain.UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Revoke(ctx, strangerID, issued.Token.ID), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, strangerID, issued.Token.ID), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, ownerID, "999"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, ownerID, "abc"), domain.ErrInvalidTokenID)

	items, err := svc.List(ctx, strangerID)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, svc.Delete(ctx, ownerID, issued.Token.ID))
	items, err = svc.List(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateChangesFields(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, ownerID, domain.CreateRequest{Name: "ci"})
	require.NoError(t, err)

	name := "deploy"
	inactive := false
	expiry := clk.Now().Add(24 * time.Hour)
	resp, err := svc.Update(ctx, ownerID, issued.Token.ID, domain.UpdateRequest{
		Name:        &name,
		Permissions: []string{"premium", "admin", "premium"},
		IsActive:    &inactive,
		ExpiresAt:   &expiry,
	})
	require.NoError(t, err)
	assert.Equal(t, "deploy", resp.Name)
	assert.Equal(t, []string{"premium", "admin"}, resp.Permissions)
	assert.False(t, resp.IsActive)
	require.NotNil(t, resp.ExpiresAt)
	assert.True(t, resp.ExpiresAt.Equal(expiry))
}

func TestListNewestFirst(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	_, err := svc.Issue(ctx, ownerID, domain.CreateRequest{Name: "first"})
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = svc.Issue(ctx, ownerID, domain.CreateRequest{Name: "second"})
	require.NoError(t, err)

	items, err := svc.List(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Name)
	assert.Equal(t, "first", items[1].Name)
}

func TestListRevealsSealedSecret(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, ownerID, domain.CreateRequest{Name: "dashboard"})
	require.NoError(t, err)
	assert.Equal(t, issued.Secret, issued.Token.Token)

	stored, err := svc.repo.FindBySecretHash(ctx, svc.db, domain.HashSecret(issued.Secret))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotContains(t, string(stored.SecretSealed), issued.Secret)

	items, err := svc.List(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, issued.Secret, items[0].Token)
	assert.Equal(t, issued.Token.TokenHint, items[0].TokenHint)
}

func TestSealedSecretIsBoundToItsToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, ownerID, domain.CreateRequest{Name: "first"})
	require.NoError(t, err)
	second, err := svc.Issue(ctx, ownerID, domain.CreateRequest{Name: "second"})
	require.NoError(t, err)

	stored, err := svc.repo.FindBySecretHash(ctx, svc.db, domain.HashSecret(first.Secret))
	require.NoError(t, err)

	_, err = svc.box.Open(second.Token.ID, stored.SecretSealed)
	assert.ErrorIs(t, err, secretbox.ErrUnavailable)
}

func TestListOmitsSecretWithoutKey(t *testing.T) {
	svc, _ := newTestServiceWithKey(t, "")
	ctx := context.Background()

	issued, err := svc.Issue(ctx, ownerID, domain.CreateRequest{Name: "ci"})
	require.NoError(t, err)
	assert.Equal(t, issued.Secret, issued.Token.Token)

	items, err := svc.List(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Token)

	_, err = svc.Validate(ctx, issued.Secret)
	require.NoError(t, err)
}

func TestListWithRotatedKeyHidesSecret(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Issue(ctx, ownerID, domain.CreateRequest{Name: "ci"})
	require.NoError(t, err)

	svc.box = secretbox.New("rotated-key")
	items, err := svc.List(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Token)
}

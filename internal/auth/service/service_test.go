package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/botcentral/internal/auth/domain"
	"github.com/smallbiznis/botcentral/internal/auth/repository"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (authdomain.Service, *clock.FakeClock) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	return New(zap.NewNop(), repo, sessionRepo, node, clk), clk
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if user.SubscriptionTier != "free" || user.SubscriptionStatus != authdomain.SubscriptionStatusActive {
		t.Fatalf("expected free active user, got %s/%s", user.SubscriptionTier, user.SubscriptionStatus)
	}

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if err != authdomain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCreateUserRejectsDuplicatesAndShortPasswords(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "bob@example.com", Password: "short"}); err != authdomain.ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "not-an-email", Password: "long-enough"}); err != authdomain.ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	user, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "Bob@Example.com", Password: "long-enough"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Email != "bob@example.com" || user.DisplayName != "bob" {
		t.Fatalf("unexpected normalization %q/%q", user.Email, user.DisplayName)
	}
	if _, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "bob@example.com", Password: "long-enough"}); err != authdomain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "carol@example.com", Password: "long-enough"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	result, err := svc.Login(ctx, authdomain.LoginRequest{Email: "carol@example.com", Password: "long-enough"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	session, err := svc.Authenticate(ctx, result.RawToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.UserID != result.User.ID {
		t.Fatalf("expected session for %s, got %s", result.User.ID, session.UserID)
	}

	clk.Advance(sessionTTL)
	if _, err := svc.Authenticate(ctx, result.RawToken); err != authdomain.ErrSessionExpired {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	second, err := svc.Login(ctx, authdomain.LoginRequest{Email: "carol@example.com", Password: "long-enough"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if err := svc.Logout(ctx, second.RawToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, second.RawToken); err != authdomain.ErrSessionRevoked {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "unknown"); err != authdomain.ErrInvalidSession {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestUpdateSubscription(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "dan@example.com", Password: "long-enough"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	tier := "premium_monthly"
	expires := clk.Now().Add(30 * 24 * time.Hour)
	updated, err := svc.UpdateSubscription(ctx, user.ID, authdomain.UpdateSubscriptionRequest{Tier: &tier, ExpiresAt: &expires})
	if err != nil {
		t.Fatalf("update subscription: %v", err)
	}
	if updated.SubscriptionTier != tier {
		t.Fatalf("expected tier %s, got %s", tier, updated.SubscriptionTier)
	}
	if updated.SubscriptionExpiresAt == nil || !updated.SubscriptionExpiresAt.Equal(expires) {
		t.Fatalf("expected expiry %v, got %v", expires, updated.SubscriptionExpiresAt)
	}

	bogus := "suspended"
	if _, err := svc.UpdateSubscription(ctx, user.ID, authdomain.UpdateSubscriptionRequest{Status: &bogus}); err != authdomain.ErrInvalidSubscription {
		t.Fatalf("expected ErrInvalidSubscription, got %v", err)
	}

	cleared, err := svc.UpdateSubscription(ctx, user.ID, authdomain.UpdateSubscriptionRequest{ClearExpiry: true})
	if err != nil {
		t.Fatalf("clear expiry: %v", err)
	}
	if cleared.SubscriptionExpiresAt != nil {
		t.Fatalf("expected expiry cleared")
	}

	if _, err := svc.UpdateSubscription(ctx, snowflake.ID(12345), authdomain.UpdateSubscriptionRequest{Tier: &tier}); err != authdomain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPurgeSessionsKeepsLiveSessions(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "bob@example.com", Password: "correct-password"}); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	login := func() *authdomain.LoginResult {
		res, err := svc.Login(ctx, authdomain.LoginRequest{Email: "bob@example.com", Password: "correct-password"})
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		return res
	}

	revoked := login()
	if err := svc.Logout(ctx, revoked.RawToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	live := login()

	clk.Advance(2 * time.Hour)
	deleted, err := svc.PurgeSessions(ctx, time.Hour)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 purged session, got %d", deleted)
	}

	if _, err := svc.Authenticate(ctx, live.RawToken); err != nil {
		t.Fatalf("expected live session to survive purge: %v", err)
	}
}

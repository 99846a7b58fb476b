package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/bot/domain"
	"github.com/smallbiznis/botcentral/internal/bot/repository"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/config"
	"github.com/smallbiznis/botcentral/internal/secretbox"
	"github.com/smallbiznis/botcentral/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const botToken = "MTIzNDU2Nzg5.Gh_abc.def_ghijklmn"

func newTestService(t *testing.T, key string) (*Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Bot{}, &domain.StandardBot{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	var cfg config.Config
	cfg.Discord.ClientID = "app-123"

	svc := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)),
		Repo:   repository.Provide(),
		Config: cfg,
		Box:    secretbox.New(key),
	})
	return svc.(*Service), conn
}

func str(v string) *string { return &v }

func TestCreateSealsToken(t *testing.T) {
	svc, conn := newTestService(t, "bot-test-key")
	ctx := context.Background()

	bot, err := svc.Create(ctx, 7, false, domain.CreateRequest{Name: "Helper", Token: str(botToken)})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeStandard, bot.BotType)
	assert.Equal(t, domain.DefaultPrefix, bot.Prefix)
	assert.Equal(t, "****klmn", bot.TokenHint)

	var stored domain.Bot
	require.NoError(t, conn.Where("id = ?", bot.ID).First(&stored).Error)
	assert.NotContains(t, string(stored.TokenSealed), botToken)
	plain, err := svc.box.Open(bot.ID.String(), stored.TokenSealed)
	require.NoError(t, err)
	assert.Equal(t, botToken, plain)
}

func TestCreateTokenWithoutKey(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()

	_, err := svc.Create(ctx, 7, false, domain.CreateRequest{Name: "Helper", Token: str(botToken)})
	assert.ErrorIs(t, err, secretbox.ErrKeyMissing)

	bot, err := svc.Create(ctx, 7, false, domain.CreateRequest{Name: "Helper"})
	require.NoError(t, err)
	assert.Empty(t, bot.TokenHint)
}

func TestCustomBotRequiresPremium(t *testing.T) {
	svc, _ := newTestService(t, "bot-test-key")
	ctx := context.Background()

	_, err := svc.Create(ctx, 7, false, domain.CreateRequest{Name: "Mine", BotType: "custom"})
	assert.ErrorIs(t, err, domain.ErrPremiumRequired)

	_, err = svc.Create(ctx, 7, false, domain.CreateRequest{Name: "Mine", IsPremium: true})
	assert.ErrorIs(t, err, domain.ErrPremiumRequired)

	bot, err := svc.Create(ctx, 7, true, domain.CreateRequest{Name: "Mine", BotType: "Custom"})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeCustom, bot.BotType)

	premium := true
	_, err = svc.Update(ctx, 7, false, bot.ID.String(), domain.UpdateRequest{IsPremium: &premium})
	assert.ErrorIs(t, err, domain.ErrPremiumRequired)

	_, err = svc.Create(ctx, 7, true, domain.CreateRequest{Name: "Mine", BotType: "selfbot"})
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestBotsAreOwnerScoped(t *testing.T) {
	svc, _ := newTestService(t, "bot-test-key")
	ctx := context.Background()

	bot, err := svc.Create(ctx, 7, false, domain.CreateRequest{Name: "Helper"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 8, bot.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Update(ctx, 8, true, bot.ID.String(), domain.UpdateRequest{Name: str("stolen")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 8, bot.ID.String()), domain.ErrNotFound)

	others, err := svc.List(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestDeleteDeactivates(t *testing.T) {
	svc, conn := newTestService(t, "bot-test-key")
	ctx := context.Background()

	bot, err := svc.Create(ctx, 7, false, domain.CreateRequest{Name: "Helper"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, 7, bot.ID.String()))

	_, err = svc.Get(ctx, 7, bot.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	bots, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, bots)

	var stored domain.Bot
	require.NoError(t, conn.Where("id = ?", bot.ID).First(&stored).Error)
	assert.False(t, stored.IsActive)
}

func TestStatsSumsActiveBots(t *testing.T) {
	svc, conn := newTestService(t, "bot-test-key")
	ctx := context.Background()

	online, err := svc.Create(ctx, 7, false, domain.CreateRequest{Name: "a"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, 7, false, online.ID.String(), domain.UpdateRequest{Status: str("Online")})
	require.NoError(t, err)
	offline, err := svc.Create(ctx, 7, false, domain.CreateRequest{Name: "b"})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&domain.Bot{}).Where("id = ?", online.ID).Updates(map[string]any{"server_count": 3, "user_count": 40}).Error)
	require.NoError(t, conn.Model(&domain.Bot{}).Where("id = ?", offline.ID).Updates(map[string]any{"server_count": 1, "user_count": 2}).Error)

	_, err = svc.Update(ctx, 7, false, offline.ID.String(), domain.UpdateRequest{Status: str("asleep")})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	stats, err := svc.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{ActiveBots: 1, TotalServers: 4, ActiveUsers: 42}, stats)

	empty, err := svc.Stats(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{}, empty)
}

func TestStandardBotConfig(t *testing.T) {
	svc, _ := newTestService(t, "bot-test-key")
	ctx := context.Background()

	cfg, err := svc.StandardConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "app-123", cfg.ClientID)
	assert.False(t, cfg.TokenConfigured)

	_, err = svc.SetStandardToken(ctx, domain.StandardTokenRequest{Token: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	updated, err := svc.SetStandardToken(ctx, domain.StandardTokenRequest{Token: botToken})
	require.NoError(t, err)
	assert.True(t, updated.TokenConfigured)
	assert.Equal(t, "****klmn", updated.TokenHint)

	_, err = svc.SetStandardToken(ctx, domain.StandardTokenRequest{Token: botToken + "x", ClientID: str("app-456")})
	require.NoError(t, err)

	cfg, err = svc.StandardConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "app-456", cfg.ClientID)
	assert.Equal(t, "****lmnx", cfg.TokenHint)
	assert.Equal(t, domain.DefaultStandardName, cfg.Name)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	accesstokendomain "github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	accesstokenrepo "github.com/smallbiznis/botcentral/internal/accesstoken/repository"
	accesstokenservice "github.com/smallbiznis/botcentral/internal/accesstoken/service"
	auditdomain "github.com/smallbiznis/botcentral/internal/audit/domain"
	auditrepo "github.com/smallbiznis/botcentral/internal/audit/repository"
	auditservice "github.com/smallbiznis/botcentral/internal/audit/service"
	authdomain "github.com/smallbiznis/botcentral/internal/auth/domain"
	authrepo "github.com/smallbiznis/botcentral/internal/auth/repository"
	authservice "github.com/smallbiznis/botcentral/internal/auth/service"
	"github.com/smallbiznis/botcentral/internal/auth/session"
	"github.com/smallbiznis/botcentral/internal/authorization"
	botdomain "github.com/smallbiznis/botcentral/internal/bot/domain"
	botrepo "github.com/smallbiznis/botcentral/internal/bot/repository"
	botservice "github.com/smallbiznis/botcentral/internal/bot/service"
	"github.com/smallbiznis/botcentral/internal/clock"
	communitydomain "github.com/smallbiznis/botcentral/internal/community/domain"
	communityrepo "github.com/smallbiznis/botcentral/internal/community/repository"
	communityservice "github.com/smallbiznis/botcentral/internal/community/service"
	"github.com/smallbiznis/botcentral/internal/config"
	discorddomain "github.com/smallbiznis/botcentral/internal/discord/domain"
	discordrepo "github.com/smallbiznis/botcentral/internal/discord/repository"
	discordservice "github.com/smallbiznis/botcentral/internal/discord/service"
	identityservice "github.com/smallbiznis/botcentral/internal/identity/service"
	polldomain "github.com/smallbiznis/botcentral/internal/poll/domain"
	pollrepo "github.com/smallbiznis/botcentral/internal/poll/repository"
	pollservice "github.com/smallbiznis/botcentral/internal/poll/service"
	"github.com/smallbiznis/botcentral/internal/ratelimit"
	roledomain "github.com/smallbiznis/botcentral/internal/role/domain"
	rolerepo "github.com/smallbiznis/botcentral/internal/role/repository"
	roleservice "github.com/smallbiznis/botcentral/internal/role/service"
	"github.com/smallbiznis/botcentral/internal/secretbox"
	"github.com/smallbiznis/botcentral/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "correct-horse-battery"

type testEnv struct {
	engine *gin.Engine
	clock  *clock.FakeClock
	auth   authdomain.Service
	tokens accesstokendomain.Service
	roles  roledomain.Service
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&accesstokendomain.AccessToken{},
		&auditdomain.AuditLog{},
		&roledomain.UserRole{},
		&discorddomain.Connection{},
		&discorddomain.Server{},
		&polldomain.Poll{},
		&polldomain.Option{},
		&polldomain.Vote{},
		&botdomain.Bot{},
		&botdomain.StandardBot{},
		&communitydomain.Event{},
		&communitydomain.Announcement{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://app.local"
	}
	if cfg.Discord.StateSecret == "" {
		cfg.Discord = config.DiscordConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://app.local/api/discord/callback",
			AuthURL:      "http://discord.invalid/oauth2/authorize",
			TokenURL:     "http://discord.invalid/oauth2/token",
			APIURL:       "http://discord.invalid/api",
			StateSecret:  "state-secret",
			StateTTL:     10 * time.Minute,
		}
	}

	box := secretbox.New("server-test-key")
	userRepo, sessionRepo := authrepo.New(conn)
	auth := authservice.New(log, userRepo, sessionRepo, node, clk)
	audit := auditservice.NewService(auditservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  auditrepo.Provide(),
	})
	tokens := accesstokenservice.New(accesstokenservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  accesstokenrepo.Provide(),
		Box:   box,
	})
	roles := roleservice.New(roleservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  rolerepo.Provide(),
	})
	discord := discordservice.New(discordservice.Params{
		DB:     conn,
		Log:    log,
		GenID:  node,
		Clock:  clk,
		Config: cfg,
		Repo:   discordrepo.Provide(),
	})

	polls := pollservice.New(pollservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  pollrepo.Provide(),
	})
	bots := botservice.New(botservice.Params{
		DB:     conn,
		Log:    log,
		GenID:  node,
		Clock:  clk,
		Repo:   botrepo.Provide(),
		Config: cfg,
		Box:    box,
	})
	community := communityservice.New(communityservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  communityrepo.Provide(),
	})

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{
		Log:        log,
		Enforcer:   enforcer,
		Roles:      roles,
		GuildAdmin: discord,
		AuditSvc:   audit,
	})

	resolver := identityservice.New(identityservice.Params{
		Log:          log,
		Clock:        clk,
		Sessions:     auth,
		Tokens:       tokens,
		Users:        identityservice.NewUserSource(auth),
		Entitlements: config.NewStaticEntitlementConfigHolder(config.DefaultEntitlementConfig()),
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	NewServer(ServerParams{
		Gin:          engine,
		Cfg:          cfg,
		Log:          log,
		Authsvc:      auth,
		Sessions:     session.NewManager(cfg),
		Resolver:     resolver,
		AuthzSvc:     authz,
		AuditSvc:     audit,
		TokenSvc:     tokens,
		RoleSvc:      roles,
		PollSvc:      polls,
		BotSvc:       bots,
		CommunitySvc: community,
		DiscordSvc:   discord,
		Limiter:      ratelimit.NewLimiter(ratelimit.LimiterParams{Config: cfg, Log: log}),
	})

	return &testEnv{engine: engine, clock: clk, auth: auth, tokens: tokens, roles: roles}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

// register signs up a user through the API and returns the session cookie.
func (e *testEnv) register(t *testing.T, email string) (*http.Cookie, snowflake.ID) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	id, err := snowflake.ParseString(body.Data.ID)
	require.NoError(t, err)
	return cookie, id
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var env errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	env := newTestEnv(t, config.Config{})

	rec := env.do(t, http.MethodGet, "/api/auth/user", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/personal-access-tokens", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardFollowsSubscriptionAndExpiry(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	cookie, userID := env.register(t, "owner@example.com")

	expiresAt := env.clock.Now().Add(24 * time.Hour)
	rec := env.do(t, http.MethodPost, "/api/personal-access-tokens", map[string]any{
		"name":      "dashboard",
		"expiresAt": expiresAt,
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var issued accesstokendomain.SecretResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	require.NotEmpty(t, issued.Secret)

	var dash dashboardResponse
	rec = env.do(t, http.MethodGet, "/api/dashboard/"+issued.Secret, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.False(t, dash.HasPremium)
	assert.Empty(t, dash.Permissions)
	assert.Empty(t, dash.Features)
	assert.Equal(t, issued.Token.TokenHint, dash.TokenHint)

	tier := config.TierPremiumMonthly
	status := authdomain.SubscriptionStatusActive
	_, err := env.auth.UpdateSubscription(context.Background(), userID, authdomain.UpdateSubscriptionRequest{
		Tier:   &tier,
		Status: &status,
	})
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/api/dashboard/"+issued.Secret, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.True(t, dash.HasPremium)
	assert.Equal(t, []string{accesstokendomain.PermissionPremium}, dash.Permissions)
	assert.Equal(t, premiumFeatures, dash.Features)

	env.clock.Advance(25 * time.Hour)

	rec = env.do(t, http.MethodGet, "/api/dashboard/"+issued.Secret, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardRejectsUnknownSecret(t *testing.T) {
	env := newTestEnv(t, config.Config{})

	rec := env.do(t, http.MethodGet, "/api/dashboard/not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardIsRateLimitedPerClient(t *testing.T) {
	env := newTestEnv(t, config.Config{RateLimit: config.RateLimitConfig{
		DashboardRate:  0.001,
		DashboardBurst: 1,
	}})

	rec := env.do(t, http.MethodGet, "/api/dashboard/not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/dashboard/not-a-token", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestDeleteForeignTokenLooksMissing(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	_, ownerID := env.register(t, "owner@example.com")
	otherCookie, _ := env.register(t, "other@example.com")

	issued, err := env.tokens.Issue(context.Background(), ownerID, accesstokendomain.CreateRequest{Name: "owned"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodDelete, "/api/personal-access-tokens/"+issued.Token.ID, nil, otherCookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)

	tokens, err := env.tokens.List(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

func TestBearerTokenCannotManageTokens(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	_, ownerID := env.register(t, "owner@example.com")

	issued, err := env.tokens.Issue(context.Background(), ownerID, accesstokendomain.CreateRequest{Name: "cli"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/personal-access-tokens", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Secret)
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBannedUserIsForbiddenInGuild(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	cookie, userID := env.register(t, "banned@example.com")

	guildID := "g1"
	_, err := env.roles.Create(context.Background(), snowflake.ID(1), roledomain.CreateRequest{
		UserID:  userID.String(),
		Role:    roledomain.RoleModerator,
		GuildID: &guildID,
	})
	require.NoError(t, err)
	_, err = env.roles.Create(context.Background(), snowflake.ID(1), roledomain.CreateRequest{
		UserID:  userID.String(),
		Role:    roledomain.RoleBanned,
		GuildID: &guildID,
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/moderation/logs?guildId=g1", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Type)
}

func TestGuildRoutesRequireGuild(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	cookie, _ := env.register(t, "member@example.com")

	rec := env.do(t, http.MethodGet, "/api/audit-logs", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscordCallbackRejectsForgedState(t *testing.T) {
	env := newTestEnv(t, config.Config{})

	rec := env.do(t, http.MethodGet, "/api/discord/callback?code=abc&state=forged", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/discord-connection", location.Path)
	assert.Equal(t, "invalid_state", location.Query().Get("error"))
}

func TestDiscordCallbackReportsProviderDenial(t *testing.T) {
	env := newTestEnv(t, config.Config{})

	rec := env.do(t, http.MethodGet, "/api/discord/callback?error=access_denied", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "discord_denied", location.Query().Get("error"))
}

func TestSubscriptionEndpoints(t *testing.T) {
	env := newTestEnv(t, config.Config{})

	rec := env.do(t, http.MethodGet, "/api/user/subscription", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), config.TierFree)

	cookie, _ := env.register(t, "buyer@example.com")
	rec = env.do(t, http.MethodPost, "/api/subscription/create", map[string]string{"plan": "monthly"}, cookie)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestForeignRecordLooksMissing(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	_, moderatorID := env.register(t, "moderator@example.com")
	outsider, _ := env.register(t, "outsider@example.com")

	guildID := "g-private"
	grant, err := env.roles.Create(context.Background(), snowflake.ID(1), roledomain.CreateRequest{
		UserID:  moderatorID.String(),
		Role:    roledomain.RoleModerator,
		GuildID: &guildID,
	})
	require.NoError(t, err)
	missingID := (grant.ID + 1000).String()

	cases := []struct {
		method string
		body   any
	}{
		{method: http.MethodDelete},
		{method: http.MethodPut, body: map[string]any{"isActive": false}},
	}
	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			foreign := env.do(t, tc.method, "/api/moderation/roles/"+grant.ID.String(), tc.body, outsider)
			missing := env.do(t, tc.method, "/api/moderation/roles/"+missingID, tc.body, outsider)

			assert.Equal(t, http.StatusNotFound, foreign.Code)
			assert.Equal(t, missing.Code, foreign.Code)
			assert.Equal(t, "not_found", decodeError(t, foreign).Type)
			assert.Equal(t, missing.Body.String(), foreign.Body.String())
		})
	}

	stored, err := env.roles.Get(context.Background(), grant.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestListAccessTokensReturnsSecrets(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	cookie, _ := env.register(t, "owner@example.com")

	rec := env.do(t, http.MethodPost, "/api/personal-access-tokens", map[string]any{"name": "cli"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var issued accesstokendomain.SecretResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

	rec = env.do(t, http.MethodGet, "/api/personal-access-tokens", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list struct {
		Data []accesstokendomain.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, issued.Secret, list.Data[0].Token)
	assert.Equal(t, issued.Token.TokenHint, list.Data[0].TokenHint)
}

func TestPollVotingFlow(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	author, _ := env.register(t, "author@example.com")
	voter, _ := env.register(t, "voter@example.com")

	rec := env.do(t, http.MethodPost, "/api/polls", map[string]any{
		"title":   "Best map",
		"options": []string{"Dust", "Inferno"},
	}, author)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data struct {
			ID      string `json:"id"`
			Options []struct {
				ID string `json:"id"`
			} `json:"options"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Data.Options, 2)
	pollPath := "/api/polls/" + created.Data.ID
	inferno := created.Data.Options[1].ID

	rec = env.do(t, http.MethodPost, pollPath+"/vote", map[string]string{"optionId": inferno}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, pollPath+"/vote", map[string]string{"optionId": inferno}, voter)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, pollPath+"/vote", map[string]string{"optionId": created.Data.Options[0].ID}, voter)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Type)

	rec = env.do(t, http.MethodGet, pollPath+"/my-vote", nil, voter)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), inferno)

	rec = env.do(t, http.MethodGet, pollPath+"/results", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results struct {
		Data struct {
			TotalVotes int64 `json:"totalVotes"`
			Options    []struct {
				OptionID string `json:"optionId"`
				Votes    int64  `json:"votes"`
			} `json:"options"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Equal(t, int64(1), results.Data.TotalVotes)
	require.Len(t, results.Data.Options, 2)
	assert.Equal(t, int64(0), results.Data.Options[0].Votes)
	assert.Equal(t, inferno, results.Data.Options[1].OptionID)
	assert.Equal(t, int64(1), results.Data.Options[1].Votes)

	rec = env.do(t, http.MethodDelete, pollPath, nil, voter)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodDelete, pollPath, nil, author)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, pollPath, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBotsAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	owner, ownerID := env.register(t, "owner@example.com")
	other, _ := env.register(t, "other@example.com")

	rec := env.do(t, http.MethodPost, "/api/bots", map[string]any{"name": "Custom", "botType": "custom"}, owner)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	tier := config.TierPremiumMonthly
	status := authdomain.SubscriptionStatusActive
	_, err := env.auth.UpdateSubscription(context.Background(), ownerID, authdomain.UpdateSubscriptionRequest{Tier: &tier, Status: &status})
	require.NoError(t, err)

	rec = env.do(t, http.MethodPost, "/api/bots", map[string]any{
		"name":    "Custom",
		"botType": "custom",
		"token":   "MTIzNDU2Nzg5.Gh_abc.def_ghijklmn",
	}, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "def_ghijklmn")
	var created struct {
		Data struct {
			ID        string `json:"id"`
			TokenHint string `json:"tokenHint"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "****klmn", created.Data.TokenHint)
	botPath := "/api/bots/" + created.Data.ID

	rec = env.do(t, http.MethodGet, botPath, nil, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodDelete, botPath, nil, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/bots", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.Data.ID)
}

func TestStandardBotToken(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	cookie, _ := env.register(t, "member@example.com")

	rec := env.do(t, http.MethodGet, "/api/standard-bot/config", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg struct {
		Data botdomain.StandardConfig `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, "client", cfg.Data.ClientID)
	assert.False(t, cfg.Data.TokenConfigured)

	rec = env.do(t, http.MethodPost, "/api/standard-bot/token", map[string]string{"token": "abc.def.ghi"}, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardStatsAndActivity(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	cookie, _ := env.register(t, "owner@example.com")

	rec := env.do(t, http.MethodGet, "/api/dashboard/stats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/bots", map[string]any{"name": "Helper"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, "/api/events", map[string]any{
		"title": "Launch party",
		"date":  env.clock.Now().Add(48 * time.Hour),
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/dashboard/stats", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats struct {
		Data struct {
			ActiveBots     int64 `json:"activeBots"`
			UpcomingEvents []struct {
				Title string `json:"title"`
			} `json:"upcomingEvents"`
			RecentActivity []struct {
				Action string `json:"action"`
			} `json:"recentActivity"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.Data.ActiveBots)
	require.Len(t, stats.Data.UpcomingEvents, 1)
	assert.Equal(t, "Launch party", stats.Data.UpcomingEvents[0].Title)
	require.NotEmpty(t, stats.Data.RecentActivity)

	rec = env.do(t, http.MethodGet, "/api/activity-logs", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bot.created")
	assert.Contains(t, rec.Body.String(), "event.created")
}

package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/config"
	"github.com/smallbiznis/botcentral/internal/discord/domain"
	"github.com/smallbiznis/botcentral/internal/discord/repository"
	"github.com/smallbiznis/botcentral/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUserID snowflake.ID = 1001

type fakeDiscord struct {
	guilds     string
	failGuilds bool
}

func (f *fakeDiscord) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "discord-access",
			"refresh_token": "discord-refresh",
			"token_type":    "Bearer",
			"expires_in":    604800,
			"scope":         "identify guilds",
		})
	})
	mux.HandleFunc("/api/users/@me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer discord-access", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"555","username":"modbot","discriminator":"0","avatar":null}`))
	})
	mux.HandleFunc("/api/users/@me/guilds", func(w http.ResponseWriter, r *http.Request) {
		if f.failGuilds {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(f.guilds))
	})
	return mux
}

func newTestService(t *testing.T, fake *fakeDiscord) (*Service, *clock.FakeClock) {
	t.Helper()

	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Connection{}, &domain.Server{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Config: config.Config{Discord: config.DiscordConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost/api/discord/callback",
			AuthURL:      srv.URL + "/oauth2/authorize",
			TokenURL:     srv.URL + "/oauth2/token",
			APIURL:       srv.URL + "/api",
			StateSecret:  "state-secret",
			StateTTL:     10 * time.Minute,
		}},
		Repo:       repository.Provide(),
		HTTPClient: srv.Client(),
	})
	return svc.(*Service), clk
}

const twoGuilds = `[
	{"id":"g-owned","name":"Owned","icon":null,"owner":true,"permissions":"0","features":["COMMUNITY"]},
	{"id":"g-admin","name":"Admin","owner":false,"permissions":"2147483656","features":[]},
	{"id":"g-member","name":"Member","owner":false,"permissions":1024}
]`

func TestAuthURLCarriesSignedState(t *testing.T) {
	svc, _ := newTestService(t, &fakeDiscord{})
	ctx := context.Background()

	raw, err := svc.AuthURL(ctx, testUserID)
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "identify guilds", q.Get("scope"))
	assert.Equal(t, "code", q.Get("response_type"))

	userID, err := svc.VerifyState(ctx, q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)
}

func TestVerifyStateRejectsForgedAndExpired(t *testing.T) {
	svc, clk := newTestService(t, &fakeDiscord{})
	ctx := context.Background()

	state, err := svc.signState(testUserID)
	require.NoError(t, err)

	_, err = svc.VerifyState(ctx, state+"x")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = svc.VerifyState(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	other, _ := newTestService(t, &fakeDiscord{})
	other.stateSecret = []byte("different")
	forged, err := other.signState(testUserID)
	require.NoError(t, err)
	_, err = svc.VerifyState(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	clk.Advance(11 * time.Minute)
	_, err = svc.VerifyState(ctx, state)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestConnectStoresConnectionAndServers(t *testing.T) {
	svc, _ := newTestService(t, &fakeDiscord{guilds: twoGuilds})
	ctx := context.Background()

	conn, err := svc.Connect(ctx, testUserID, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "555", conn.DiscordUserID)
	assert.Equal(t, "modbot", conn.DiscordUsername)
	assert.Equal(t, []string{"identify", "guilds"}, []string(conn.Scopes))

	servers, err := svc.ListServers(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, servers, 3)

	// Reconnecting keeps a single connection row and refreshes servers in place.
	again, err := svc.Connect(ctx, testUserID, "good-code")
	require.NoError(t, err)
	assert.Equal(t, conn.ID, again.ID)
	servers, err = svc.ListServers(ctx, testUserID)
	require.NoError(t, err)
	assert.Len(t, servers, 3)

	cases := []struct {
		guild string
		want  bool
	}{
		{guild: "g-owned", want: true},
		{guild: "g-admin", want: true},
		{guild: "g-member", want: false},
		{guild: "g-unknown", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.guild, func(t *testing.T) {
			got, err := svc.IsGuildAdmin(ctx, testUserID, tc.guild)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConnectUpstreamFailures(t *testing.T) {
	fake := &fakeDiscord{guilds: twoGuilds}
	svc, _ := newTestService(t, fake)
	ctx := context.Background()

	_, err := svc.Connect(ctx, testUserID, "bad-code")
	assert.ErrorIs(t, err, domain.ErrUpstream)

	fake.failGuilds = true
	_, err = svc.Connect(ctx, testUserID, "good-code")
	assert.ErrorIs(t, err, domain.ErrUpstream)

	_, err = svc.GetConnection(ctx, testUserID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSelectServerAndDisconnect(t *testing.T) {
	svc, _ := newTestService(t, &fakeDiscord{guilds: twoGuilds})
	ctx := context.Background()

	_, err := svc.Connect(ctx, testUserID, "good-code")
	require.NoError(t, err)

	_, err = svc.SelectServer(ctx, testUserID, "g-owned")
	require.NoError(t, err)
	selected, err := svc.SelectServer(ctx, testUserID, "g-admin")
	require.NoError(t, err)
	assert.True(t, selected.IsSelected)

	servers, err := svc.ListServers(ctx, testUserID)
	require.NoError(t, err)
	count := 0
	for _, s := range servers {
		if s.IsSelected {
			count++
			assert.Equal(t, "g-admin", s.ServerID)
		}
	}
	assert.Equal(t, 1, count)

	_, err = svc.SelectServer(ctx, testUserID, "g-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Disconnect(ctx, testUserID))
	servers, err = svc.ListServers(ctx, testUserID)
	require.NoError(t, err)
	assert.Empty(t, servers)
	assert.ErrorIs(t, svc.Disconnect(ctx, testUserID), domain.ErrNotFound)
}

func TestNotConfigured(t *testing.T) {
	svc := New(Params{Log: zap.NewNop(), Clock: clock.New()})

	_, err := svc.AuthURL(context.Background(), testUserID)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

type memNonces struct {
	seen map[string]bool
}

func (m *memNonces) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func TestVerifyStateRejectsReplay(t *testing.T) {
	svc, _ := newTestService(t, &fakeDiscord{})
	svc.nonces = &memNonces{seen: map[string]bool{}}
	ctx := context.Background()

	state, err := svc.signState(testUserID)
	require.NoError(t, err)

	userID, err := svc.VerifyState(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)

	_, err = svc.VerifyState(ctx, state)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/poll/domain"
	"github.com/smallbiznis/botcentral/internal/poll/repository"
	"github.com/smallbiznis/botcentral/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Poll{}, &domain.Option{}, &domain.Vote{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))
	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	}), fake
}

func createPoll(t *testing.T, svc domain.Service, options ...string) *domain.Poll {
	t.Helper()
	poll, err := svc.Create(context.Background(), 7, domain.CreateRequest{
		Title:   "Next game night",
		Options: options,
	})
	require.NoError(t, err)
	return poll
}

func TestCreateStoresOrderedOptions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	poll := createPoll(t, svc, "Friday", " Saturday ", "Sunday")
	assert.Equal(t, domain.CategoryGeneral, poll.Category)
	assert.True(t, poll.IsActive)

	got, err := svc.Get(ctx, poll.ID.String())
	require.NoError(t, err)
	require.Len(t, got.Options, 3)
	assert.Equal(t, "Saturday", got.Options[1].Text)
	assert.Equal(t, 2, got.Options[2].Position)
}

func TestCreateValidation(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	past := fake.Now().Add(-time.Hour)

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{name: "blank title", req: domain.CreateRequest{Title: " "}, want: domain.ErrInvalidTitle},
		{name: "unknown category", req: domain.CreateRequest{Title: "x", Category: "memes"}, want: domain.ErrInvalidCategory},
		{name: "expired", req: domain.CreateRequest{Title: "x", ExpiresAt: &past}, want: domain.ErrInvalidExpiry},
		{name: "blank option", req: domain.CreateRequest{Title: "x", Options: []string{"a", ""}}, want: domain.ErrInvalidOption},
		{name: "too many options", req: domain.CreateRequest{Title: "x", Options: make([]string, domain.MaxOptions+1)}, want: domain.ErrTooManyOptions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, 7, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestVoteOncePerUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	poll := createPoll(t, svc, "yes", "no")

	_, err := svc.Vote(ctx, poll.ID.String(), 42, domain.VoteRequest{OptionID: poll.Options[0].ID.String()})
	require.NoError(t, err)

	_, err = svc.Vote(ctx, poll.ID.String(), 42, domain.VoteRequest{OptionID: poll.Options[1].ID.String()})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	mine, err := svc.MyVote(ctx, poll.ID.String(), 42)
	require.NoError(t, err)
	require.NotNil(t, mine)
	assert.Equal(t, poll.Options[0].ID, mine.OptionID)

	none, err := svc.MyVote(ctx, poll.ID.String(), 43)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestVoteRejectsForeignOptionAndClosedPoll(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	first := createPoll(t, svc, "a")
	second := createPoll(t, svc, "b")

	_, err := svc.Vote(ctx, first.ID.String(), 42, domain.VoteRequest{OptionID: second.Options[0].ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	_, err = svc.Vote(ctx, first.ID.String(), 42, domain.VoteRequest{OptionID: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	inactive := false
	_, err = svc.Update(ctx, first.ID.String(), domain.UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)
	_, err = svc.Vote(ctx, first.ID.String(), 42, domain.VoteRequest{OptionID: first.Options[0].ID.String()})
	assert.ErrorIs(t, err, domain.ErrPollClosed)

	expires := fake.Now().Add(time.Hour)
	expiring, err := svc.Create(ctx, 7, domain.CreateRequest{Title: "soon", ExpiresAt: &expires, Options: []string{"x"}})
	require.NoError(t, err)
	fake.Advance(2 * time.Hour)
	_, err = svc.Vote(ctx, expiring.ID.String(), 42, domain.VoteRequest{OptionID: expiring.Options[0].ID.String()})
	assert.ErrorIs(t, err, domain.ErrPollClosed)
}

func TestResultsCountsVotesPerOption(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	poll := createPoll(t, svc, "red", "green", "blue")

	for user, option := range map[snowflake.ID]int{1: 0, 2: 0, 3: 2} {
		_, err := svc.Vote(ctx, poll.ID.String(), user, domain.VoteRequest{OptionID: poll.Options[option].ID.String()})
		require.NoError(t, err)
	}

	results, err := svc.Results(ctx, poll.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(3), results.TotalVotes)
	require.Len(t, results.Options, 3)
	assert.Equal(t, "red", results.Options[0].Text)
	assert.Equal(t, int64(2), results.Options[0].Votes)
	assert.Equal(t, int64(0), results.Options[1].Votes)
	assert.Equal(t, int64(1), results.Options[2].Votes)
}

func TestAddOptionLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	poll := createPoll(t, svc)

	for i := 0; i < domain.MaxOptions; i++ {
		option, err := svc.AddOption(ctx, poll.ID.String(), domain.AddOptionRequest{Text: "option"})
		require.NoError(t, err)
		assert.Equal(t, i, option.Position)
	}
	_, err := svc.AddOption(ctx, poll.ID.String(), domain.AddOptionRequest{Text: "one more"})
	assert.ErrorIs(t, err, domain.ErrTooManyOptions)

	options, err := svc.ListOptions(ctx, poll.ID.String())
	require.NoError(t, err)
	assert.Len(t, options, domain.MaxOptions)
}

func TestDeleteRemovesVotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	poll := createPoll(t, svc, "a")
	_, err := svc.Vote(ctx, poll.ID.String(), 42, domain.VoteRequest{OptionID: poll.Options[0].ID.String()})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, poll.ID.String()))
	_, err = svc.Get(ctx, poll.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, poll.ID.String()), domain.ErrNotFound)
}

func TestListFiltersByCategory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createPoll(t, svc, "a")
	_, err := svc.Create(ctx, 7, domain.CreateRequest{Title: "roadmap", Category: "Features"})
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	features, err := svc.List(ctx, "features")
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "roadmap", features[0].Title)
	assert.NotNil(t, features[0].Options)

	_, err = svc.List(ctx, "memes")
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

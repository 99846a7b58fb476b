package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceStoreClaimsOnce(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewNonceStore(nil)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	fresh, err := store.Claim(ctx, "discord:state:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = store.Claim(ctx, "discord:state:abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, fresh)

	fresh, err = store.Claim(ctx, "discord:state:def", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	now = now.Add(2 * time.Minute)
	fresh, err = store.Claim(ctx, "discord:state:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	_, err = store.Claim(ctx, "", time.Minute)
	assert.ErrorIs(t, err, errEmptyNonce)
}

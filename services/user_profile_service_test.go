package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddReceivedLikeDeduplicates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	seedProfile(t, env, "bob", "Bob", false)

	ok, err := env.profiles.AddReceivedLike(ctx, "bob", "alice", "2026-09-01T10:00:00Z")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.profiles.AddReceivedLike(ctx, "bob", "alice", "2026-09-01T11:00:00Z")
	require.NoError(t, err)
	assert.True(t, ok)

	likes, err := env.profiles.ListReceivedLikes(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, "alice", likes[0].FromUserID)
	assert.Equal(t, "2026-09-01T11:00:00Z", likes[0].LikedAt)
}

func TestAddReceivedLikeMissingProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	// The target was deleted between the write and the trigger run; the
	// entry must not resurrect the profile, and the caller is told.
	ok, err := env.profiles.AddReceivedLike(ctx, "ghost", "alice", "2026-09-01T10:00:00Z")
	require.NoError(t, err)
	assert.False(t, ok)

	profile, err := env.profiles.GetProfile(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestListReceivedLikesOrdering(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	seedProfile(t, env, "bob", "Bob", false)

	for _, like := range []struct{ from, at string }{
		{"carol", "2026-09-01T09:00:00Z"},
		{"alice", "2026-09-01T10:00:00Z"},
		{"dave", "2026-09-01T09:00:00Z"},
	} {
		_, err := env.profiles.AddReceivedLike(ctx, "bob", like.from, like.at)
		require.NoError(t, err)
	}

	likes, err := env.profiles.ListReceivedLikes(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, likes, 3)
	assert.Equal(t, "carol", likes[0].FromUserID)
	assert.Equal(t, "dave", likes[1].FromUserID)
	assert.Equal(t, "alice", likes[2].FromUserID)
}

func TestRemoveReceivedLikeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	seedProfile(t, env, "bob", "Bob", false)
	_, err := env.profiles.AddReceivedLike(ctx, "bob", "alice", "2026-09-01T10:00:00Z")
	require.NoError(t, err)

	require.NoError(t, env.profiles.RemoveReceivedLike(ctx, "bob", "alice"))
	require.NoError(t, env.profiles.RemoveReceivedLike(ctx, "bob", "alice"))
	require.NoError(t, env.profiles.RemoveReceivedLike(ctx, "ghost", "alice"))

	likes, err := env.profiles.ListReceivedLikes(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, likes)
}

func TestPushSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	seedProfile(t, env, "bob", "Bob", false)

	require.NoError(t, env.profiles.SavePushSubscription(ctx, "bob", testSubscription("bob")))
	profile, err := env.profiles.GetProfile(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, testSubscription("bob"), profile.PushSubscription)

	require.NoError(t, env.profiles.ClearPushSubscription(ctx, "bob"))
	profile, err = env.profiles.GetProfile(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Empty(t, profile.PushSubscription)
}

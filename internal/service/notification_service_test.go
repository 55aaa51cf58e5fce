package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationAddNormalizesAndDefaults(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	watch, err := env.notifications.Add(ctx, "  abc123  ")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", watch.PlateNumber)
	assert.True(t, watch.Enabled)
	assert.Equal(t, 1, watch.Priority)

	_, err = env.notifications.Add(ctx, "   ")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestNotificationAddReEnablesExisting(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	_, err := env.notifications.Add(ctx, "ABC123")
	require.NoError(t, err)
	require.NoError(t, env.notifications.SetPriority(ctx, "ABC123", 2))
	require.NoError(t, env.notifications.SetEnabled(ctx, "ABC123", false))

	watch, err := env.notifications.Add(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, watch.Enabled)
	// Re-adding keeps the tuned priority.
	assert.Equal(t, 2, watch.Priority)
}

func TestNotificationPriorityBounds(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	_, err := env.notifications.Add(ctx, "ABC123")
	require.NoError(t, err)

	require.ErrorIs(t, env.notifications.SetPriority(ctx, "ABC123", 3), ErrInvalidInput)
	require.ErrorIs(t, env.notifications.SetPriority(ctx, "ABC123", -3), ErrInvalidInput)
	require.NoError(t, env.notifications.SetPriority(ctx, "ABC123", -2))

	require.ErrorIs(t, env.notifications.SetPriority(ctx, "NOPE99", 1), ErrNotFound)
}

func TestNotificationDelete(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	_, err := env.notifications.Add(ctx, "ABC123")
	require.NoError(t, err)

	require.NoError(t, env.notifications.Delete(ctx, "ABC123"))
	require.ErrorIs(t, env.notifications.Delete(ctx, "ABC123"), ErrNotFound)
}

func TestNotificationListIncludesTags(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedRead(t, "ABC123", ts("2026-08-30T09:00:00Z").UTC())
	_, err := env.tags.Create(ctx, "suspicious", "#FF0000")
	require.NoError(t, err)
	require.NoError(t, env.tags.AddToPlate(ctx, "ABC123", "suspicious"))

	_, err = env.notifications.Add(ctx, "ABC123")
	require.NoError(t, err)

	views, err := env.notifications.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Tags, 1)
	assert.Equal(t, "suspicious", views[0].Tags[0].Name)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagCreateValidation(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	tag, err := env.tags.Create(ctx, "suspicious", "")
	require.NoError(t, err)
	assert.Equal(t, "#808080", tag.Color)

	_, err = env.tags.Create(ctx, "suspicious", "#00FF00")
	require.ErrorIs(t, err, ErrConflict)

	_, err = env.tags.Create(ctx, "", "#00FF00")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.tags.Create(ctx, "bad-color", "red")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestTagUpdateColor(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	_, err := env.tags.Create(ctx, "suspicious", "#FF0000")
	require.NoError(t, err)

	require.NoError(t, env.tags.UpdateColor(ctx, "suspicious", "#0000FF"))
	require.ErrorIs(t, env.tags.UpdateColor(ctx, "suspicious", "blue"), ErrInvalidInput)
	require.ErrorIs(t, env.tags.UpdateColor(ctx, "missing", "#0000FF"), ErrNotFound)
}

func TestTagAttachDetach(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedRead(t, "ABC123", ts("2026-08-30T09:00:00Z").UTC())
	_, err := env.tags.Create(ctx, "suspicious", "#FF0000")
	require.NoError(t, err)

	require.NoError(t, env.tags.AddToPlate(ctx, "ABC123", "suspicious"))
	// Attaching twice is a no-op, not an error.
	require.NoError(t, env.tags.AddToPlate(ctx, "ABC123", "suspicious"))

	tags, err := env.tags.TagsForPlate(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "suspicious", tags[0].Name)

	require.ErrorIs(t, env.tags.AddToPlate(ctx, "NOPE99", "suspicious"), ErrNotFound)
	require.ErrorIs(t, env.tags.AddToPlate(ctx, "ABC123", "missing"), ErrNotFound)

	require.NoError(t, env.tags.RemoveFromPlate(ctx, "ABC123", "suspicious"))
	tags, err = env.tags.TagsForPlate(ctx, "ABC123")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestTagDeleteRemovesAssignments(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedRead(t, "ABC123", ts("2026-08-30T09:00:00Z").UTC())
	_, err := env.tags.Create(ctx, "suspicious", "#FF0000")
	require.NoError(t, err)
	require.NoError(t, env.tags.AddToPlate(ctx, "ABC123", "suspicious"))

	require.NoError(t, env.tags.Delete(ctx, "suspicious"))
	require.ErrorIs(t, env.tags.Delete(ctx, "suspicious"), ErrNotFound)

	tags, err := env.tags.TagsForPlate(ctx, "ABC123")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

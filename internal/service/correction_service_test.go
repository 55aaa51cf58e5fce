package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpr-service/internal/model"
)

func strPtr(s string) *string { return &s }

func TestCorrectOneRetargetsSingleRead(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	result, err := env.ingest.ProcessEvent(ctx, IngestInput{PlateNumber: "A8C123", Timestamp: ts("2026-08-30T10:00:00Z")})
	require.NoError(t, err)
	readID := result.Processed[0].ID

	require.NoError(t, env.corrections.CorrectOne(ctx, readID, "ABC123"))

	read, err := env.readRepo.GetByID(ctx, readID)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", read.PlateNumber)

	// The corrected-to plate gets its own identity row.
	_, err = env.plateRepo.GetByPlateNumber(ctx, "ABC123")
	require.NoError(t, err)
}

func TestCorrectOneUnknownRead(t *testing.T) {
	env := newTestEnv(t, 2000)
	err := env.corrections.CorrectOne(context.Background(), 9999, "ABC123")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCorrectAllMovesHistoryAndRemovesOldPlate(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedRead(t, "A8C123", ts("2026-08-30T09:00:00Z").UTC())
	env.seedRead(t, "A8C123", ts("2026-08-30T09:05:00Z").UTC())

	require.NoError(t, env.corrections.CorrectAll(ctx, "A8C123", "ABC123", true))

	count, err := env.readRepo.CountByPlate(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = env.readRepo.CountByPlate(ctx, "A8C123")
	require.NoError(t, err)
	assert.Zero(t, count)

	// The corrected plate inherits the earliest moved timestamp.
	plate, err := env.plateRepo.GetByPlateNumber(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, ts("2026-08-30T09:00:00Z").Unix(), plate.FirstSeenAt.Unix())

	_, err = env.plateRepo.GetByPlateNumber(ctx, "A8C123")
	require.Error(t, err)
}

func TestCorrectAllRequiresExistingOldPlate(t *testing.T) {
	env := newTestEnv(t, 2000)
	err := env.corrections.CorrectAll(context.Background(), "NOPE99", "ABC123", false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetMisreadsReplacesAliasSet(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", strPtr("Me"), nil, []string{"A8C123", "ABC1Z3"}))

	misreads, err := env.knownPlateRepo.MisreadsOf(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, misreads, 2)

	// Re-listing keeps one alias and detaches the other.
	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", strPtr("Me"), nil, []string{"A8C123"}))

	misreads, err = env.knownPlateRepo.MisreadsOf(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, misreads, 1)
	assert.Equal(t, "A8C123", misreads[0].PlateNumber)

	detached, err := env.knownPlateRepo.Get(ctx, "ABC1Z3")
	require.NoError(t, err)
	assert.Nil(t, detached)
}

func TestSetMisreadsRejectsSelfAndDuplicates(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	err := env.corrections.SetMisreads(ctx, "ABC123", nil, nil, []string{"ABC123"})
	require.ErrorIs(t, err, ErrInvalidInput)

	err = env.corrections.SetMisreads(ctx, "ABC123", nil, nil, []string{"A8C123", "A8C123"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSetMisreadsRejectsChains(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", nil, nil, []string{"A8C123"}))

	err := env.corrections.SetMisreads(ctx, "A8C123", nil, nil, []string{"AAC123"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestSetMisreadsConflictLeavesNothingBehind(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", nil, nil, []string{"A8C123"}))

	// A8C123 already belongs to ABC123; XYZ789 must not be created either.
	err := env.corrections.SetMisreads(ctx, "DEF456", nil, nil, []string{"XYZ789", "A8C123"})
	require.ErrorIs(t, err, ErrConflict)

	kp, err := env.knownPlateRepo.Get(ctx, "DEF456")
	require.NoError(t, err)
	assert.Nil(t, kp)

	kp, err = env.knownPlateRepo.Get(ctx, "XYZ789")
	require.NoError(t, err)
	assert.Nil(t, kp)

	kp, err = env.knownPlateRepo.Get(ctx, "A8C123")
	require.NoError(t, err)
	require.NotNil(t, kp)
	assert.Equal(t, "ABC123", *kp.ParentPlateNumber)
}

func TestRemoveKnownPlateKeepsReads(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedRead(t, "ABC123", ts("2026-08-30T09:00:00Z").UTC())
	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", strPtr("Me"), nil, []string{"A8C123"}))

	require.NoError(t, env.corrections.RemoveKnownPlate(ctx, "ABC123"))

	kp, err := env.knownPlateRepo.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.Nil(t, kp)
	kp, err = env.knownPlateRepo.Get(ctx, "A8C123")
	require.NoError(t, err)
	assert.Nil(t, kp)

	count, err := env.readRepo.CountByPlate(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRemovePlateCascadesReadsAndAllowsReIngest(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedRead(t, "ABC123", ts("2026-08-30T09:00:00Z").UTC())
	env.seedRead(t, "A8C123", ts("2026-08-30T09:05:00Z").UTC())
	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", nil, nil, []string{"A8C123"}))

	require.NoError(t, env.corrections.RemovePlate(ctx, "ABC123"))

	count, err := env.readRepo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// A later sighting starts a fresh history.
	result, err := env.ingest.ProcessEvent(ctx, IngestInput{PlateNumber: "ABC123", Timestamp: ts("2026-08-31T08:00:00Z")})
	require.NoError(t, err)
	require.Len(t, result.Processed, 1)

	plate, err := env.plateRepo.GetByPlateNumber(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, ts("2026-08-31T08:00:00Z").Unix(), plate.FirstSeenAt.Unix())
}

func TestDeleteMisreadReadsRequiresCurrentAlias(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedRead(t, "A8C123", ts("2026-08-30T09:00:00Z").UTC())

	err := env.corrections.DeleteMisreadReads(ctx, "A8C123")
	require.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", nil, nil, []string{"A8C123"}))
	require.NoError(t, env.corrections.DeleteMisreadReads(ctx, "A8C123"))

	count, err := env.readRepo.CountByPlate(ctx, "A8C123")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestToggleFlag(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedRead(t, "ABC123", ts("2026-08-30T09:00:00Z").UTC())

	require.NoError(t, env.corrections.ToggleFlag(ctx, "ABC123", true))
	plate, err := env.plateRepo.GetByPlateNumber(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, plate.Flagged)

	require.ErrorIs(t, env.corrections.ToggleFlag(ctx, "NOPE99", true), ErrNotFound)
}

func TestDeleteRead(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedRead(t, "ABC123", ts("2026-08-30T09:00:00Z").UTC())
	var read model.PlateRead
	require.NoError(t, env.db.First(&read).Error)

	require.NoError(t, env.corrections.DeleteRead(ctx, read.ID))
	require.ErrorIs(t, env.corrections.DeleteRead(ctx, read.ID), ErrNotFound)
}

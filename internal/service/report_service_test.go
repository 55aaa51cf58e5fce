package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) seedReads(t *testing.T, plate string, first time.Time, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		e.seedRead(t, plate, first.Add(time.Duration(i)*time.Minute))
	}
}

func TestListPlatesRollsUpMisreads(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedReads(t, "ABC123", ts("2026-08-29T08:00:00Z").UTC(), 2)
	env.seedReads(t, "A8C123", ts("2026-08-30T08:00:00Z").UTC(), 1)
	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", strPtr("Neighbor"), nil, []string{"A8C123"}))

	result, err := env.reports.ListPlates(ctx, PlateListQuery{})
	require.NoError(t, err)

	// The misread's own row disappears from the listing.
	require.Len(t, result.Data, 1)
	row := result.Data[0]
	assert.Equal(t, "ABC123", row.PlateNumber)
	assert.Equal(t, int64(3), row.OccurrenceCount)
	assert.Equal(t, "Neighbor", *row.Name)
	require.NotNil(t, row.LastSeenAt)
	assert.Equal(t, ts("2026-08-30T08:00:00Z").Unix(), row.LastSeenAt.Unix())
	assert.Equal(t, ts("2026-08-29T08:00:00Z").Unix(), row.FirstSeenAt.Unix())

	require.Len(t, row.Misreads, 1)
	assert.Equal(t, "A8C123", row.Misreads[0].PlateNumber)
	assert.Equal(t, int64(1), row.Misreads[0].OccurrenceCount)
}

func TestListPlatesUntaggedPlateGetsEmptyTagList(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedRead(t, "ABC123", ts("2026-08-30T10:00:00Z").UTC())

	result, err := env.reports.ListPlates(ctx, PlateListQuery{})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	// Serializes as [] rather than null.
	require.NotNil(t, result.Data[0].Tags)
	assert.Empty(t, result.Data[0].Tags)
}

func TestListPlatesMisreadWithoutReads(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedReads(t, "ABC123", ts("2026-08-29T08:00:00Z").UTC(), 2)
	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", nil, nil, []string{"A8C123"}))

	result, err := env.reports.ListPlates(ctx, PlateListQuery{})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)

	row := result.Data[0]
	assert.Equal(t, int64(2), row.OccurrenceCount)
	require.Len(t, row.Misreads, 1)
	assert.Zero(t, row.Misreads[0].OccurrenceCount)
	assert.Nil(t, row.Misreads[0].LastSeenAt)
}

func TestListPlatesSortsByRolledUpCount(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedReads(t, "AAA111", ts("2026-08-29T08:00:00Z").UTC(), 5)
	env.seedReads(t, "BBB222", ts("2026-08-29T09:00:00Z").UTC(), 3)
	env.seedReads(t, "B8B222", ts("2026-08-29T10:00:00Z").UTC(), 4)
	require.NoError(t, env.corrections.SetMisreads(ctx, "BBB222", nil, nil, []string{"B8B222"}))

	result, err := env.reports.ListPlates(ctx, PlateListQuery{SortField: "occurrence_count", SortOrder: "DESC"})
	require.NoError(t, err)

	require.Len(t, result.Data, 2)
	// BBB222 wins on its rolled-up 7 over AAA111's own 5.
	assert.Equal(t, "BBB222", result.Data[0].PlateNumber)
	assert.Equal(t, int64(7), result.Data[0].OccurrenceCount)
	assert.Equal(t, "AAA111", result.Data[1].PlateNumber)
}

func TestListPlatesSearchMatchesMisreadString(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedReads(t, "ABC123", ts("2026-08-29T08:00:00Z").UTC(), 1)
	env.seedReads(t, "XYZ999", ts("2026-08-29T08:00:00Z").UTC(), 1)
	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", nil, nil, []string{"A8C123"}))

	result, err := env.reports.ListPlates(ctx, PlateListQuery{Search: "a8c"})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "ABC123", result.Data[0].PlateNumber)
}

func TestListPlatesPagination(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	plates := []string{"AAA111", "BBB222", "CCC333", "DDD444", "EEE555"}
	for i, p := range plates {
		env.seedReads(t, p, ts("2026-08-29T08:00:00Z").UTC().Add(time.Duration(i)*time.Hour), 1)
	}

	result, err := env.reports.ListPlates(ctx, PlateListQuery{Page: 2, PageSize: 2, SortField: "plate_number", SortOrder: "ASC"})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Pagination.Total)
	assert.Equal(t, 3, result.Pagination.PageCount)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "CCC333", result.Data[0].PlateNumber)
	assert.Equal(t, "DDD444", result.Data[1].PlateNumber)
}

func TestListReadsFuzzySearch(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedReads(t, "ABC123", ts("2026-08-29T08:00:00Z").UTC(), 2)
	env.seedReads(t, "XYZ999", ts("2026-08-29T09:00:00Z").UTC(), 1)

	result, err := env.reports.ListReads(ctx, ReadListQuery{PlateSearch: "ABC1Z3", FuzzySearch: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Pagination.Total)
	for _, read := range result.Data {
		assert.Equal(t, "ABC123", read.PlateNumber)
	}
}

func TestListReadsResolvesMisreadToParentName(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedReads(t, "A8C123", ts("2026-08-29T08:00:00Z").UTC(), 1)
	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", strPtr("Neighbor"), nil, []string{"A8C123"}))

	result, err := env.reports.ListReads(ctx, ReadListQuery{})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)

	read := result.Data[0]
	require.NotNil(t, read.KnownPlate)
	assert.Equal(t, "ABC123", *read.KnownPlate)
	require.NotNil(t, read.KnownName)
	assert.Equal(t, "Neighbor", *read.KnownName)
}

func TestPlateInsightsResolvesMisread(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedReads(t, "ABC123", ts("2026-08-29T08:00:00Z").UTC(), 3)
	require.NoError(t, env.corrections.SetMisreads(ctx, "ABC123", strPtr("Neighbor"), nil, []string{"A8C123"}))

	insights, err := env.reports.PlateInsights(ctx, "A8C123")
	require.NoError(t, err)

	assert.Equal(t, "ABC123", insights.PlateNumber)
	assert.Equal(t, int64(3), insights.TotalOccurrences)
	assert.Len(t, insights.RecentReads, 3)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()
	now := ts("2026-08-30T12:00:00Z").UTC()

	env.seedReads(t, "ABC123", now.Add(-2*time.Hour), 3)
	env.seedReads(t, "XYZ999", now.Add(-3*time.Hour), 1)
	env.seedReads(t, "OLD000", now.Add(-72*time.Hour), 2)

	metrics, err := env.reports.Metrics(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.UniquePlates24h)
	assert.Equal(t, int64(4), metrics.TotalReads24h)
	assert.Equal(t, int64(3), metrics.WeeklyUnique)
	assert.Equal(t, int64(3), metrics.TotalPlates)
	require.NotEmpty(t, metrics.TopPlates)
	assert.Equal(t, "ABC123", metrics.TopPlates[0].PlateNumber)
	assert.Equal(t, int64(3), metrics.TopPlates[0].Count)
}

func TestFlaggedPlates(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	env.seedReads(t, "ABC123", ts("2026-08-29T08:00:00Z").UTC(), 1)
	env.seedReads(t, "XYZ999", ts("2026-08-29T08:00:00Z").UTC(), 1)
	require.NoError(t, env.corrections.ToggleFlag(ctx, "ABC123", true))

	flagged, err := env.reports.FlaggedPlates(ctx)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "ABC123", flagged[0].PlateNumber)
}

func TestCameraNames(t *testing.T) {
	env := newTestEnv(t, 2000)
	ctx := context.Background()

	camera := "driveway"
	_, err := env.ingest.ProcessEvent(ctx, IngestInput{PlateNumber: "ABC123", CameraName: &camera})
	require.NoError(t, err)

	names, err := env.reports.CameraNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"driveway"}, names)
}

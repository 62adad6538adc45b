package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/wellnest/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	recordID := "r1"
	base := time.Now().UTC()
	entry1 := &activity.ActivityEntry{
		UserID:       "u1",
		RecordID:     &recordID,
		ActivityType: activity.TypeRecordCreated,
		Summary:      "created",
		CreatedAt:    base,
	}
	entry2 := &activity.ActivityEntry{
		UserID:       "u1",
		RecordID:     &recordID,
		ActivityType: activity.TypeStatusChanged,
		Summary:      "published",
		CreatedAt:    base.Add(time.Millisecond),
	}

	require.NoError(t, repo.Log(ctx, entry1))
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, activity.ListActivityOptions{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, activity.TypeStatusChanged, entries[0].ActivityType)
	require.Equal(t, activity.TypeRecordCreated, entries[1].ActivityType)
	require.Equal(t, "r1", *entries[0].RecordID)
}

func TestActivityRepository_FiltersAndUserIsolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	r1, r2 := "r1", "r2"
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{UserID: "u1", RecordID: &r1, ActivityType: activity.TypeRecordUpdated, Summary: "a"}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{UserID: "u1", RecordID: &r2, ActivityType: activity.TypeRecordDeleted, Summary: "b"}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{UserID: "u2", RecordID: &r1, ActivityType: activity.TypeRecordUpdated, Summary: "c"}))

	updated := activity.TypeRecordUpdated
	entries, err := repo.List(ctx, activity.ListActivityOptions{UserID: "u1", RecordID: &r1, ActivityType: &updated})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a", entries[0].Summary)

	entries, err = repo.List(ctx, activity.ListActivityOptions{UserID: "u3"})
	require.NoError(t, err)
	require.Len(t, entries, 0)

	entries, err = repo.List(ctx, activity.ListActivityOptions{UserID: "u1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

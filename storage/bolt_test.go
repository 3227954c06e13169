package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/browserwing/actionrunner/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *BoltDB {
	t.Helper()
	db, err := NewBoltDB(filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunRoundTrip(t *testing.T) {
	db := openTestDB(t)
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	run := &models.RunRecord{
		ID:          "run-1",
		Template:    "google_search",
		ActionCount: 1,
		StartedAt:   started,
		Summary: &models.RunSummary{
			Success: true,
			Stats:   models.SessionStats{TotalActions: 1, SuccessfulActions: 1},
			Actions: []models.ActionRecord{{Type: models.ActionGetTitle, Success: true, Output: "Example"}},
		},
	}
	require.NoError(t, db.SaveRun(run))

	got, err := db.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "google_search", got.Template)
	assert.True(t, got.StartedAt.Equal(started))
	require.NotNil(t, got.Summary)
	assert.Equal(t, 1, got.Summary.Stats.SuccessfulActions)
	assert.Equal(t, "Example", got.Summary.Actions[0].Output)
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"b", "c", "a"} {
		require.NoError(t, db.SaveRun(&models.RunRecord{ID: id, StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	runs, err := db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	runs, err = db.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestMissingRuns(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetRun("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(db.DeleteRun("nope"), ErrNotFound))
	assert.Error(t, db.SaveRun(&models.RunRecord{}))

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestDeleteRun(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveRun(&models.RunRecord{ID: "x"}))
	require.NoError(t, db.DeleteRun("x"))

	_, err := db.GetRun("x")
	assert.ErrorIs(t, err, ErrNotFound)
}

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/viralrank/internal/models"
)

func createTestRun(t *testing.T, db *DB, id string, created time.Time) *models.Run {
	t.Helper()
	run := &models.Run{
		ID:        id,
		Config:    models.DefaultConfig(),
		TopN:      3,
		CreatedAt: created,
	}
	require.NoError(t, db.CreateRun(context.Background(), run))
	return run
}

func TestCreateAndGetRun(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	created := time.Unix(1700000000, 0)
	createTestRun(t, db, "run-001", created)

	run, err := db.GetRun(ctx, "run-001")
	require.NoError(t, err)

	assert.Equal(t, "run-001", run.ID)
	assert.Equal(t, models.RunQueued, run.Status)
	assert.Equal(t, models.DefaultConfig(), run.Config)
	assert.Equal(t, 3, run.TopN)
	assert.Nil(t, run.Report)
	assert.Empty(t, run.Clips)
	assert.True(t, run.CreatedAt.Equal(created))
}

func TestGetRunNotFound(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.GetRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound), "got %v", err)
}

func TestCompleteRun(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	createTestRun(t, db, "run-002", time.Now())

	final := 91.5
	clips := []models.Candidate{
		{Start: 10, End: 40, Duration: 30, Text: "best clip", PsychologicalScore: 80, FinalScore: &final},
		{Start: 100, End: 125, Duration: 25, Text: "second clip", PsychologicalScore: 70},
	}
	report := models.RunReport{Input: 12, EmotionCutoff: 10, HookGate: 4, DurationGate: 3, PsychGate: 2, Deduplicated: 2, Returned: 2}

	require.NoError(t, db.CompleteRun(ctx, "run-002", report, clips))

	run, err := db.GetRun(ctx, "run-002")
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, run.Status)
	require.NotNil(t, run.Report)
	assert.Equal(t, report, *run.Report)
	require.Len(t, run.Clips, 2)
	assert.Equal(t, "best clip", run.Clips[0].Text)
	require.NotNil(t, run.Clips[0].FinalScore)
	assert.Equal(t, 91.5, *run.Clips[0].FinalScore)
	assert.Equal(t, "second clip", run.Clips[1].Text)

	var score float64
	require.NoError(t, db.Conn().QueryRow("SELECT score FROM ranked_clips WHERE run_id = 'run-002' AND rank = 2").Scan(&score))
	assert.Equal(t, 70.0, score)

	// completing again replaces the clips
	require.NoError(t, db.CompleteRun(ctx, "run-002", report, clips[:1]))
	run, err = db.GetRun(ctx, "run-002")
	require.NoError(t, err)
	assert.Len(t, run.Clips, 1)
}

func TestCompleteRunNotFound(t *testing.T) {
	db := NewTestDB(t)

	err := db.CompleteRun(context.Background(), "missing", models.RunReport{}, nil)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestFailRun(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	createTestRun(t, db, "run-003", time.Now())

	require.NoError(t, db.FailRun(ctx, "run-003", "invalid pipeline config"))

	run, err := db.GetRun(ctx, "run-003")
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, run.Status)
	assert.Equal(t, "invalid pipeline config", run.Error)

	assert.ErrorIs(t, db.FailRun(ctx, "missing", "x"), ErrRunNotFound)
}

func TestBuildRunUpdateIsStable(t *testing.T) {
	db := NewTestDB(t)
	set := map[string]any{"status": models.RunCompleted, "report": "{}", "error": ""}

	first, args, err := db.buildRunUpdate("run-004", set)
	require.NoError(t, err)
	if db.Driver() == DriverSQLite {
		assert.Equal(t, "UPDATE ranking_runs SET updated_at = ?, error = ?, report = ?, status = ? WHERE id = ?", first)
	}
	assert.Equal(t, []any{"", "{}", models.RunCompleted, "run-004"}, args[1:])

	for i := 0; i < 20; i++ {
		query, _, err := db.buildRunUpdate("run-004", set)
		require.NoError(t, err)
		assert.Equal(t, first, query)
	}
}

func TestListRuns(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i, id := range []string{"a", "b", "c", "d"} {
		createTestRun(t, db, id, base.Add(time.Duration(i)*time.Minute))
	}

	runs, err := db.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, "d", runs[0].ID, "newest first")
	assert.Equal(t, "a", runs[3].ID)

	page, err := db.ListRuns(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
	assert.Equal(t, "b", page[1].ID)

	empty, err := db.ListRuns(ctx, 10, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDeleteRun(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	createTestRun(t, db, "run-004", time.Now())
	require.NoError(t, db.CompleteRun(ctx, "run-004", models.RunReport{}, []models.Candidate{{Start: 1, End: 20, Text: "x"}}))

	require.NoError(t, db.DeleteRun(ctx, "run-004"))

	_, err := db.GetRun(ctx, "run-004")
	assert.ErrorIs(t, err, ErrRunNotFound)

	var clips int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM ranked_clips").Scan(&clips))
	assert.Zero(t, clips)

	assert.ErrorIs(t, db.DeleteRun(ctx, "run-004"), ErrRunNotFound)
}

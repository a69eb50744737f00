package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/adf/internal/adf"
	"github.com/banshee-data/adf/internal/config"
	"github.com/banshee-data/adf/internal/monitoring"
	"github.com/banshee-data/adf/internal/timeutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	monitoring.SetLogger(nil)
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func scenarioResult(t *testing.T) *adf.Result {
	t.Helper()
	res, err := adf.Run(
		[][]float64{{1, -1}, {1, 0}, {1, 1}},
		[]float64{0, 1, 1},
		adf.DefaultOptions(),
	)
	require.NoError(t, err)
	return res
}

func TestOpenAppliesMigrations(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	for _, table := range []string{"adf_runs", "adf_steps", "adf_step_diagnostics"} {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", table)
	}
}

func TestMigrateDownAndUp(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, db.MigrateDown())

	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'adf_step_diagnostics'`).Scan(&n))
	assert.Equal(t, 0, n)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestReopenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := Open(path)
	require.NoError(t, err)
	rs := NewRunStore(db.DB, nil)
	require.NoError(t, rs.Save(&RunRecord{Label: "first", Result: scenarioResult(t)}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	runs, err := NewRunStore(db.DB, nil).List(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "first", runs[0].Label)
}

func TestSaveAndLoadResult(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rs := NewRunStore(db.DB, timeutil.NewMockClock(start))

	res := scenarioResult(t)
	cfg := config.DefaultFilterConfig()
	rec := &RunRecord{
		Label:   "three points",
		Columns: []string{"bias", "x"},
		Config:  cfg,
		Result:  res,
	}
	require.NoError(t, rs.Save(rec))

	assert.NotEmpty(t, rec.RunID)
	assert.Equal(t, start.UnixNano(), rec.CreatedAtNs)
	assert.Equal(t, 3, rec.NObs)
	assert.Equal(t, 2, rec.Dims)

	got, err := rs.Get(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, rec.Label, got.Label)
	assert.Equal(t, rec.Columns, got.Columns)
	assert.Nil(t, got.Result)
	if diff := cmp.Diff(cfg, got.Config); diff != "" {
		t.Errorf("config mismatch (-saved +loaded):\n%s", diff)
	}

	history, err := rs.LoadHistory(rec.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(res.History, history); diff != "" {
		t.Errorf("history mismatch (-saved +loaded):\n%s", diff)
	}

	loaded, err := rs.LoadResult(rec.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(res, loaded.Result); diff != "" {
		t.Errorf("result mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestSaveWithoutOptionalFields(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	rs := NewRunStore(db.DB, nil)

	rec := &RunRecord{RunID: "fixed-id", Result: scenarioResult(t)}
	require.NoError(t, rs.Save(rec))

	got, err := rs.Get("fixed-id")
	require.NoError(t, err)
	assert.Nil(t, got.Config)
	assert.Nil(t, got.Columns)
	assert.Empty(t, got.Label)

	// Duplicate IDs are rejected and leave nothing half-written.
	err = rs.Save(&RunRecord{RunID: "fixed-id", Result: scenarioResult(t)})
	require.Error(t, err)
	history, err := rs.LoadHistory("fixed-id")
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestSaveRejectsMissingResult(t *testing.T) {
	t.Parallel()

	rs := NewRunStore(openTestDB(t).DB, nil)
	assert.Error(t, rs.Save(&RunRecord{Label: "empty"}))

	bad := scenarioResult(t)
	bad.History = bad.History[:2]
	assert.Error(t, rs.Save(&RunRecord{Result: bad}))
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	clock := timeutil.NewSteppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute)
	rs := NewRunStore(db.DB, clock)

	res := scenarioResult(t)
	for _, label := range []string{"a", "b", "c", "d"} {
		require.NoError(t, rs.Save(&RunRecord{Label: label, Result: res}))
	}

	runs, err := rs.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	var labels []string
	for _, r := range runs {
		labels = append(labels, r.Label)
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, labels)

	runs, err = rs.List(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	rs := NewRunStore(openTestDB(t).DB, nil)

	_, err := rs.Get("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = rs.LoadHistory("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = rs.LoadResult("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, rs.Delete("missing"), ErrRunNotFound)
}

func TestDeleteCascades(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	rs := NewRunStore(db.DB, nil)
	rec := &RunRecord{Result: scenarioResult(t)}
	require.NoError(t, rs.Save(rec))
	require.NoError(t, rs.Delete(rec.RunID))

	for _, table := range []string{"adf_steps", "adf_step_diagnostics"} {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE run_id = ?`, rec.RunID).Scan(&n))
		assert.Equal(t, 0, n, "rows left in %s", table)
	}
}

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/adf/internal/adf"
	"github.com/banshee-data/adf/internal/config"
	"github.com/banshee-data/adf/internal/timeutil"
	"github.com/google/uuid"
)

// ErrRunNotFound is returned by lookups for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one stored filter run.
type RunRecord struct {
	RunID       string   `json:"run_id"`
	Label       string   `json:"label,omitempty"`
	NObs        int      `json:"n_obs"`
	Dims        int      `json:"dims"`
	Columns     []string `json:"columns,omitempty"`
	CreatedAtNs int64    `json:"created_at_ns"`

	// Config is the filter configuration the run used. It may be nil.
	Config *config.FilterConfig `json:"config,omitempty"`

	// Result is written by Save and populated only by LoadResult.
	Result *adf.Result `json:"-"`
}

// RunStore provides persistence for filter runs.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a RunStore. A nil clock uses the wall clock.
func NewRunStore(db *sql.DB, clock timeutil.Clock) *RunStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RunStore{db: db, clock: clock}
}

// Save writes rec and the full history of rec.Result in one transaction.
// If rec.RunID is empty a new UUID is assigned; a zero CreatedAtNs is
// stamped from the store clock.
func (s *RunStore) Save(rec *RunRecord) error {
	if rec.Result == nil {
		return errors.New("save run: no result")
	}
	res := rec.Result
	if len(res.History) != res.Steps()+1 {
		return fmt.Errorf("save run: %d states for %d steps", len(res.History), res.Steps())
	}

	if rec.RunID == "" {
		rec.RunID = uuid.New().String()
	}
	if rec.CreatedAtNs == 0 {
		rec.CreatedAtNs = s.clock.Now().UnixNano()
	}
	rec.NObs = res.Steps()
	rec.Dims = res.Dims()

	columnsJSON, err := marshalNullable(rec.Columns, len(rec.Columns) > 0)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}
	configJSON, err := marshalNullable(rec.Config, rec.Config != nil)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO adf_runs (run_id, label, n_obs, dims, columns_json, config_json, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Label, rec.NObs, rec.Dims, columnsJSON, configJSON, rec.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stepStmt, err := tx.Prepare(`INSERT INTO adf_steps (run_id, step, coord, mean, variance) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare steps: %w", err)
	}
	defer stepStmt.Close()
	for k, st := range res.History {
		for i := range st.Mean {
			if _, err := stepStmt.Exec(rec.RunID, k, i, st.Mean[i], st.Variance[i]); err != nil {
				return fmt.Errorf("insert step %d coord %d: %w", k, i, err)
			}
		}
	}

	diagStmt, err := tx.Prepare(`
		INSERT INTO adf_step_diagnostics (run_id, step, pred_mean, pred_var, z, log_z, m, v, clamped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare diagnostics: %w", err)
	}
	defer diagStmt.Close()
	for k, d := range res.Diagnostics {
		// Diagnostics of observation k produce history state k+1.
		if _, err := diagStmt.Exec(rec.RunID, k+1, d.PredMean, d.PredVar, d.Z, d.LogZ, d.M, d.V, d.Clamped); err != nil {
			return fmt.Errorf("insert diagnostics %d: %w", k+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func marshalNullable(v interface{}, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

const runColumns = `run_id, label, n_obs, dims, columns_json, config_json, created_at_ns`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var columnsJSON, configJSON sql.NullString
	if err := row.Scan(&rec.RunID, &rec.Label, &rec.NObs, &rec.Dims, &columnsJSON, &configJSON, &rec.CreatedAtNs); err != nil {
		return nil, err
	}
	if columnsJSON.Valid {
		if err := json.Unmarshal([]byte(columnsJSON.String), &rec.Columns); err != nil {
			return nil, fmt.Errorf("parse columns of run %s: %w", rec.RunID, err)
		}
	}
	if configJSON.Valid {
		rec.Config = config.EmptyFilterConfig()
		if err := json.Unmarshal([]byte(configJSON.String), rec.Config); err != nil {
			return nil, fmt.Errorf("parse config of run %s: %w", rec.RunID, err)
		}
	}
	return &rec, nil
}

// Get retrieves a run by ID without its history.
func (s *RunStore) Get(runID string) (*RunRecord, error) {
	rec, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM adf_runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}

// List returns up to limit runs, newest first. A limit of 0 or less
// returns every run.
func (s *RunStore) List(limit int) ([]*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM adf_runs ORDER BY created_at_ns DESC, run_id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// LoadHistory restores the N+1 posterior states of a run, initial first.
func (s *RunStore) LoadHistory(runID string) ([]adf.State, error) {
	rec, err := s.Get(runID)
	if err != nil {
		return nil, err
	}

	history := make([]adf.State, rec.NObs+1)
	for k := range history {
		history[k] = adf.State{
			Mean:     make([]float64, rec.Dims),
			Variance: make([]float64, rec.Dims),
		}
	}

	rows, err := s.db.Query(`SELECT step, coord, mean, variance FROM adf_steps WHERE run_id = ? ORDER BY step, coord`, runID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var step, coord int
		var mean, variance float64
		if err := rows.Scan(&step, &coord, &mean, &variance); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if step < 0 || step > rec.NObs || coord < 0 || coord >= rec.Dims {
			return nil, fmt.Errorf("run %s: step %d coord %d out of range", runID, step, coord)
		}
		history[step].Mean[coord] = mean
		history[step].Variance[coord] = variance
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if want := (rec.NObs + 1) * rec.Dims; n != want {
		return nil, fmt.Errorf("run %s: history has %d entries, want %d", runID, n, want)
	}
	return history, nil
}

// LoadDiagnostics restores the N per-observation diagnostics of a run.
func (s *RunStore) LoadDiagnostics(runID string) ([]adf.StepDiagnostics, error) {
	rows, err := s.db.Query(`
		SELECT pred_mean, pred_var, z, log_z, m, v, clamped
		FROM adf_step_diagnostics WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("load diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []adf.StepDiagnostics
	for rows.Next() {
		var d adf.StepDiagnostics
		if err := rows.Scan(&d.PredMean, &d.PredVar, &d.Z, &d.LogZ, &d.M, &d.V, &d.Clamped); err != nil {
			return nil, fmt.Errorf("scan diagnostics: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// LoadResult restores a run together with its full Result.
func (s *RunStore) LoadResult(runID string) (*RunRecord, error) {
	rec, err := s.Get(runID)
	if err != nil {
		return nil, err
	}
	history, err := s.LoadHistory(runID)
	if err != nil {
		return nil, err
	}
	diags, err := s.LoadDiagnostics(runID)
	if err != nil {
		return nil, err
	}
	if len(diags) != rec.NObs {
		return nil, fmt.Errorf("run %s: %d diagnostics, want %d", runID, len(diags), rec.NObs)
	}
	rec.Result = &adf.Result{
		Final:       history[len(history)-1].Clone(),
		History:     history,
		Diagnostics: diags,
	}
	return rec, nil
}

// Delete removes a run and, through the foreign keys, its history.
func (s *RunStore) Delete(runID string) error {
	res, err := s.db.Exec(`DELETE FROM adf_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

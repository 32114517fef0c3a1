package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"medteam/internal/domain/consultation"
	"medteam/pkg/errors"
)

// Schema creates the run history table
const Schema = `
CREATE TABLE IF NOT EXISTS consultation_runs (
	id               UUID PRIMARY KEY,
	started_at       TIMESTAMPTZ NOT NULL,
	finished_at      TIMESTAMPTZ NOT NULL,
	report_path      TEXT NOT NULL,
	report_bytes     INTEGER NOT NULL,
	provider         TEXT NOT NULL,
	model            TEXT NOT NULL,
	roles            JSONB NOT NULL DEFAULT '[]',
	diagnosis        TEXT NOT NULL,
	synthesis_status TEXT NOT NULL,
	synthesis_error  TEXT NOT NULL DEFAULT '',
	output_path      TEXT NOT NULL,
	status           TEXT NOT NULL,
	total_tokens     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_consultation_runs_started_at ON consultation_runs (started_at DESC);
`

const runColumns = `
	id, started_at, finished_at, report_path, report_bytes, provider, model, roles,
	diagnosis, synthesis_status, synthesis_error, output_path, status, total_tokens`

// Compile-time checks
var (
	_ consultation.Repository = (*ConsultationRepository)(nil)
	_ consultation.Recorder   = (*ConsultationRepository)(nil)
)

// ConsultationRepository implements consultation.Repository using sqlx
type ConsultationRepository struct {
	db DBTX
}

// NewConsultationRepository creates a new run history repository
func NewConsultationRepository(db DBTX) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

// EnsureSchema creates the table and index when missing
func (r *ConsultationRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return errors.Wrap(err, "ensure consultation schema")
	}
	return nil
}

func (r *ConsultationRepository) Name() string { return "postgres" }

// Record stores a finished run
func (r *ConsultationRepository) Record(ctx context.Context, run *consultation.Run) error {
	return r.Create(ctx, run)
}

// Create inserts a run
func (r *ConsultationRepository) Create(ctx context.Context, run *consultation.Run) error {
	roles, err := json.Marshal(run.Roles)
	if err != nil {
		return errors.Wrap(err, "marshal role outcomes")
	}

	query := `
		INSERT INTO consultation_runs (` + runColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.StartedAt, run.FinishedAt, run.ReportPath, run.ReportBytes,
		run.Provider, run.Model, roles,
		run.Diagnosis, run.SynthesisStatus, run.SynthesisError, run.OutputPath,
		run.Status, run.TotalTokens,
	)
	if err != nil {
		return errors.Wrapf(err, "insert run %s", run.ID)
	}

	return nil
}

// GetByID retrieves a run by ID
func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*consultation.Run, error) {
	var row runRow

	query := `SELECT ` + runColumns + ` FROM consultation_runs WHERE id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get run %s", id)
	}

	return row.toRun()
}

// ListRecent returns the latest runs, newest first
func (r *ConsultationRepository) ListRecent(ctx context.Context, limit int) ([]*consultation.Run, error) {
	var rows []runRow

	query := `
		SELECT ` + runColumns + ` FROM consultation_runs
		ORDER BY started_at DESC
		LIMIT $1`

	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "list runs")
	}

	runs := make([]*consultation.Run, 0, len(rows))
	for i := range rows {
		run, err := rows[i].toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// runRow mirrors consultation_runs with roles kept as raw JSONB
type runRow struct {
	ID              uuid.UUID `db:"id"`
	StartedAt       time.Time `db:"started_at"`
	FinishedAt      time.Time `db:"finished_at"`
	ReportPath      string    `db:"report_path"`
	ReportBytes     int       `db:"report_bytes"`
	Provider        string    `db:"provider"`
	Model           string    `db:"model"`
	Roles           []byte    `db:"roles"`
	Diagnosis       string    `db:"diagnosis"`
	SynthesisStatus string    `db:"synthesis_status"`
	SynthesisError  string    `db:"synthesis_error"`
	OutputPath      string    `db:"output_path"`
	Status          string    `db:"status"`
	TotalTokens     int       `db:"total_tokens"`
}

func (row runRow) toRun() (*consultation.Run, error) {
	run := &consultation.Run{
		ID:              row.ID,
		StartedAt:       row.StartedAt,
		FinishedAt:      row.FinishedAt,
		ReportPath:      row.ReportPath,
		ReportBytes:     row.ReportBytes,
		Provider:        row.Provider,
		Model:           row.Model,
		Diagnosis:       row.Diagnosis,
		SynthesisStatus: row.SynthesisStatus,
		SynthesisError:  row.SynthesisError,
		OutputPath:      row.OutputPath,
		Status:          row.Status,
		TotalTokens:     row.TotalTokens,
	}

	if len(row.Roles) > 0 {
		if err := json.Unmarshal(row.Roles, &run.Roles); err != nil {
			return nil, errors.Wrapf(err, "decode roles of run %s", row.ID)
		}
	}

	return run, nil
}

package consultation

import (
	"time"

	"github.com/google/uuid"
)

// Run status values
const (
	StatusComplete = "complete" // every role and the synthesis succeeded
	StatusPartial  = "partial"  // a diagnosis was produced with at least one role missing
	StatusFailed   = "failed"   // no diagnosis
)

// RoleOutcome status values
const (
	RoleSucceeded = "success"
	RoleFailed    = "failed"
)

// Run is the record of one consultation
type Run struct {
	ID         uuid.UUID `db:"id" json:"id"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`

	// Input
	ReportPath  string `db:"report_path" json:"report_path"`
	ReportBytes int    `db:"report_bytes" json:"report_bytes"`

	// Inference
	Provider string        `db:"provider" json:"provider"`
	Model    string        `db:"model" json:"model"`
	Roles    []RoleOutcome `db:"-" json:"roles"`

	// Result
	Diagnosis       string `db:"diagnosis" json:"diagnosis"`
	SynthesisStatus string `db:"synthesis_status" json:"synthesis_status"`
	SynthesisError  string `db:"synthesis_error" json:"synthesis_error,omitempty"`
	OutputPath      string `db:"output_path" json:"output_path"`
	Status          string `db:"status" json:"status"`
	TotalTokens     int    `db:"total_tokens" json:"total_tokens"`
}

// RoleOutcome summarizes one primary role call
type RoleOutcome struct {
	Role       string `json:"role"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Tokens     int    `json:"tokens"`
	DurationMs int64  `json:"duration_ms"`
}

// Duration is the wall time of the run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedRoles lists roles whose call did not produce text.
func (r *Run) FailedRoles() []string {
	var failed []string
	for _, o := range r.Roles {
		if o.Status != RoleSucceeded {
			failed = append(failed, o.Role)
		}
	}
	return failed
}

// Finalize sets FinishedAt and derives Status from the outcomes.
func (r *Run) Finalize(finishedAt time.Time) {
	r.FinishedAt = finishedAt

	switch {
	case r.Diagnosis == "":
		r.Status = StatusFailed
	case len(r.FailedRoles()) > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusComplete
	}
}

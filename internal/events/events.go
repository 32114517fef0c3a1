package events

import (
	"time"

	"github.com/google/uuid"

	"medteam/internal/domain/consultation"
	"medteam/pkg/templates"
)

// Event types
const (
	TypeConsultationCompleted = "consultation.completed"
)

const (
	eventSource    = "medteam"
	eventVersion   = "1.0"
	diagnosisChars = 200
)

// BaseEvent carries fields common to every event
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NewBaseEvent creates a new base event with defaults
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
	}
}

// ConsultationCompletedEvent is emitted once per finished run.
// It carries a diagnosis preview, not the full text.
type ConsultationCompletedEvent struct {
	BaseEvent

	RunID            string                     `json:"run_id"`
	Status           string                     `json:"status"`
	Provider         string                     `json:"provider"`
	Model            string                     `json:"model"`
	Roles            []consultation.RoleOutcome `json:"roles"`
	FailedRoles      []string                   `json:"failed_roles,omitempty"`
	DiagnosisPreview string                     `json:"diagnosis_preview"`
	OutputPath       string                     `json:"output_path"`
	TotalTokens      int                        `json:"total_tokens"`
	DurationMs       int64                      `json:"duration_ms"`
}

// NewConsultationCompleted builds the event for a finished run
func NewConsultationCompleted(run *consultation.Run) *ConsultationCompletedEvent {
	return &ConsultationCompletedEvent{
		BaseEvent:        NewBaseEvent(TypeConsultationCompleted),
		RunID:            run.ID.String(),
		Status:           run.Status,
		Provider:         run.Provider,
		Model:            run.Model,
		Roles:            run.Roles,
		FailedRoles:      run.FailedRoles(),
		DiagnosisPreview: templates.Preview(run.Diagnosis, diagnosisChars),
		OutputPath:       run.OutputPath,
		TotalTokens:      run.TotalTokens,
		DurationMs:       run.Duration().Milliseconds(),
	}
}

package consultation

import (
	"context"

	"github.com/google/uuid"
)

// Recorder receives the record of every finished run
type Recorder interface {
	Name() string
	Record(ctx context.Context, run *Run) error
}

// Repository defines the interface for run history data access
type Repository interface {
	Create(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRecent(ctx context.Context, limit int) ([]*Run, error)
}

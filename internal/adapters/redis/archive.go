package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medteam/internal/domain/consultation"
	"medteam/pkg/errors"
	"medteam/pkg/logger"
)

const (
	runKeyPrefix = "medteam:run:"
	recentKey    = "medteam:runs:recent"
	recentLimit  = 100
)

// Archive keeps recent run records in Redis
type Archive struct {
	client *Client
	ttl    time.Duration
	log    *logger.Logger
}

var _ consultation.Recorder = (*Archive)(nil)

// NewArchive creates an archive storing each run for ttl (0 keeps forever)
func NewArchive(client *Client, ttl time.Duration) *Archive {
	return &Archive{
		client: client,
		ttl:    ttl,
		log:    logger.Component("redis_archive"),
	}
}

func (a *Archive) Name() string { return "redis" }

// Record stores the run under its ID and prepends the ID to the recent list
func (a *Archive) Record(ctx context.Context, run *consultation.Run) error {
	if err := a.client.Set(ctx, runKey(run.ID), run, a.ttl); err != nil {
		return errors.Wrap(err, "archive run")
	}
	if err := a.client.PushCapped(ctx, recentKey, recentLimit, run.ID.String()); err != nil {
		return errors.Wrap(err, "index run")
	}

	a.log.Debugf("Archived run %s", run.ID)
	return nil
}

// Get loads an archived run
func (a *Archive) Get(ctx context.Context, id uuid.UUID) (*consultation.Run, error) {
	var run consultation.Run
	if err := a.client.Get(ctx, runKey(id), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Recent returns the IDs of the latest runs, newest first
func (a *Archive) Recent(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 || limit > recentLimit {
		limit = recentLimit
	}

	raw, err := a.client.Range(ctx, recentKey, 0, int64(limit-1))
	if err != nil {
		return nil, errors.Wrap(err, "list recent runs")
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			a.log.Warnf("Skipping malformed run id %q", s)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runKey(id uuid.UUID) string {
	return fmt.Sprintf("%s%s", runKeyPrefix, id)
}

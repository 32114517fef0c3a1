package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medteam/internal/domain/consultation"
	"medteam/internal/testsupport"
	"medteam/pkg/errors"
)

func newTestArchive(t *testing.T, ttl time.Duration) (*Archive, func(key string) time.Duration) {
	t.Helper()

	cfg := testsupport.RedisConfigFromEnv(t)
	raw := testsupport.NewRedisClient(t, cfg)

	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ttlOf := func(key string) time.Duration {
		return raw.TTL(context.Background(), key).Val()
	}
	return NewArchive(client, ttl), ttlOf
}

func TestArchive_RecordAndGet(t *testing.T) {
	archive, ttlOf := newTestArchive(t, time.Hour)
	ctx := context.Background()

	run := &consultation.Run{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		Roles: []consultation.RoleOutcome{
			{Role: "Cardiologist", Status: consultation.RoleSucceeded, Tokens: 10},
		},
		Diagnosis: "D",
	}
	run.Finalize(run.StartedAt.Add(time.Second))

	require.NoError(t, archive.Record(ctx, run))

	got, err := archive.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "D", got.Diagnosis)
	assert.Equal(t, consultation.StatusComplete, got.Status)
	assert.Equal(t, run.Roles, got.Roles)

	ttl := ttlOf(runKey(run.ID))
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestArchive_RecentNewestFirst(t *testing.T) {
	archive, _ := newTestArchive(t, 0)
	ctx := context.Background()

	first := &consultation.Run{ID: uuid.New()}
	second := &consultation.Run{ID: uuid.New()}
	require.NoError(t, archive.Record(ctx, first))
	require.NoError(t, archive.Record(ctx, second))

	ids, err := archive.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{second.ID, first.ID}, ids)
}

func TestArchive_GetMissing(t *testing.T) {
	archive, _ := newTestArchive(t, 0)

	_, err := archive.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

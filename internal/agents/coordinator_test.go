package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medteam/internal/domain/role"
	"medteam/pkg/errors"
)

func TestCoordinatorMappingIndependentOfCompletionOrder(t *testing.T) {
	texts := map[role.Role]string{
		role.Cardiologist:  "R1",
		role.Psychologist:  "R2",
		role.Pulmonologist: "R3",
	}
	delays := []time.Duration{5 * time.Millisecond, 25 * time.Millisecond, 45 * time.Millisecond}
	permutations := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	for _, perm := range permutations {
		perm := perm
		provider := newScriptedProvider(map[role.Role]reply{
			role.Cardiologist:  {text: texts[role.Cardiologist], delay: delays[perm[0]]},
			role.Psychologist:  {text: texts[role.Psychologist], delay: delays[perm[1]]},
			role.Pulmonologist: {text: texts[role.Pulmonologist], delay: delays[perm[2]]},
		})
		c, err := NewCoordinator(newTestWorker(t, provider), 3)
		require.NoError(t, err)

		mapping := c.Run(context.Background(), role.Primary(), "Patient reports chest pain.")

		require.Len(t, mapping, 3)
		for r, want := range texts {
			got, ok := mapping[r]
			require.True(t, ok, "missing %s for permutation %v", r, perm)
			assert.True(t, got.OK())
			assert.Equal(t, want, got.Text)
			assert.Equal(t, r, got.Role)
		}
		assert.Len(t, provider.completionOrder(), 3)
	}
}

func TestCoordinatorRunsRolesConcurrently(t *testing.T) {
	delay := 150 * time.Millisecond
	provider := newScriptedProvider(map[role.Role]reply{
		role.Cardiologist:  {text: "A", delay: delay},
		role.Psychologist:  {text: "B", delay: delay},
		role.Pulmonologist: {text: "C", delay: delay},
	})
	// Pool size below the role count is raised to the role count.
	c, err := NewCoordinator(newTestWorker(t, provider), 1)
	require.NoError(t, err)

	start := time.Now()
	mapping := c.Run(context.Background(), role.Primary(), "report")
	elapsed := time.Since(start)

	assert.Equal(t, 3, mapping.Succeeded())
	assert.Less(t, elapsed, 3*delay, "roles should overlap, took %s", elapsed)
}

func TestCoordinatorPartialFailure(t *testing.T) {
	provider := newScriptedProvider(map[role.Role]reply{
		role.Cardiologist:  {text: "A"},
		role.Psychologist:  {err: errors.New("503 service unavailable"), delay: 10 * time.Millisecond},
		role.Pulmonologist: {text: "C"},
	})
	c, err := NewCoordinator(newTestWorker(t, provider), 3)
	require.NoError(t, err)

	mapping := c.Run(context.Background(), role.Primary(), "report")

	require.Len(t, mapping, 3)
	assert.Equal(t, 2, mapping.Succeeded())
	assert.True(t, mapping[role.Cardiologist].OK())
	assert.True(t, mapping[role.Pulmonologist].OK())

	failed := mapping[role.Psychologist]
	assert.False(t, failed.OK())
	assert.True(t, errors.Is(failed.Err, errors.ErrInference))
	assert.Equal(t, 30, mapping.Usage().TotalTokens)
}

func TestCoordinatorRecoversWorkerPanic(t *testing.T) {
	provider := newScriptedProvider(map[role.Role]reply{
		role.Cardiologist:  {panic: true},
		role.Psychologist:  {text: "B"},
		role.Pulmonologist: {text: "C"},
	})
	c, err := NewCoordinator(newTestWorker(t, provider), 3)
	require.NoError(t, err)

	mapping := c.Run(context.Background(), role.Primary(), "report")

	require.Len(t, mapping, 3)
	assert.False(t, mapping[role.Cardiologist].OK())
	assert.ErrorContains(t, mapping[role.Cardiologist].Err, "worker panic")
	assert.Equal(t, 2, mapping.Succeeded())
}

func TestCoordinatorDeduplicatesRoles(t *testing.T) {
	provider := newScriptedProvider(map[role.Role]reply{role.Cardiologist: {text: "A"}})
	c, err := NewCoordinator(newTestWorker(t, provider), 3)
	require.NoError(t, err)

	mapping := c.Run(context.Background(), []role.Role{role.Cardiologist, role.Cardiologist}, "report")
	assert.Len(t, mapping, 1)
	assert.Len(t, provider.reqs, 1)

	assert.Empty(t, c.Run(context.Background(), nil, "report"))
}

func TestNewCoordinatorRequiresWorker(t *testing.T) {
	_, err := NewCoordinator(nil, 3)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

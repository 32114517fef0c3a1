package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"medteam/pkg/errors"
)

type recordingTracker struct {
	mu     sync.Mutex
	errors []error
	tags   []map[string]string
}

func (r *recordingTracker) CaptureError(_ context.Context, err error, tags map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
	r.tags = append(r.tags, tags)
	return nil
}

func (r *recordingTracker) CaptureMessage(context.Context, string, errors.Level, map[string]string) error {
	return nil
}

func (r *recordingTracker) AddBreadcrumb(context.Context, string, string, errors.Level, map[string]interface{}) {
}

func (r *recordingTracker) Flush(context.Context) error { return nil }

func TestComponentLoggerForwardsErrorsToTracker(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Replace(zap.New(core))

	tracker := &recordingTracker{}
	SetErrorTracker(tracker)
	t.Cleanup(func() { SetErrorTracker(nil) })

	log := Component("role_worker").With("role", "Cardiologist")
	log.Errorf("call failed: %s", "timeout")

	require.Len(t, tracker.errors, 1)
	assert.EqualError(t, tracker.errors[0], "call failed: timeout")
	assert.Equal(t, "role_worker", tracker.tags[0]["component"])

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "role_worker", fields["component"])
	assert.Equal(t, "Cardiologist", fields["role"])
}

func TestErrorWithContextMergesTags(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	Replace(zap.New(core))

	tracker := &recordingTracker{}
	SetErrorTracker(tracker)
	t.Cleanup(func() { SetErrorTracker(nil) })

	Component("pipeline").ErrorWithContext(context.Background(), errors.ErrIO, map[string]string{"run_id": "abc"})

	require.Len(t, tracker.tags, 1)
	assert.Equal(t, "pipeline", tracker.tags[0]["component"])
	assert.Equal(t, "abc", tracker.tags[0]["run_id"])
}

func TestInitFallsBackToInfoOnBadLevel(t *testing.T) {
	require.NoError(t, Init("not-a-level", "development"))
	assert.True(t, Get().Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Get().Desugar().Core().Enabled(zapcore.DebugLevel))
}

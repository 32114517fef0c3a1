package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medteam/internal/adapters/ai"
	"medteam/internal/agents"
	"medteam/internal/domain/consultation"
	"medteam/internal/domain/role"
	"medteam/internal/prompts"
	"medteam/internal/sink"
	"medteam/pkg/errors"
)

const sampleReport = "Patient reports chest pain and shortness of breath."

var roleMarkers = map[role.Role]string{
	role.Cardiologist:  "Act like a cardiologist",
	role.Psychologist:  "Act like a psychologist",
	role.Pulmonologist: "Act like a pulmonologist",
	role.Synthesizer:   "Act like a multidisciplinary team",
}

type answer struct {
	text  string
	err   error
	delay time.Duration
}

// markerProvider answers by the role marker found in the prompt.
type markerProvider struct {
	mu      sync.Mutex
	answers map[role.Role]answer
	prompts map[role.Role]string
}

func newMarkerProvider(answers map[role.Role]answer) *markerProvider {
	return &markerProvider{answers: answers, prompts: map[role.Role]string{}}
}

func (p *markerProvider) Name() string { return "marker" }

func (p *markerProvider) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	for r, marker := range roleMarkers {
		if !strings.Contains(prompt, marker) {
			continue
		}

		p.mu.Lock()
		p.prompts[r] = prompt
		p.mu.Unlock()

		a := p.answers[r]
		if a.delay > 0 {
			select {
			case <-time.After(a.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if a.err != nil {
			return nil, a.err
		}
		return &ai.ChatResponse{
			Model:   req.Model,
			Choices: []ai.Choice{{Message: ai.Message{Role: ai.RoleAssistant, Content: a.text}}},
			Usage:   ai.Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30},
		}, nil
	}
	return nil, errors.New("unrecognized prompt")
}

func (p *markerProvider) prompt(r role.Role) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts[r]
}

type fakeRecorder struct {
	name string
	err  error
	runs []*consultation.Run
}

func (f *fakeRecorder) Name() string { return f.name }

func (f *fakeRecorder) Record(_ context.Context, run *consultation.Run) error {
	f.runs = append(f.runs, run)
	return f.err
}

type breadcrumbTracker struct {
	mu          sync.Mutex
	breadcrumbs []string
}

func (b *breadcrumbTracker) CaptureError(context.Context, error, map[string]string) error { return nil }

func (b *breadcrumbTracker) CaptureMessage(context.Context, string, errors.Level, map[string]string) error {
	return nil
}

func (b *breadcrumbTracker) AddBreadcrumb(_ context.Context, message string, _ string, _ errors.Level, _ map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.breadcrumbs = append(b.breadcrumbs, message)
}

func (b *breadcrumbTracker) Flush(context.Context) error { return nil }

type fixture struct {
	provider   *markerProvider
	reportPath string
	outputPath string
	recorders  []*fakeRecorder
	tracker    *breadcrumbTracker
}

func newFixture(t *testing.T, answers map[role.Role]answer) *fixture {
	t.Helper()

	dir := t.TempDir()
	reportPath := filepath.Join(dir, "Medical_Report.txt")
	require.NoError(t, os.WriteFile(reportPath, []byte(sampleReport), 0o644))

	return &fixture{
		provider:   newMarkerProvider(answers),
		reportPath: reportPath,
		outputPath: filepath.Join(dir, "results", "final_diagnosis.txt"),
		recorders: []*fakeRecorder{
			{name: "broken", err: errors.New("archive offline")},
			{name: "memory"},
		},
		tracker: &breadcrumbTracker{},
	}
}

func (f *fixture) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	return f.pipelineWith(t, f.provider)
}

func (f *fixture) pipelineWith(t *testing.T, provider ai.ChatProvider) *Pipeline {
	t.Helper()

	builder, err := prompts.NewDefaultBuilder("")
	require.NoError(t, err)
	worker, err := agents.NewWorker(provider, builder, agents.DefaultInferenceOptions("test-model"))
	require.NoError(t, err)
	coordinator, err := agents.NewCoordinator(worker, 3)
	require.NoError(t, err)
	synthesizer, err := agents.NewSynthesizer(worker)
	require.NoError(t, err)

	recorders := make([]consultation.Recorder, 0, len(f.recorders))
	for _, r := range f.recorders {
		recorders = append(recorders, r)
	}

	p, err := New(Deps{
		Coordinator: coordinator,
		Synthesizer: synthesizer,
		Sink:        sink.NewFileSink(),
		Tracker:     f.tracker,
		Recorders:   recorders,
	}, Options{
		ReportPath: f.reportPath,
		OutputPath: f.outputPath,
		Provider:   f.provider.Name(),
		Model:      "test-model",
	})
	require.NoError(t, err)
	return p
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	f := newFixture(t, map[role.Role]answer{
		role.Cardiologist:  {text: "A"},
		role.Psychologist:  {text: "B"},
		role.Pulmonologist: {text: "C"},
		role.Synthesizer:   {text: "D"},
	})

	run, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "D", readOutput(t, f.outputPath))

	for _, r := range role.Primary() {
		assert.Contains(t, f.provider.prompt(r), sampleReport)
	}
	synthPrompt := f.provider.prompt(role.Synthesizer)
	assert.Contains(t, synthPrompt, "Cardiologist Report: A")
	assert.Contains(t, synthPrompt, "Psychologist Report: B")
	assert.Contains(t, synthPrompt, "Pulmonologist Report: C")

	assert.Equal(t, consultation.StatusComplete, run.Status)
	assert.Equal(t, "D", run.Diagnosis)
	assert.Equal(t, len(sampleReport), run.ReportBytes)
	assert.Equal(t, 120, run.TotalTokens)
	require.Len(t, run.Roles, 3)
	assert.Equal(t, "Cardiologist", run.Roles[0].Role)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	for _, rec := range f.recorders {
		require.Len(t, rec.runs, 1, "recorder %s", rec.name)
		assert.Same(t, run, rec.runs[0])
	}
	assert.Contains(t, f.tracker.breadcrumbs, "specialists finished")
}

func TestPipeline_Run_RoleFailureStillSynthesizes(t *testing.T) {
	f := newFixture(t, map[role.Role]answer{
		role.Cardiologist:  {text: "A"},
		role.Psychologist:  {err: errors.New("upstream 503")},
		role.Pulmonologist: {text: "C"},
		role.Synthesizer:   {text: "D"},
	})

	run, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "D", readOutput(t, f.outputPath))
	assert.Contains(t, f.provider.prompt(role.Synthesizer), "Psychologist report unavailable")
	assert.Equal(t, consultation.StatusPartial, run.Status)
	assert.Equal(t, []string{"Psychologist"}, run.FailedRoles())
	assert.Contains(t, run.Roles[1].Error, "upstream 503")
}

func TestPipeline_Run_SynthesisFailureWritesEmptyOutput(t *testing.T) {
	f := newFixture(t, map[role.Role]answer{
		role.Cardiologist:  {text: "A"},
		role.Psychologist:  {text: "B"},
		role.Pulmonologist: {text: "C"},
		role.Synthesizer:   {err: errors.New("context length exceeded")},
	})

	run, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, readOutput(t, f.outputPath))
	assert.Equal(t, consultation.StatusFailed, run.Status)
	assert.Equal(t, agents.StatusFailed, run.SynthesisStatus)
	assert.Contains(t, run.SynthesisError, "context length exceeded")
}

func TestPipeline_Run_MissingReport(t *testing.T) {
	f := newFixture(t, map[role.Role]answer{})
	require.NoError(t, os.Remove(f.reportPath))

	run, err := f.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, run)
	assert.ErrorIs(t, err, errors.ErrIO)

	_, statErr := os.Stat(f.outputPath)
	assert.True(t, os.IsNotExist(statErr))
	for _, rec := range f.recorders {
		assert.Empty(t, rec.runs)
	}
	assert.Contains(t, f.tracker.breadcrumbs, "run failed")
}

func TestPipeline_Run_UnwritableOutput(t *testing.T) {
	f := newFixture(t, map[role.Role]answer{
		role.Cardiologist:  {text: "A"},
		role.Psychologist:  {text: "B"},
		role.Pulmonologist: {text: "C"},
		role.Synthesizer:   {text: "D"},
	})

	blocker := filepath.Join(filepath.Dir(f.reportPath), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o644))
	f.outputPath = filepath.Join(blocker, "final_diagnosis.txt")

	_, err := f.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrIO)
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{}, Options{ReportPath: "r", OutputPath: "o"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestPipeline_Run_InterruptedKeepsPreviousOutput(t *testing.T) {
	slow := answer{text: "late", delay: 200 * time.Millisecond}
	f := newFixture(t, map[role.Role]answer{
		role.Cardiologist:  slow,
		role.Psychologist:  slow,
		role.Pulmonologist: slow,
		role.Synthesizer:   {text: "D"},
	})

	require.NoError(t, os.MkdirAll(filepath.Dir(f.outputPath), 0o755))
	require.NoError(t, os.WriteFile(f.outputPath, []byte("previous diagnosis"), 0o644))

	limited := ai.WithRateLimit(f.provider, ai.RateLimitConfig{ReqPerMinute: 600, Burst: 3})
	p := f.pipelineWith(t, limited)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	run, err := p.Run(ctx)
	require.Error(t, err)
	assert.Nil(t, run)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, "previous diagnosis", readOutput(t, f.outputPath))
	assert.Empty(t, f.provider.prompt(role.Synthesizer), "synthesis must not start after cancellation")
	for _, rec := range f.recorders {
		assert.Empty(t, rec.runs)
	}
	assert.Contains(t, f.tracker.breadcrumbs, "run failed")
}

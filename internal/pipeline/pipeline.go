package pipeline

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"medteam/internal/agents"
	"medteam/internal/domain/consultation"
	"medteam/internal/domain/role"
	"medteam/internal/metrics"
	"medteam/internal/sink"
	"medteam/pkg/errors"
	"medteam/pkg/logger"
	"medteam/pkg/templates"
)

const responsePreviewRunes = 200

// Options names the files and provider a run works with
type Options struct {
	ReportPath string
	OutputPath string
	Provider   string
	Model      string
}

// Deps are the collaborators of a Pipeline. Tracker and Recorders are optional.
type Deps struct {
	Coordinator *agents.Coordinator
	Synthesizer *agents.Synthesizer
	Sink        sink.Sink
	Tracker     errors.Tracker
	Recorders   []consultation.Recorder
}

// Pipeline runs one consultation: report in, three specialist opinions in
// parallel, one synthesized diagnosis out.
type Pipeline struct {
	deps Deps
	opts Options
	log  *logger.Logger
	now  func() time.Time
}

// New validates dependencies and options
func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Coordinator == nil:
		return nil, errors.Wrap(errors.ErrInvalidInput, "coordinator is required")
	case deps.Synthesizer == nil:
		return nil, errors.Wrap(errors.ErrInvalidInput, "synthesizer is required")
	case deps.Sink == nil:
		return nil, errors.Wrap(errors.ErrInvalidInput, "sink is required")
	case opts.ReportPath == "" || opts.OutputPath == "":
		return nil, errors.Wrap(errors.ErrInvalidInput, "report and output paths are required")
	}

	return &Pipeline{
		deps: deps,
		opts: opts,
		log:  logger.Component("pipeline"),
		now:  time.Now,
	}, nil
}

// Run executes the consultation. Role and synthesis inference failures are
// contained in the returned record; report, prompt and save failures are returned
// as errors, as is a cancelled ctx, in which case the output file is left untouched.
// Recorder failures are logged only.
func (p *Pipeline) Run(ctx context.Context) (*consultation.Run, error) {
	run := &consultation.Run{
		ID:         uuid.New(),
		StartedAt:  p.now(),
		ReportPath: p.opts.ReportPath,
		Provider:   p.opts.Provider,
		Model:      p.opts.Model,
		OutputPath: p.opts.OutputPath,
	}
	log := p.log.With("run_id", run.ID.String())

	report, err := LoadReport(p.opts.ReportPath)
	if err != nil {
		return nil, p.fail(ctx, run, err)
	}
	run.ReportBytes = len(report)
	log.Infof("Loaded medical report %s (%s)", p.opts.ReportPath, humanize.Bytes(uint64(run.ReportBytes)))
	p.breadcrumb(ctx, "report loaded", map[string]interface{}{"bytes": run.ReportBytes})

	mapping := p.deps.Coordinator.Run(ctx, role.Primary(), report)
	if err := interrupted(ctx, "specialists"); err != nil {
		return nil, p.fail(ctx, run, err)
	}
	p.breadcrumb(ctx, "specialists finished", map[string]interface{}{"succeeded": mapping.Succeeded()})

	for _, r := range role.Primary() {
		res := mapping[r]
		run.Roles = append(run.Roles, outcome(res))

		if res.OK() {
			log.Infof("%s response: %s", r, templates.Preview(res.Text, responsePreviewRunes))
		} else {
			log.Warnf("%s produced no response: %v", r, res.Err)
		}
	}

	diagnosis, err := p.deps.Synthesizer.Run(ctx, mapping)
	if err != nil {
		return nil, p.fail(ctx, run, err)
	}
	if err := interrupted(ctx, "synthesis"); err != nil {
		return nil, p.fail(ctx, run, err)
	}

	run.Diagnosis = diagnosis.Text
	run.TotalTokens = mapping.Usage().Add(diagnosis.Usage).TotalTokens
	run.SynthesisStatus = agents.StatusSuccess
	if !diagnosis.OK() {
		synthErr := diagnosis.Err
		if synthErr == nil {
			synthErr = errors.Wrap(errors.ErrInference, "empty diagnosis")
		}
		run.SynthesisStatus = agents.StatusFailed
		run.SynthesisError = synthErr.Error()
		log.ErrorWithContext(ctx, errors.Wrap(synthErr, "synthesis produced no diagnosis"),
			map[string]string{"run_id": run.ID.String()})
	}

	if err := p.deps.Sink.Save(ctx, diagnosis.Text, p.opts.OutputPath); err != nil {
		return nil, p.fail(ctx, run, err)
	}

	run.Finalize(p.now())
	metrics.RecordRun(run.Status, run.Duration())
	log.Infof("Consultation %s finished in %s, %s tokens", run.Status,
		run.Duration().Round(time.Millisecond), humanize.Comma(int64(run.TotalTokens)))

	p.record(ctx, log, run)

	return run, nil
}

// interrupted returns the ctx error once the run is cancelled; nothing is saved after it.
func interrupted(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "interrupted during %s", stage)
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, run *consultation.Run, err error) error {
	run.Finalize(p.now())
	metrics.RecordRun(consultation.StatusFailed, run.Duration())
	p.breadcrumb(ctx, "run failed", map[string]interface{}{"error": err.Error()})
	return errors.Wrapf(err, "consultation %s", run.ID)
}

func (p *Pipeline) record(ctx context.Context, log *logger.Logger, run *consultation.Run) {
	for _, rec := range p.deps.Recorders {
		if err := rec.Record(ctx, run); err != nil {
			log.ErrorWithContext(ctx, errors.Wrapf(err, "recorder %s", rec.Name()),
				map[string]string{"run_id": run.ID.String(), "recorder": rec.Name()})
			continue
		}
		log.Debugf("Run recorded by %s", rec.Name())
	}
}

func (p *Pipeline) breadcrumb(ctx context.Context, message string, data map[string]interface{}) {
	if p.deps.Tracker == nil {
		return
	}
	p.deps.Tracker.AddBreadcrumb(ctx, message, "pipeline", errors.LevelInfo, data)
}

func outcome(res agents.Result) consultation.RoleOutcome {
	o := consultation.RoleOutcome{
		Role:       res.Role.String(),
		Status:     res.Status(),
		Tokens:     res.Usage.TotalTokens,
		DurationMs: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		o.Error = res.Err.Error()
	}
	return o
}

package agents

import (
	"context"

	"medteam/internal/domain/role"
	"medteam/pkg/errors"
	"medteam/pkg/logger"
)

// Synthesizer turns the three primary results into the final diagnosis.
type Synthesizer struct {
	worker *Worker
	log    *logger.Logger
}

// NewSynthesizer creates a synthesizer on top of a worker.
func NewSynthesizer(worker *Worker) (*Synthesizer, error) {
	if worker == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "worker is required")
	}
	return &Synthesizer{worker: worker, log: logger.Component("synthesizer")}, nil
}

// Run requires an entry for every primary role; failed entries contribute
// their failure description. An inference failure yields a Diagnosis with
// empty Text and Err set; the returned error is reserved for a mapping that
// is missing roles or a prompt that cannot be built.
func (s *Synthesizer) Run(ctx context.Context, mapping ResultMapping) (Diagnosis, error) {
	if missing := mapping.Missing(role.Primary()); len(missing) > 0 {
		return Diagnosis{}, errors.Wrapf(errors.ErrMissingInput, "synthesis needs results for %v", missing)
	}

	inputs := make(map[string]string, len(role.Primary()))
	for _, r := range role.Primary() {
		res := mapping[r]
		if !res.OK() {
			s.log.Warnf("Synthesizing without %s: %v", r, res.Err)
		}
		inputs[r.ReportKey()] = res.Content()
	}

	s.log.Info("Running multidisciplinary team analysis...")
	res := s.worker.Execute(ctx, role.Synthesizer, inputs)

	if errors.Is(res.Err, errors.ErrMissingInput) || errors.Is(res.Err, errors.ErrUnknownRole) {
		return Diagnosis{}, res.Err
	}

	return Diagnosis{
		Text:     res.Text,
		Err:      res.Err,
		Model:    res.Model,
		Usage:    res.Usage,
		Duration: res.Duration,
	}, nil
}

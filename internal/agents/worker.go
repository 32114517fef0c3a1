package agents

import (
	"context"
	"time"

	"medteam/internal/adapters/ai"
	"medteam/internal/domain/role"
	"medteam/internal/metrics"
	"medteam/internal/prompts"
	"medteam/pkg/errors"
	"medteam/pkg/logger"
	"medteam/pkg/templates"
)

const promptPreviewRunes = 300

// InferenceOptions are the decoding settings shared by every role call.
type InferenceOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// DefaultInferenceOptions returns deterministic decoding with a 512 token cap.
func DefaultInferenceOptions(model string) InferenceOptions {
	return InferenceOptions{Model: model, Temperature: 0, MaxTokens: 512}
}

// Worker runs one role: render the prompt, call the provider, and fold any
// failure into the returned Result.
type Worker struct {
	provider ai.ChatProvider
	builder  *prompts.Builder
	opts     InferenceOptions
	log      *logger.Logger
}

// NewWorker creates a worker.
func NewWorker(provider ai.ChatProvider, builder *prompts.Builder, opts InferenceOptions) (*Worker, error) {
	if provider == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "chat provider is required")
	}
	if builder == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "prompt builder is required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}

	return &Worker{
		provider: provider,
		builder:  builder,
		opts:     opts,
		log:      logger.Component("role_worker").With("provider", provider.Name()),
	}, nil
}

// Execute never returns an error: every failure ends up in Result.Err.
// Prompt errors keep their ErrUnknownRole / ErrMissingInput identity; call
// failures are wrapped with ErrInference.
func (w *Worker) Execute(ctx context.Context, r role.Role, inputs map[string]string) Result {
	log := w.log.With("role", r.String())
	res := Result{Role: r, Model: w.opts.Model}

	prompt, err := w.builder.Render(r, inputs)
	if err != nil {
		log.Errorf("Prompt for %s could not be built: %v", r, err)
		res.Err = err
		return res
	}

	log.Infof("%s is running...", r)
	log.Debugf("Sending prompt: %s", templates.Preview(prompt, promptPreviewRunes))

	start := time.Now()
	resp, err := w.provider.Chat(ctx, ai.ChatRequest{
		Model:       w.opts.Model,
		Messages:    []ai.Message{ai.UserMessage(prompt)},
		Temperature: w.opts.Temperature,
		MaxTokens:   w.opts.MaxTokens,
	})
	res.Duration = time.Since(start)

	switch {
	case err != nil:
		res.Err = errors.Tag(err, errors.ErrInference)
	case resp.Text() == "":
		res.Err = errors.Wrap(errors.ErrInference, "empty completion")
	default:
		res.Text = resp.Text()
		res.Usage = resp.Usage
		if resp.Model != "" {
			res.Model = resp.Model
		}
	}

	metrics.RecordAgentCall(r.String(), w.opts.Model, res.Duration,
		res.Usage.PromptTokens, res.Usage.CompletionTokens, res.Err)

	if res.Err != nil {
		log.Warnf("%s failed after %s: %v", r, res.Duration.Round(time.Millisecond), res.Err)
		return res
	}

	log.Infow("Response received",
		"duration", res.Duration.Round(time.Millisecond).String(),
		"tokens", res.Usage.TotalTokens)
	return res
}

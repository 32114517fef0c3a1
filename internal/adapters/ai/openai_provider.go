package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"medteam/pkg/errors"
	"medteam/pkg/logger"
)

// OpenAICompatibleProvider talks to any OpenAI-compatible chat completions
// endpoint (Together AI, OpenAI) through the official SDK.
type OpenAICompatibleProvider struct {
	name    ProviderName
	client  openai.Client
	timeout time.Duration
	log     *logger.Logger
}

var _ ChatProvider = (*OpenAICompatibleProvider)(nil)

// NewOpenAICompatibleProvider creates a provider against baseURL.
// The SDK's own retries are disabled: a failed call is terminal for the role.
func NewOpenAICompatibleProvider(name ProviderName, apiKey, baseURL string, timeout time.Duration) (*OpenAICompatibleProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrapf(errors.ErrMissingCredentials, "%s API key is required", name)
	}
	if baseURL == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "%s base URL is required", name)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)

	return &OpenAICompatibleProvider{
		name:    name,
		client:  client,
		timeout: timeout,
		log:     logger.Component("ai_provider").With("provider", name.String()),
	}, nil
}

// Name returns provider name.
func (p *OpenAICompatibleProvider) Name() string { return p.name.String() }

// Chat sends a chat completion request.
func (p *OpenAICompatibleProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "chat request has no messages")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "%s chat completion", p.name)
	}

	resp := &ChatResponse{
		ID:    completion.ID,
		Model: completion.Model,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	for _, choice := range completion.Choices {
		resp.Choices = append(resp.Choices, Choice{
			Index:        int(choice.Index),
			Message:      Message{Role: RoleAssistant, Content: choice.Message.Content},
			FinishReason: normalizeFinishReason(string(choice.FinishReason)),
		})
	}

	if resp.Text() == "" {
		return nil, errors.Wrapf(errors.ErrInference, "%s returned an empty completion", p.name)
	}

	p.log.Debugw("Chat completion received",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp, nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

package ai

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"medteam/pkg/errors"
	"medteam/pkg/logger"
)

// GeminiProvider calls Google Gemini through the genai SDK.
type GeminiProvider struct {
	client  *genai.Client
	timeout time.Duration
	log     *logger.Logger
}

var _ ChatProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider. baseURL is optional.
func NewGeminiProvider(ctx context.Context, apiKey, baseURL string, timeout time.Duration) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrMissingCredentials, "gemini API key is required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}

	return &GeminiProvider{
		client:  client,
		timeout: timeout,
		log:     logger.Component("ai_provider").With("provider", ProviderNameGemini.String()),
	}, nil
}

// Name returns provider name.
func (p *GeminiProvider) Name() string { return ProviderNameGemini.String() }

// Chat sends the conversation as a single GenerateContent call. System
// messages become the system instruction.
func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "chat request has no messages")
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(system) > 0 {
		genCfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, err := p.client.Models.GenerateContent(ctx, req.Model, contents, genCfg)
	if err != nil {
		return nil, errors.Wrap(err, "gemini generate content")
	}

	resp := &ChatResponse{
		ID:    result.ResponseID,
		Model: req.Model,
	}
	if result.ModelVersion != "" {
		resp.Model = result.ModelVersion
	}
	if u := result.UsageMetadata; u != nil {
		resp.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	finish := FinishReasonOther
	if len(result.Candidates) > 0 {
		finish = normalizeFinishReason(string(result.Candidates[0].FinishReason))
	}
	resp.Choices = []Choice{{
		Message:      Message{Role: RoleAssistant, Content: result.Text()},
		FinishReason: finish,
	}}

	if resp.Text() == "" {
		return nil, errors.Wrap(errors.ErrInference, "gemini returned an empty completion")
	}

	p.log.Debugw("Gemini content received",
		"model", resp.Model,
		"total_tokens", resp.Usage.TotalTokens)

	return resp, nil
}

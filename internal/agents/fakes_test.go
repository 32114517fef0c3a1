package agents

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"medteam/internal/adapters/ai"
	"medteam/internal/domain/role"
	"medteam/internal/prompts"
)

// reply scripts the fake provider's behaviour for prompts containing a marker.
type reply struct {
	text  string
	err   error
	delay time.Duration
	panic bool
}

// markers identify which role a prompt belongs to.
var markers = map[role.Role]string{
	role.Cardiologist:  "Act like a cardiologist",
	role.Psychologist:  "Act like a psychologist",
	role.Pulmonologist: "Act like a pulmonologist",
	role.Synthesizer:   "Act like a multidisciplinary team",
}

type scriptedProvider struct {
	mu      sync.Mutex
	replies map[role.Role]reply
	prompts map[role.Role]string
	order   []role.Role
	reqs    []ai.ChatRequest
}

func newScriptedProvider(replies map[role.Role]reply) *scriptedProvider {
	return &scriptedProvider{replies: replies, prompts: map[role.Role]string{}}
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	prompt := req.Messages[len(req.Messages)-1].Content

	var (
		r  role.Role
		rp reply
	)
	for candidate, marker := range markers {
		if strings.Contains(prompt, marker) {
			r, rp = candidate, p.replies[candidate]
			break
		}
	}

	p.mu.Lock()
	p.prompts[r] = prompt
	p.reqs = append(p.reqs, req)
	p.mu.Unlock()

	if rp.delay > 0 {
		select {
		case <-time.After(rp.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if rp.panic {
		panic("provider exploded")
	}

	p.mu.Lock()
	p.order = append(p.order, r)
	p.mu.Unlock()

	if rp.err != nil {
		return nil, rp.err
	}
	return &ai.ChatResponse{
		Model: req.Model,
		Choices: []ai.Choice{{
			Message:      ai.Message{Role: ai.RoleAssistant, Content: rp.text},
			FinishReason: ai.FinishReasonStop,
		}},
		Usage: ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (p *scriptedProvider) promptFor(r role.Role) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts[r]
}

func (p *scriptedProvider) completionOrder() []role.Role {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]role.Role(nil), p.order...)
}

func newTestWorker(t *testing.T, provider ai.ChatProvider) *Worker {
	t.Helper()
	builder, err := prompts.NewDefaultBuilder("")
	require.NoError(t, err)
	w, err := NewWorker(provider, builder, DefaultInferenceOptions("test-model"))
	require.NoError(t, err)
	return w
}

package llm

import (
	"context"
	"sync"
	"time"
)

// MockProvider implements Provider for testing. It returns queued responses in
// order and repeats FixedContent once the queue is drained.
type MockProvider struct {
	FixedContent string
	Responses    []string
	PingErr      error
	GenerateErr  error

	mu      sync.Mutex
	prompts []string
}

// NewMockProvider creates a mock provider that always answers content.
func NewMockProvider(content string) *MockProvider {
	return &MockProvider{FixedContent: content}
}

func (p *MockProvider) Name() string { return "Mock" }

func (p *MockProvider) Ping(_ context.Context) error {
	return p.PingErr
}

func (p *MockProvider) Complete(ctx context.Context, prompt string, _ Options) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prompts = append(p.prompts, prompt)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.GenerateErr != nil {
		return nil, p.GenerateErr
	}

	content := p.FixedContent
	if len(p.Responses) > 0 {
		content = p.Responses[0]
		p.Responses = p.Responses[1:]
	}
	return &Response{
		Content:    content,
		Model:      "mock",
		TokensUsed: 100,
		Duration:   time.Millisecond,
		StopReason: "stop",
	}, nil
}

// Prompts returns every prompt received so far.
func (p *MockProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.prompts))
	copy(out, p.prompts)
	return out
}

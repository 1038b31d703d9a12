package quota

import (
	"context"
	"sync"

	"github.com/jonwraymond/codesession/completion"
)

// mockCompletion is a completion.Client with configurable behavior and
// call tracking. Safe for concurrent use: batches fan out.
type mockCompletion struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (m *mockCompletion) Complete(_ context.Context, req completion.Request) (completion.Response, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, req.Prompt)
	m.mu.Unlock()

	if m.reply == nil {
		return completion.Response{Text: "reply:" + req.Prompt}, nil
	}
	text, err := m.reply(req.Prompt)
	if err != nil {
		return completion.Response{}, err
	}
	return completion.Response{Text: text}, nil
}

func (m *mockCompletion) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

var _ completion.Client = (*mockCompletion)(nil)

package driver

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/jonwraymond/codesession/completion"
	"github.com/jonwraymond/codesession/protocol"
)

// stubEngine is a scriptable Engine for loop tests.
type stubEngine struct {
	execute func(ctx context.Context, frag Fragment, call CallFunc) (Outcome, error)
	frags   []Fragment
	closed  bool
}

func (s *stubEngine) Execute(ctx context.Context, frag Fragment, call CallFunc) (Outcome, error) {
	s.frags = append(s.frags, frag)
	if s.execute == nil {
		return Outcome{Values: map[string]any{}}, nil
	}
	return s.execute(ctx, frag, call)
}

func (s *stubEngine) Close() error {
	s.closed = true
	return nil
}

// mockCompletion is a thread-safe completion.Client stub.
type mockCompletion struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) string
}

func (m *mockCompletion) Complete(_ context.Context, req completion.Request) (completion.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, req.Prompt)
	text := "summary"
	if m.reply != nil {
		text = m.reply(req.Prompt)
	}
	return completion.Response{Text: text}, nil
}

// encodeInput builds the driver's input stream from commands and
// replies in wire order.
func encodeInput(t *testing.T, messages ...any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)
	for _, msg := range messages {
		var err error
		switch m := msg.(type) {
		case *protocol.Command:
			err = w.WriteCommand(*m)
		case *protocol.Reply:
			err = w.WriteReply(*m)
		default:
			t.Fatalf("unsupported message %T", msg)
		}
		if err != nil {
			t.Fatalf("encode input: %v", err)
		}
	}
	return &buf
}

// readResponses decodes every Response the driver wrote.
func readResponses(t *testing.T, out *bytes.Buffer) []protocol.Response {
	t.Helper()
	r := protocol.NewReader(bytes.NewReader(out.Bytes()))
	var responses []protocol.Response
	for {
		resp, err := r.ReadResponse()
		if err != nil {
			return responses
		}
		responses = append(responses, resp)
	}
}

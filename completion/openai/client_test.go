package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jonwraymond/codesession/completion"
)

type mockChat struct {
	lastReq openai.ChatCompletionRequest
	calls   int
	resp    openai.ChatCompletionResponse
	err     error
}

func (m *mockChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.calls++
	m.lastReq = req
	return m.resp, m.err
}

func chatResponse(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
		},
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{DefaultModel: "m"}); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := New(Options{Client: &mockChat{}}); err == nil {
		t.Error("expected error for empty default model")
	}
}

func TestCompleteTranslatesRequest(t *testing.T) {
	mock := &mockChat{resp: chatResponse("fine")}
	c, err := New(Options{Client: mock, DefaultModel: "gpt-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := c.Complete(context.Background(), completion.Request{Prompt: "hi", MaxTokens: 32})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "fine" {
		t.Errorf("text = %q", resp.Text)
	}
	if mock.lastReq.Model != "gpt-test" {
		t.Errorf("model = %q", mock.lastReq.Model)
	}
	if mock.lastReq.MaxTokens != 32 {
		t.Errorf("max tokens = %d", mock.lastReq.MaxTokens)
	}
	if len(mock.lastReq.Messages) != 1 || mock.lastReq.Messages[0].Content != "hi" {
		t.Errorf("messages = %+v", mock.lastReq.Messages)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	c, err := New(Options{Client: &mockChat{}, DefaultModel: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Complete(context.Background(), completion.Request{Prompt: "hi"}); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestCompletePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	c, err := New(Options{Client: &mockChat{err: boom}, DefaultModel: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Complete(context.Background(), completion.Request{Prompt: "hi"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

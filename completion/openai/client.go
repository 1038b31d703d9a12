// Package openai adapts the OpenAI Chat Completions API to the completion
// capability using github.com/sashabaranov/go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jonwraymond/codesession/completion"
)

// ChatClient captures the subset of the go-openai client used by the
// adapter.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (
		openai.ChatCompletionResponse, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	// Client issues chat completion requests. Required.
	Client ChatClient

	// DefaultModel is the model identifier used when Request.Model is
	// empty. Required.
	DefaultModel string
}

// Client implements completion.Client via the OpenAI Chat Completions API.
type Client struct {
	chat  ChatClient
	model string
}

// New builds an OpenAI-backed completion client from the provided options.
func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, errors.New("openai client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("default model is required")
	}
	return &Client{chat: opts.Client, model: opts.DefaultModel}, nil
}

// NewFromAPIKey constructs a client using the default go-openai HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	return New(Options{Client: openai.NewClient(apiKey), DefaultModel: defaultModel})
}

// Complete issues one chat completion with the prompt as the sole user
// message.
func (c *Client) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	if req.Prompt == "" {
		return completion.Response{}, errors.New("openai: prompt is required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.model
	}
	request := openai.ChatCompletionRequest{
		Model: modelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens: req.MaxTokens,
	}
	response, err := c.chat.CreateChatCompletion(ctx, request)
	if err != nil {
		return completion.Response{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return completion.Response{}, errors.New("openai: response carried no choices")
	}
	return completion.Response{Text: response.Choices[0].Message.Content}, nil
}

var _ completion.Client = (*Client)(nil)

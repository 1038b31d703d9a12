// Package anthropic adapts the Anthropic Messages API to the completion
// capability using github.com/anthropics/anthropic-sdk-go.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jonwraymond/codesession/completion"
)

// DefaultMaxTokens caps completions when neither the request nor the
// options specify a limit.
const DefaultMaxTokens = 1024

// MessagesClient captures the subset of the Anthropic SDK client used by
// the adapter. It is satisfied by *sdk.MessageService so callers can pass
// either a real client or a mock in tests.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the Anthropic adapter.
type Options struct {
	// DefaultModel is the model identifier used when Request.Model is
	// empty. Required.
	DefaultModel string

	// MaxTokens is the default completion cap when a request does not
	// specify one. Zero applies DefaultMaxTokens.
	MaxTokens int
}

// Client implements completion.Client on top of Anthropic Messages.
type Client struct {
	msg    MessagesClient
	model  string
	maxTok int
}

// New builds an Anthropic-backed completion client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic messages client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("default model identifier is required")
	}
	maxTok := opts.MaxTokens
	if maxTok <= 0 {
		maxTok = DefaultMaxTokens
	}
	return &Client{msg: msg, model: opts.DefaultModel, maxTok: maxTok}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{DefaultModel: defaultModel})
}

// Complete issues one Messages.New request and returns the concatenated
// text blocks of the response.
func (c *Client) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	if req.Prompt == "" {
		return completion.Response{}, errors.New("anthropic: prompt is required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTok
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
		Model:     sdk.Model(modelID),
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return completion.Response{}, fmt.Errorf("anthropic messages.new: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return completion.Response{Text: text.String()}, nil
}

var _ completion.Client = (*Client)(nil)

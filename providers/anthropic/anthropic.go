// Package anthropic implements the polishing backend on the Anthropic Messages API.
package anthropic

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/zoobzio/capitan"

	"github.com/zoobzio/polish/providers"
)

// Provider implements providers.Backend for Anthropic.
type Provider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	name        string
}

// Config holds configuration for the Anthropic provider.
type Config struct {
	APIKey      string
	Model       string        // e.g. "claude-sonnet-4-5"
	BaseURL     string        // Optional, defaults to the SDK's endpoint
	MaxTokens   int64         // Optional, defaults to 1024
	Temperature float64       // Optional, defaults to 0.2
	Timeout     time.Duration // Optional, defaults to 60s
}

// New creates a new Anthropic provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		client:      anthropic.NewClient(opts...),
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		name:        "anthropic",
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) params(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(p.temperature),
	}
}

// Complete sends prompt to Anthropic and returns the concatenated text blocks.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()

	capitan.Emit(ctx, providers.CallStarted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(providers.CallComplete),
	)

	msg, err := p.client.Messages.New(ctx, p.params(prompt))
	if err != nil {
		return "", p.fail(ctx, providers.CallComplete, startTime, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", p.fail(ctx, providers.CallComplete, startTime, errors.New("no text content in response"))
	}

	capitan.Emit(ctx, providers.CallCompleted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(string(msg.Model)),
		providers.CallKey.Field(providers.CallComplete),
		providers.PromptTokensKey.Field(int(msg.Usage.InputTokens)),
		providers.CompletionTokensKey.Field(int(msg.Usage.OutputTokens)),
		providers.ResponseIDKey.Field(msg.ID),
		providers.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
	)

	return text.String(), nil
}

// Stream sends prompt to Anthropic with streaming enabled and forwards every text delta.
func (p *Provider) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	startTime := time.Now()

	capitan.Emit(ctx, providers.CallStarted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(providers.CallStream),
	)

	stream := p.client.Messages.NewStreaming(ctx, p.params(prompt))
	defer stream.Close()

	deltas := 0
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			td, ok := ev.Delta.AsAny().(anthropic.TextDelta)
			if !ok || td.Text == "" {
				continue
			}
			deltas++
			if err := emit(td.Text); err != nil {
				return p.fail(ctx, providers.CallStream, startTime, err)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return p.fail(ctx, providers.CallStream, startTime, err)
	}

	capitan.Emit(ctx, providers.CallCompleted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(providers.CallStream),
		providers.DeltasKey.Field(deltas),
		providers.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
	)
	return nil
}

// fail emits provider.call.failed and returns a wrapped error.
func (p *Provider) fail(ctx context.Context, call string, startTime time.Time, err error) error {
	fields := []capitan.Field{
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(call),
		providers.ErrorKey.Field(err.Error()),
		providers.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		fields = append(fields, providers.HTTPStatusCodeKey.Field(apiErr.StatusCode))
		capitan.Emit(ctx, providers.CallFailed, fields...)
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(err, "rate limit exceeded")
		}
		return errors.Wrapf(err, "anthropic error (%d)", apiErr.StatusCode)
	}

	capitan.Emit(ctx, providers.CallFailed, fields...)
	return errors.Wrap(err, "anthropic request failed")
}

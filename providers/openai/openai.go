// Package openai implements the polishing backend on the OpenAI Chat Completions API.
package openai

import (
	"context"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/zoobzio/capitan"

	"github.com/zoobzio/polish/providers"
)

// Provider implements providers.Backend for OpenAI.
type Provider struct {
	client      openai.Client
	model       string
	temperature float64
	name        string
}

// Config holds configuration for the OpenAI provider.
type Config struct {
	APIKey      string
	Model       string        // e.g. "gpt-4o", "gpt-4o-mini"
	BaseURL     string        // Optional, defaults to the SDK's endpoint
	Temperature float64       // Optional, defaults to 0.2
	Timeout     time.Duration // Optional, defaults to 60s
}

// New creates a new OpenAI provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "gpt-4o"
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
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return NewWithOptions("openai", config.Model, config.Temperature, opts...)
}

// NewWithOptions creates a provider for any Chat Completions compatible service.
// name labels the provider in events; opts configure the underlying client.
func NewWithOptions(name, model string, temperature float64, opts ...option.RequestOption) *Provider {
	// The polishing client owns retries through its endpoint chain.
	opts = append(opts, option.WithMaxRetries(0))
	return &Provider{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		name:        name,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) params(prompt string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(p.temperature),
	}
}

// Complete sends prompt to OpenAI and returns the response text.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()

	capitan.Emit(ctx, providers.CallStarted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(providers.CallComplete),
	)

	resp, err := p.client.Chat.Completions.New(ctx, p.params(prompt))
	if err != nil {
		return "", p.fail(ctx, providers.CallComplete, startTime, err)
	}
	if len(resp.Choices) == 0 {
		return "", p.fail(ctx, providers.CallComplete, startTime, errors.New("no response choices returned"))
	}

	capitan.Emit(ctx, providers.CallCompleted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(resp.Model),
		providers.CallKey.Field(providers.CallComplete),
		providers.PromptTokensKey.Field(int(resp.Usage.PromptTokens)),
		providers.CompletionTokensKey.Field(int(resp.Usage.CompletionTokens)),
		providers.ResponseIDKey.Field(resp.ID),
		providers.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
	)

	return resp.Choices[0].Message.Content, nil
}

// Stream sends prompt to OpenAI with streaming enabled and forwards every content delta.
func (p *Provider) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	startTime := time.Now()

	capitan.Emit(ctx, providers.CallStarted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(providers.CallStream),
	)

	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(prompt))
	defer stream.Close()

	deltas := 0
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		deltas++
		if err := emit(delta); err != nil {
			return p.fail(ctx, providers.CallStream, startTime, err)
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

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		fields = append(fields, providers.HTTPStatusCodeKey.Field(apiErr.StatusCode))
		capitan.Emit(ctx, providers.CallFailed, fields...)
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(err, "rate limit exceeded")
		}
		return errors.Wrapf(err, "%s error (%d)", p.name, apiErr.StatusCode)
	}

	capitan.Emit(ctx, providers.CallFailed, fields...)
	return errors.Wrapf(err, "%s request failed", p.name)
}

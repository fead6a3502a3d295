// Package bedrock implements the polishing backend on the AWS Bedrock Converse API.
package bedrock

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/zoobzio/capitan"

	"github.com/zoobzio/polish/providers"
)

// Provider implements providers.Backend for AWS Bedrock.
type Provider struct {
	client      *bedrockruntime.Client
	model       string
	maxTokens   int32
	temperature float32
	name        string
}

// Config holds configuration for the Bedrock provider.
type Config struct {
	Region      string  // AWS region (e.g. "us-east-1")
	AccessKey   string  // AWS access key
	SecretKey   string  // AWS secret key
	Model       string  // Model ID (e.g. "anthropic.claude-3-5-sonnet-20240620-v1:0")
	MaxTokens   int32   // Optional, defaults to 1024
	Temperature float32 // Optional, defaults to 0.2
	Endpoint    string  // Optional endpoint override
	Timeout     time.Duration
}

// New creates a new Bedrock provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Model == "" {
		cfg.Model = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	})

	return &Provider{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		name:        "bedrock",
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) messages(prompt string) []types.Message {
	return []types.Message{{
		Role: types.ConversationRoleUser,
		Content: []types.ContentBlock{
			&types.ContentBlockMemberText{Value: prompt},
		},
	}}
}

func (p *Provider) inference() *types.InferenceConfiguration {
	return &types.InferenceConfiguration{
		MaxTokens:   aws.Int32(p.maxTokens),
		Temperature: aws.Float32(p.temperature),
	}
}

// Complete sends prompt through Converse and returns the text content.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()

	capitan.Emit(ctx, providers.CallStarted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(providers.CallComplete),
	)

	out, err := p.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(p.model),
		Messages:        p.messages(prompt),
		InferenceConfig: p.inference(),
	})
	if err != nil {
		return "", p.fail(ctx, providers.CallComplete, startTime, err)
	}

	var text strings.Builder
	if msg, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if tb, ok := block.(*types.ContentBlockMemberText); ok {
				text.WriteString(tb.Value)
			}
		}
	}
	if text.Len() == 0 {
		return "", p.fail(ctx, providers.CallComplete, startTime, errors.New("no text content in response"))
	}

	fields := []capitan.Field{
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(providers.CallComplete),
		providers.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
	}
	if out.Usage != nil {
		fields = append(fields,
			providers.PromptTokensKey.Field(int(aws.ToInt32(out.Usage.InputTokens))),
			providers.CompletionTokensKey.Field(int(aws.ToInt32(out.Usage.OutputTokens))),
		)
	}
	capitan.Emit(ctx, providers.CallCompleted, fields...)

	return text.String(), nil
}

// Stream sends prompt through ConverseStream and forwards every text delta.
func (p *Provider) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	startTime := time.Now()

	capitan.Emit(ctx, providers.CallStarted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(providers.CallStream),
	)

	out, err := p.client.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:         aws.String(p.model),
		Messages:        p.messages(prompt),
		InferenceConfig: p.inference(),
	})
	if err != nil {
		return p.fail(ctx, providers.CallStream, startTime, err)
	}
	stream := out.GetStream()
	defer stream.Close()

	deltas := 0
	for event := range stream.Events() {
		ev, ok := event.(*types.ConverseStreamOutputMemberContentBlockDelta)
		if !ok {
			continue
		}
		td, ok := ev.Value.Delta.(*types.ContentBlockDeltaMemberText)
		if !ok || td.Value == "" {
			continue
		}
		deltas++
		if err := emit(td.Value); err != nil {
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

	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		fields = append(fields, providers.HTTPStatusCodeKey.Field(respErr.HTTPStatusCode()))
		capitan.Emit(ctx, providers.CallFailed, fields...)
		return errors.Wrapf(err, "bedrock error (%d)", respErr.HTTPStatusCode())
	}

	capitan.Emit(ctx, providers.CallFailed, fields...)
	return errors.Wrap(err, "bedrock request failed")
}

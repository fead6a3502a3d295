// Package google implements the polishing backend on the Gemini generateContent API.
package google

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/zoobzio/capitan"

	"github.com/zoobzio/polish/providers"
)

// Provider implements providers.Backend for Google Gemini.
type Provider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	httpClient  *http.Client
	name        string
}

// Config holds configuration for the Google provider.
type Config struct {
	APIKey      string
	Model       string        // e.g. "gemini-2.0-flash", "gemini-1.5-pro"
	BaseURL     string        // Optional, defaults to Google AI API
	Temperature float64       // Optional, defaults to 0.2
	Timeout     time.Duration // Optional, defaults to 60s
}

// New creates a new Google provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Provider{
		apiKey:      config.APIKey,
		model:       config.Model,
		baseURL:     strings.TrimSuffix(config.BaseURL, "/"),
		temperature: config.Temperature,
		httpClient:  &http.Client{Timeout: config.Timeout},
		name:        "google",
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) body(prompt string) ([]byte, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "contents.0.parts.0.text", prompt)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "generationConfig.temperature", p.temperature)
}

// post sends prompt to the given model method ("generateContent" or
// "streamGenerateContent") and returns the response once its status is 200.
func (p *Provider) post(ctx context.Context, method string, query url.Values, prompt string) (*http.Response, error) {
	body, err := p.body(prompt)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	query.Set("key", p.apiKey)
	endpoint := p.baseURL + "/models/" + url.PathEscape(p.model) + ":" + method + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, &statusError{status: resp.StatusCode, message: gjson.GetBytes(raw, "error.message").String()}
	}
	return resp, nil
}

// candidateText concatenates the text parts of every candidate in a response.
func candidateText(body []byte) string {
	var b strings.Builder
	gjson.GetBytes(body, "candidates.#.content.parts.#.text").ForEach(func(_, parts gjson.Result) bool {
		parts.ForEach(func(_, text gjson.Result) bool {
			b.WriteString(text.String())
			return true
		})
		return true
	})
	return b.String()
}

// Complete sends prompt to Gemini and returns the response text.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()

	capitan.Emit(ctx, providers.CallStarted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(providers.CallComplete),
	)

	resp, err := p.post(ctx, "generateContent", url.Values{}, prompt)
	if err != nil {
		return "", p.fail(ctx, providers.CallComplete, startTime, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", p.fail(ctx, providers.CallComplete, startTime, errors.Wrap(err, "read response"))
	}
	if !gjson.GetBytes(body, "candidates.0").Exists() {
		return "", p.fail(ctx, providers.CallComplete, startTime, errors.New("no response candidates"))
	}
	text := candidateText(body)
	if text == "" {
		return "", p.fail(ctx, providers.CallComplete, startTime, errors.New("no text content in response"))
	}

	capitan.Emit(ctx, providers.CallCompleted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(providers.CallComplete),
		providers.PromptTokensKey.Field(int(gjson.GetBytes(body, "usageMetadata.promptTokenCount").Int())),
		providers.CompletionTokensKey.Field(int(gjson.GetBytes(body, "usageMetadata.candidatesTokenCount").Int())),
		providers.ResponseIDKey.Field(gjson.GetBytes(body, "responseId").String()),
		providers.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
	)

	return text, nil
}

// Stream sends prompt with server-sent events enabled and forwards the text of
// every event.
func (p *Provider) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	startTime := time.Now()

	capitan.Emit(ctx, providers.CallStarted,
		providers.ProviderKey.Field(p.name),
		providers.ModelKey.Field(p.model),
		providers.CallKey.Field(providers.CallStream),
	)

	resp, err := p.post(ctx, "streamGenerateContent", url.Values{"alt": {"sse"}}, prompt)
	if err != nil {
		return p.fail(ctx, providers.CallStream, startTime, err)
	}

	decoder := ssestream.NewDecoder(resp)
	defer decoder.Close()

	deltas := 0
	for decoder.Next() {
		data := decoder.Event().Data
		if msg := gjson.GetBytes(data, "error.message"); msg.Exists() {
			return p.fail(ctx, providers.CallStream, startTime, errors.New(msg.String()))
		}
		delta := candidateText(data)
		if delta == "" {
			continue
		}
		deltas++
		if err := emit(delta); err != nil {
			return p.fail(ctx, providers.CallStream, startTime, err)
		}
	}
	if err := decoder.Err(); err != nil {
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

// statusError is a non-200 answer from the API.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return "status " + http.StatusText(e.status)
	}
	return e.message
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

	var se *statusError
	if errors.As(err, &se) {
		fields = append(fields, providers.HTTPStatusCodeKey.Field(se.status))
		capitan.Emit(ctx, providers.CallFailed, fields...)
		if se.status == http.StatusTooManyRequests {
			return errors.Wrap(err, "rate limit exceeded")
		}
		return errors.Wrapf(err, "google error (%d)", se.status)
	}

	capitan.Emit(ctx, providers.CallFailed, fields...)
	return errors.Wrap(err, "google request failed")
}

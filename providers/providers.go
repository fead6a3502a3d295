// Package providers defines the upstream language model backends used by the
// polishing service and the events they emit.
package providers

import (
	"context"

	"github.com/zoobzio/capitan"
)

// Backend produces polished text for a rendered prompt.
type Backend interface {
	// Name identifies the backend in logs and events.
	Name() string

	// Complete returns the whole completion at once.
	Complete(ctx context.Context, prompt string) (string, error)

	// Stream calls emit for every text delta in arrival order. A non-nil error
	// from emit stops the stream and is returned.
	Stream(ctx context.Context, prompt string, emit func(delta string) error) error
}

// Signals for provider events.
const (
	CallStarted   = capitan.Signal("polish.provider.call.started")
	CallCompleted = capitan.Signal("polish.provider.call.completed")
	CallFailed    = capitan.Signal("polish.provider.call.failed")
)

// Keys for provider event fields.
var (
	ProviderKey = capitan.NewStringKey("polish.provider")
	ModelKey    = capitan.NewStringKey("polish.provider.model")
	CallKey     = capitan.NewStringKey("polish.provider.call") // CallComplete or CallStream

	PromptTokensKey     = capitan.NewIntKey("polish.provider.tokens.prompt")
	CompletionTokensKey = capitan.NewIntKey("polish.provider.tokens.completion")
	DeltasKey           = capitan.NewIntKey("polish.provider.deltas")

	ErrorKey          = capitan.NewStringKey("polish.provider.error")
	HTTPStatusCodeKey = capitan.NewIntKey("polish.provider.http.status.code")
	DurationMsKey     = capitan.NewIntKey("polish.provider.duration.ms")
	ResponseIDKey     = capitan.NewStringKey("polish.provider.response.id")
)

// Values of CallKey.
const (
	CallComplete = "complete"
	CallStream   = "stream"
)

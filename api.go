// Package polish submits text to a remote polishing service and renders the result,
// surviving slow, failing, or partially-available endpoints.
//
// A submission walks a fixed chain of three endpoints. The first streams the
// polished text back as raw chunks, which are decoded incrementally and rendered as
// they arrive. If that attempt fails for any reason (transport error, bad status,
// timeout, an in-band error marker inside the stream, or an empty result) the
// orchestrator falls back to two one-shot JSON endpoints, in order. The first
// success wins; a user-visible error is surfaced only when all three fail.
//
// Attempts are pipz stages composed with fallback connectors, and every attempt
// emits capitan events for observability.
//
// Basic usage:
//
//	orch, _ := polish.New("https://texthelper.onrender.com", sink, trigger)
//	text, err := orch.Submit(ctx, "안녕하세요 문의 드립니다")
package polish

import (
	"strings"
	"time"
)

// Mode describes how an endpoint returns its result.
type Mode int

// Endpoint modes.
const (
	// Streaming endpoints return the result incrementally as raw text chunks.
	Streaming Mode = iota
	// OneShot endpoints return one complete JSON payload.
	OneShot
)

func (m Mode) String() string {
	switch m {
	case Streaming:
		return "streaming"
	case OneShot:
		return "oneshot"
	default:
		return "unknown"
	}
}

// Endpoint is a server route and the way its response is consumed.
type Endpoint struct {
	Path string
	Mode Mode
}

// Chain is the ordered set of endpoints tried for every submission.
// Priority is array order.
type Chain [3]Endpoint

// Default endpoint paths exposed by the polishing service.
const (
	PathStream = "/polish-text-stream"
	PathResp   = "/polish-text-resp"
	PathText   = "/polish-text"
)

// DefaultChain is the stream endpoint followed by the two one-shot fallbacks.
var DefaultChain = Chain{
	{Path: PathStream, Mode: Streaming},
	{Path: PathResp, Mode: OneShot},
	{Path: PathText, Mode: OneShot},
}

// Request is the immutable input of one submission.
type Request struct {
	text string
}

// NewRequest trims text and returns a Request, or ErrEmptyInput when nothing is left.
func NewRequest(text string) (Request, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Request{}, ErrEmptyInput
	}
	return Request{text: trimmed}, nil
}

// Text returns the trimmed input text.
func (r Request) Text() string {
	return r.text
}

// Attempt is the outcome of one endpoint attempt.
type Attempt struct {
	Index    int           // Position in the chain (0-based)
	Endpoint Endpoint      // Endpoint that was called
	Text     string        // Result text on success
	Err      *AttemptError // Failure reason, nil on success
	Duration time.Duration // Wall time spent on the attempt
}

// Succeeded reports whether the attempt produced a result.
func (a Attempt) Succeeded() bool {
	return a.Err == nil
}

// Polish flows through the pipz pipeline.
// It carries the request and collects attempt outcomes.
type Polish struct {
	// Input fields
	Request Request

	// Metadata fields
	RequestID string

	// Output fields (populated by pipeline stages)
	Attempts []Attempt
	Result   string
}

// LastAttempt returns the most recent attempt, if any.
func (p *Polish) LastAttempt() (Attempt, bool) {
	if len(p.Attempts) == 0 {
		return Attempt{}, false
	}
	return p.Attempts[len(p.Attempts)-1], true
}

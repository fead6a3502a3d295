package polish

import (
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
)

// ErrorKind classifies why a single endpoint attempt failed.
type ErrorKind int

// Attempt failure kinds.
const (
	KindTimeout ErrorKind = iota + 1
	KindBadResponse
	KindMalformedResponse
	KindInBandError
	KindEmptyResult
	KindNetwork
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindBadResponse:
		return "bad_response"
	case KindMalformedResponse:
		return "malformed_response"
	case KindInBandError:
		return "in_band_error"
	case KindEmptyResult:
		return "empty_result"
	case KindNetwork:
		return "network"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Sentinel errors. *AttemptError values match the sentinel of their kind with errors.Is.
var (
	ErrTimeout           = errors.New("stream timed out")
	ErrBadResponse       = errors.New("bad response")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInBandError       = errors.New("in-band error marker")
	ErrEmptyResult       = errors.New("empty result")
	ErrNetwork           = errors.New("network error")
	ErrPanic             = errors.New("attempt panicked")

	// ErrEmptyInput is returned when the submitted text is blank. No request is made.
	ErrEmptyInput = errors.New("empty input")
	// ErrAllEndpointsFailed is matched by *ExhaustedError.
	ErrAllEndpointsFailed = errors.New("all endpoints failed")
	// ErrInFlight is returned when Submit is called while another submission runs.
	ErrInFlight = errors.New("submission already in flight")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindBadResponse:
		return ErrBadResponse
	case KindMalformedResponse:
		return ErrMalformedResponse
	case KindInBandError:
		return ErrInBandError
	case KindEmptyResult:
		return ErrEmptyResult
	case KindNetwork:
		return ErrNetwork
	case KindPanic:
		return ErrPanic
	default:
		return nil
	}
}

// AttemptError describes the failure of one endpoint attempt.
type AttemptError struct {
	Kind   ErrorKind
	Path   string // Endpoint path
	Status int    // HTTP status, 0 when no response was received
	Marker string // In-band marker that matched, for KindInBandError
	Detail string // Human-readable detail (server error field, stream text, status)
	Err    error  // Underlying cause, if any
}

func (e *AttemptError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Path, e.Kind)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Message returns the part of the error worth showing to a user.
func (e *AttemptError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// Is matches the sentinel error of the attempt's kind.
func (e *AttemptError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when every endpoint in the chain failed.
type ExhaustedError struct {
	Attempts []Attempt
}

// Last returns the failure of the final attempt.
func (e *ExhaustedError) Last() *AttemptError {
	for i := len(e.Attempts) - 1; i >= 0; i-- {
		if e.Attempts[i].Err != nil {
			return e.Attempts[i].Err
		}
	}
	return nil
}

func (e *ExhaustedError) Error() string {
	last := e.Last()
	if last == nil {
		return ErrAllEndpointsFailed.Error()
	}
	return ErrAllEndpointsFailed.Error() + ": " + last.Message()
}

// Is matches ErrAllEndpointsFailed.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllEndpointsFailed
}

// Unwrap exposes the last attempt failure.
func (e *ExhaustedError) Unwrap() error {
	if last := e.Last(); last != nil {
		return last
	}
	return nil
}

func attemptErr(kind ErrorKind, ep Endpoint, detail string, cause error) *AttemptError {
	return &AttemptError{Kind: kind, Path: ep.Path, Detail: detail, Err: cause}
}

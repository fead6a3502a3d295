package polish

import "github.com/zoobzio/capitan"

// Signals for hook events.
const (
	SubmitStarted    = capitan.Signal("polish.submit.started")
	SubmitCompleted  = capitan.Signal("polish.submit.completed")
	SubmitFailed     = capitan.Signal("polish.submit.failed")
	SubmitRejected   = capitan.Signal("polish.submit.rejected")
	AttemptStarted   = capitan.Signal("polish.attempt.started")
	AttemptCompleted = capitan.Signal("polish.attempt.completed")
	AttemptFailed    = capitan.Signal("polish.attempt.failed")
	StreamChunk      = capitan.Signal("polish.stream.chunk")
)

// Keys for hook event fields.
var (
	// Request identification.
	RequestIDKey = capitan.NewStringKey("polish.request.id")

	// Endpoint information.
	EndpointKey = capitan.NewStringKey("polish.endpoint")
	ModeKey     = capitan.NewStringKey("polish.mode")
	AttemptKey  = capitan.NewIntKey("polish.attempt")

	// Input/Output data.
	InputKey  = capitan.NewStringKey("polish.input")
	OutputKey = capitan.NewStringKey("polish.output")

	// Error information.
	ErrorKey     = capitan.NewStringKey("polish.error")
	ErrorKindKey = capitan.NewStringKey("polish.error.kind")
	MarkerKey    = capitan.NewStringKey("polish.marker")

	// Metrics.
	ChunkBytesKey     = capitan.NewIntKey("polish.chunk.bytes")
	HTTPStatusCodeKey = capitan.NewIntKey("polish.http.status.code")
	DurationMsKey     = capitan.NewIntKey("polish.duration.ms")
)

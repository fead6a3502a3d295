// Package logging builds the service logger and bridges hook events into it.
package logging

import (
	"context"
	"sync"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/Laisky/zap/zapcore"
	"github.com/zoobzio/capitan"

	"github.com/zoobzio/polish"
	"github.com/zoobzio/polish/providers"
)

// New returns a JSON production logger, or a console development logger when
// debug is set.
func New(name string, debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger.Named(name), nil
}

type extractor func(*capitan.Event) (zap.Field, bool)

func str(name string, key interface {
	From(*capitan.Event) (string, bool)
}) extractor {
	return func(e *capitan.Event) (zap.Field, bool) {
		v, ok := key.From(e)
		if !ok {
			return zap.Skip(), false
		}
		return zap.String(name, v), true
	}
}

func num(name string, key interface {
	From(*capitan.Event) (int, bool)
}) extractor {
	return func(e *capitan.Event) (zap.Field, bool) {
		v, ok := key.From(e)
		if !ok {
			return zap.Skip(), false
		}
		return zap.Int(name, v), true
	}
}

var extractors = []extractor{
	str("request_id", polish.RequestIDKey),
	str("endpoint", polish.EndpointKey),
	str("mode", polish.ModeKey),
	num("attempt", polish.AttemptKey),
	str("error", polish.ErrorKey),
	str("error_kind", polish.ErrorKindKey),
	str("marker", polish.MarkerKey),
	num("chunk_bytes", polish.ChunkBytesKey),
	num("status", polish.HTTPStatusCodeKey),
	num("duration_ms", polish.DurationMsKey),

	str("provider", providers.ProviderKey),
	str("model", providers.ModelKey),
	str("call", providers.CallKey),
	num("prompt_tokens", providers.PromptTokensKey),
	num("completion_tokens", providers.CompletionTokensKey),
	num("deltas", providers.DeltasKey),
	str("error", providers.ErrorKey),
	num("status", providers.HTTPStatusCodeKey),
	num("duration_ms", providers.DurationMsKey),
	str("response_id", providers.ResponseIDKey),
}

type signalLog struct {
	message string
	level   zapcore.Level
}

// Input and output text stay out of the logs.
var signals = map[capitan.Signal]signalLog{
	polish.SubmitStarted:    {"submit started", zapcore.DebugLevel},
	polish.SubmitCompleted:  {"submit completed", zapcore.InfoLevel},
	polish.SubmitFailed:     {"submit failed", zapcore.WarnLevel},
	polish.SubmitRejected:   {"submit rejected", zapcore.WarnLevel},
	polish.AttemptStarted:   {"attempt started", zapcore.DebugLevel},
	polish.AttemptCompleted: {"attempt completed", zapcore.InfoLevel},
	polish.AttemptFailed:    {"attempt failed", zapcore.WarnLevel},
	polish.StreamChunk:      {"stream chunk", zapcore.DebugLevel},

	providers.CallStarted:   {"provider call started", zapcore.DebugLevel},
	providers.CallCompleted: {"provider call completed", zapcore.InfoLevel},
	providers.CallFailed:    {"provider call failed", zapcore.WarnLevel},
}

// Bridge writes every known hook event to a logger.
type Bridge struct {
	logger *zap.Logger
	once   sync.Once
	stop   func()
}

// NewBridge starts observing hook events. Close stops it.
func NewBridge(logger *zap.Logger) *Bridge {
	b := &Bridge{logger: logger}
	observer := capitan.Observe(b.handle)
	b.stop = func() { observer.Close() }
	return b
}

// Close stops observing.
func (b *Bridge) Close() {
	b.once.Do(b.stop)
}

func (b *Bridge) handle(_ context.Context, e *capitan.Event) {
	sl, ok := signals[e.Signal()]
	if !ok {
		return
	}
	ce := b.logger.Check(sl.level, sl.message)
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, 6)
	for _, extract := range extractors {
		if f, ok := extract(e); ok {
			fields = append(fields, f)
		}
	}
	ce.Write(fields...)
}

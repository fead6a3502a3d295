package server

import (
	"context"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/Laisky/errors/v2"

	"github.com/zoobzio/polish/providers"
)

// MockBackend simulates a language model for tests and local runs.
// It polishes deterministically: whitespace is collapsed and a final period is added.
type MockBackend struct {
	name      string
	available atomic.Bool
	chunkSize int           // Runes per streamed delta
	delay     time.Duration // Pause between streamed deltas
}

// NewMockBackend creates a new mock backend.
func NewMockBackend() *MockBackend {
	m := &MockBackend{name: "mock", chunkSize: 2}
	m.available.Store(true)
	return m
}

// NewMockBackendWithName creates a mock backend with a specific name.
func NewMockBackendWithName(name string) *MockBackend {
	m := NewMockBackend()
	m.name = name
	return m
}

// Name returns the backend identifier.
func (m *MockBackend) Name() string {
	return m.name
}

// SetAvailable sets the availability status (for testing failures).
func (m *MockBackend) SetAvailable(available bool) {
	m.available.Store(available)
}

// SetStreaming configures how Stream splits its output.
func (m *MockBackend) SetStreaming(chunkSize int, delay time.Duration) {
	if chunkSize > 0 {
		m.chunkSize = chunkSize
	}
	m.delay = delay
}

// Complete returns the polished form of the prompt's input.
func (m *MockBackend) Complete(_ context.Context, prompt string) (string, error) {
	if !m.available.Load() {
		return "", errors.Errorf("backend %s is unavailable", m.name)
	}
	return mockPolish(inputOf(prompt)), nil
}

// Stream emits the polished text in chunks of chunkSize runes.
func (m *MockBackend) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	text, err := m.Complete(ctx, prompt)
	if err != nil {
		return err
	}
	return emitChunks(ctx, text, m.chunkSize, m.delay, emit)
}

func mockPolish(input string) string {
	out := strings.Join(strings.Fields(input), " ")
	if out == "" {
		return ""
	}
	r, _ := utf8.DecodeLastRuneInString(out)
	if !strings.ContainsRune(".!?。", r) {
		out += "."
	}
	return out
}

func emitChunks(ctx context.Context, text string, size int, delay time.Duration, emit func(string) error) error {
	runes := []rune(text)
	for i := 0; i < len(runes); i += size {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		if err := emit(string(runes[i:end])); err != nil {
			return err
		}
	}
	return nil
}

// NewMockBackendWithResponse creates a mock that always returns a specific response.
func NewMockBackendWithResponse(response string) providers.Backend {
	return &mockBackendFixed{response: response}
}

// NewMockBackendWithCallback creates a mock that calls a function to generate responses.
// The callback's result is streamed as a single delta.
func NewMockBackendWithCallback(callback func(prompt string) (string, error)) providers.Backend {
	return &mockBackendCallback{callback: callback}
}

// mockBackendFixed always returns a fixed response.
type mockBackendFixed struct {
	response string
}

func (*mockBackendFixed) Name() string { return "mock-fixed" }

func (m *mockBackendFixed) Complete(_ context.Context, _ string) (string, error) {
	return m.response, nil
}

func (m *mockBackendFixed) Stream(ctx context.Context, _ string, emit func(string) error) error {
	return emitChunks(ctx, m.response, 1, 0, emit)
}

// mockBackendCallback uses a callback to generate responses.
type mockBackendCallback struct {
	callback func(string) (string, error)
}

func (*mockBackendCallback) Name() string { return "mock-callback" }

func (m *mockBackendCallback) Complete(_ context.Context, prompt string) (string, error) {
	return m.callback(prompt)
}

func (m *mockBackendCallback) Stream(_ context.Context, prompt string, emit func(string) error) error {
	out, err := m.callback(prompt)
	if err != nil {
		return err
	}
	if out == "" {
		return nil
	}
	return emit(out)
}

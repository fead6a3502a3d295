package integration

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/zoobzio/polish/providers"
	"github.com/zoobzio/polish/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// startServer runs the polishing service in front of backend.
func startServer(t *testing.T, cfg server.Config) *httptest.Server {
	t.Helper()
	srv, err := server.New(cfg)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// sink records every view the orchestrator shows.
type sink struct {
	mu       sync.Mutex
	loading  []string
	partials []string
	errors   []string
	toggles  []bool
}

func (s *sink) ShowLoading(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = append(s.loading, message)
}

func (s *sink) ShowResult(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partials = append(s.partials, text)
}

func (s *sink) ShowError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, message)
}

func (s *sink) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggles = append(s.toggles, enabled)
}

func (s *sink) Partials() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.partials...)
}

func (s *sink) Errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.errors...)
}

// flakyStream streams part of an answer and then fails, while one-shot
// completion works.
type flakyStream struct {
	mu          sync.Mutex
	streamCalls int
	completes   int
}

var _ providers.Backend = (*flakyStream)(nil)

func (*flakyStream) Name() string { return "flaky" }

func (f *flakyStream) Complete(context.Context, string) (string, error) {
	f.mu.Lock()
	f.completes++
	f.mu.Unlock()
	return "완성된 문장입니다.", nil
}

func (f *flakyStream) Stream(_ context.Context, _ string, emit func(string) error) error {
	f.mu.Lock()
	f.streamCalls++
	f.mu.Unlock()
	if err := emit("완성된 "); err != nil {
		return err
	}
	return context.DeadlineExceeded
}

func (f *flakyStream) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streamCalls, f.completes
}

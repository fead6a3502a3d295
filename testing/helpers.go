// Package testing provides a scripted fake of the polishing service for tests.
package testing

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"
)

// Responder writes the fake response for one request.
type Responder func(w http.ResponseWriter, r *http.Request)

// ResponseBuilder provides a fluent interface for constructing one-shot JSON bodies.
type ResponseBuilder struct {
	data map[string]any
}

// NewResponseBuilder creates a new ResponseBuilder.
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{
		data: make(map[string]any),
	}
}

// WithPolishedText sets the polished_text field.
func (b *ResponseBuilder) WithPolishedText(text string) *ResponseBuilder {
	b.data["polished_text"] = text
	return b
}

// WithError sets the error field.
func (b *ResponseBuilder) WithError(msg string) *ResponseBuilder {
	b.data["error"] = msg
	return b
}

// WithField sets an arbitrary field.
func (b *ResponseBuilder) WithField(key string, value any) *ResponseBuilder {
	b.data[key] = value
	return b
}

// Build returns the JSON string representation of the response.
func (b *ResponseBuilder) Build() string {
	jsonBytes, err := json.Marshal(b.data)
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}

// Service is an httptest server whose routes are scripted per path.
// Unscripted paths answer 404.
type Service struct {
	server *httptest.Server

	mu     sync.Mutex
	routes map[string]Responder
	calls  map[string]int
	order  []string
	bodies []string
}

// NewService starts a fake polishing service.
func NewService() *Service {
	s := &Service{
		routes: make(map[string]Responder),
		calls:  make(map[string]int),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Handle scripts the response for path.
func (s *Service) Handle(path string, r Responder) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = r
	return s
}

// URL returns the base URL of the fake.
func (s *Service) URL() string {
	return s.server.URL
}

// Close shuts the fake down.
func (s *Service) Close() {
	s.server.Close()
}

// Calls returns how many requests path received.
func (s *Service) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls returns the number of requests received on any path.
func (s *Service) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Order returns the requested paths in arrival order.
func (s *Service) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Bodies returns the raw request bodies in arrival order.
func (s *Service) Bodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.bodies))
	copy(out, s.bodies)
	return out
}

func (s *Service) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.calls[r.URL.Path]++
	s.order = append(s.order, r.URL.Path)
	s.bodies = append(s.bodies, string(body))
	route, ok := s.routes[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	route(w, r)
}

// Status answers with an empty body and the given status.
func Status(code int) Responder {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

// JSON answers with status and a raw body.
func JSON(code int, body string) Responder {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}
}

// Polished answers 200 with {"polished_text": text}.
func Polished(text string) Responder {
	return JSON(http.StatusOK, NewResponseBuilder().WithPolishedText(text).Build())
}

// Failure answers with status and {"error": msg}.
func Failure(code int, msg string) Responder {
	return JSON(code, NewResponseBuilder().WithError(msg).Build())
}

// Stream writes each chunk and flushes it immediately.
func Stream(chunks ...string) Responder {
	return StreamEvery(0, chunks...)
}

// StreamEvery writes each chunk, flushes it, and pauses for interval before the next,
// so the client sees one read per chunk.
func StreamEvery(interval time.Duration, chunks ...string) Responder {
	raw := make([][]byte, len(chunks))
	for i, c := range chunks {
		raw[i] = []byte(c)
	}
	return StreamBytes(interval, raw...)
}

// StreamBytes is StreamEvery for raw byte chunks, which need not be valid UTF-8
// on their own.
func StreamBytes(interval time.Duration, chunks ...[]byte) Responder {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for i, c := range chunks {
			if i > 0 && interval > 0 {
				select {
				case <-time.After(interval):
				case <-r.Context().Done():
					return
				}
			}
			_, _ = w.Write(c)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Stall streams chunks and then holds the connection open until the client goes away.
func Stall(chunks ...string) Responder {
	return func(w http.ResponseWriter, r *http.Request) {
		Stream(chunks...)(w, r)
		<-r.Context().Done()
	}
}

// Sequence answers the n-th request with the n-th responder.
// After all responders are used, the last one repeats.
func Sequence(responders ...Responder) Responder {
	var index atomic.Int64
	return func(w http.ResponseWriter, r *http.Request) {
		idx := int(index.Add(1) - 1)
		if idx >= len(responders) {
			idx = len(responders) - 1
		}
		responders[idx](w, r)
	}
}

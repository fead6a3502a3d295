package polish

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/capitan"
	polishtest "github.com/zoobzio/polish/testing"
)

func waitGroup(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for hook")
	}
}

// TestSubmitCompletedHook verifies that submit.completed is emitted with the result.
func TestSubmitCompletedHook(t *testing.T) {
	svc := polishtest.NewService()
	defer svc.Close()
	svc.Handle(PathStream, polishtest.Stream("결과"))

	var wg sync.WaitGroup
	var requestIDReceived string
	var outputReceived string
	var attemptsReceived int

	wg.Add(1)
	listener := capitan.Hook(SubmitCompleted, func(_ context.Context, e *capitan.Event) {
		defer wg.Done()
		requestIDReceived, _ = RequestIDKey.From(e)
		outputReceived, _ = OutputKey.From(e)
		attemptsReceived, _ = AttemptKey.From(e)
	})
	defer listener.Close()

	orch, _ := newTestOrchestrator(t, svc)
	if _, err := orch.Submit(context.Background(), "input"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitGroup(t, &wg)

	if requestIDReceived == "" {
		t.Error("Request ID was not set in hook")
	}
	if outputReceived != "결과" {
		t.Errorf("Expected output '결과', got %q", outputReceived)
	}
	if attemptsReceived != 1 {
		t.Errorf("Expected 1 attempt, got %d", attemptsReceived)
	}
}

// TestAttemptFailedHook verifies that a failed stream attempt reports its kind and status.
func TestAttemptFailedHook(t *testing.T) {
	svc := polishtest.NewService()
	defer svc.Close()
	svc.Handle(PathStream, polishtest.Status(http.StatusInternalServerError))
	svc.Handle(PathResp, polishtest.Polished("ok"))

	var wg sync.WaitGroup
	var endpointReceived string
	var kindReceived string
	var statusReceived int
	var attemptReceived int

	wg.Add(1)
	listener := capitan.Hook(AttemptFailed, func(_ context.Context, e *capitan.Event) {
		defer wg.Done()
		endpointReceived, _ = EndpointKey.From(e)
		kindReceived, _ = ErrorKindKey.From(e)
		statusReceived, _ = HTTPStatusCodeKey.From(e)
		attemptReceived, _ = AttemptKey.From(e)
	})
	defer listener.Close()

	orch, _ := newTestOrchestrator(t, svc)
	if _, err := orch.Submit(context.Background(), "input"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitGroup(t, &wg)

	if endpointReceived != PathStream {
		t.Errorf("Expected endpoint %s, got %q", PathStream, endpointReceived)
	}
	if kindReceived != "bad_response" {
		t.Errorf("Expected kind bad_response, got %q", kindReceived)
	}
	if statusReceived != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", statusReceived)
	}
	if attemptReceived != 1 {
		t.Errorf("Expected attempt 1, got %d", attemptReceived)
	}
}

// TestSubmitFailedHook verifies that an exhausted chain emits submit.failed.
func TestSubmitFailedHook(t *testing.T) {
	svc := polishtest.NewService()
	defer svc.Close()
	svc.Handle(PathStream, polishtest.Status(http.StatusInternalServerError))
	svc.Handle(PathResp, polishtest.Status(http.StatusInternalServerError))
	svc.Handle(PathText, polishtest.Failure(http.StatusInternalServerError, "down"))

	var wg sync.WaitGroup
	var errorReceived string
	var attemptsReceived int

	wg.Add(1)
	listener := capitan.Hook(SubmitFailed, func(_ context.Context, e *capitan.Event) {
		defer wg.Done()
		errorReceived, _ = ErrorKey.From(e)
		attemptsReceived, _ = AttemptKey.From(e)
	})
	defer listener.Close()

	orch, _ := newTestOrchestrator(t, svc)
	_, _ = orch.Submit(context.Background(), "input")
	waitGroup(t, &wg)

	if errorReceived != "all endpoints failed: HTTP 500: down" {
		t.Errorf("unexpected error field %q", errorReceived)
	}
	if attemptsReceived != 3 {
		t.Errorf("Expected 3 attempts, got %d", attemptsReceived)
	}
}

// TestSubmitRejectedHook verifies that blank input is reported without attempts.
func TestSubmitRejectedHook(t *testing.T) {
	var wg sync.WaitGroup
	var called bool

	wg.Add(1)
	listener := capitan.Hook(SubmitRejected, func(_ context.Context, _ *capitan.Event) {
		defer wg.Done()
		called = true
	})
	defer listener.Close()

	orch, err := New("http://127.0.0.1:1", nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, _ = orch.Submit(context.Background(), "  ")
	waitGroup(t, &wg)

	if !called {
		t.Error("submit.rejected hook was not called")
	}
}

// TestStreamChunkHook verifies that each read of the stream is reported.
func TestStreamChunkHook(t *testing.T) {
	svc := polishtest.NewService()
	defer svc.Close()
	svc.Handle(PathStream, polishtest.Stream("abc"))

	var wg sync.WaitGroup
	var bytesReceived int

	wg.Add(1)
	var once sync.Once
	listener := capitan.Hook(StreamChunk, func(_ context.Context, e *capitan.Event) {
		once.Do(func() {
			defer wg.Done()
			bytesReceived, _ = ChunkBytesKey.From(e)
		})
	})
	defer listener.Close()

	orch, _ := newTestOrchestrator(t, svc)
	if _, err := orch.Submit(context.Background(), "input"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitGroup(t, &wg)

	if bytesReceived != 3 {
		t.Errorf("Expected 3 bytes, got %d", bytesReceived)
	}
}

// TestAllSignalsObserved verifies the full signal sequence of a fallback submission.
func TestAllSignalsObserved(t *testing.T) {
	svc := polishtest.NewService()
	defer svc.Close()
	svc.Handle(PathStream, polishtest.Status(http.StatusInternalServerError))
	svc.Handle(PathResp, polishtest.Polished("ok"))

	var mu sync.Mutex
	seen := make(map[capitan.Signal]int)
	var wg sync.WaitGroup
	wg.Add(1)

	observer := capitan.Observe(func(_ context.Context, e *capitan.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen[e.Signal()]++
		if e.Signal() == SubmitCompleted {
			wg.Done()
		}
	})
	defer observer.Close()

	orch, _ := newTestOrchestrator(t, svc)
	if _, err := orch.Submit(context.Background(), "input"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitGroup(t, &wg)

	// Events for one signal are delivered in order, other signals may lag.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	for sig, want := range map[capitan.Signal]int{
		SubmitStarted:    1,
		AttemptStarted:   2,
		AttemptFailed:    1,
		AttemptCompleted: 1,
		SubmitCompleted:  1,
	} {
		if seen[sig] != want {
			t.Errorf("signal %s: expected %d, got %d", sig, want, seen[sig])
		}
	}
}

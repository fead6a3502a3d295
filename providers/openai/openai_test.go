package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProviderComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Bearer token, got %s", r.Header.Get("Authorization"))
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req["model"] != "gpt-4o" {
			t.Errorf("Expected model gpt-4o, got %v", req["model"])
		}
		if req["temperature"] != 0.2 {
			t.Errorf("Expected temperature 0.2, got %v", req["temperature"])
		}
		messages, _ := req["messages"].([]any)
		if len(messages) != 1 {
			t.Fatalf("Expected one message, got %v", req["messages"])
		}
		msg, _ := messages[0].(map[string]any)
		if msg["role"] != "user" || msg["content"] != "test prompt" {
			t.Errorf("Unexpected message %v", msg)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1234567890,
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "다듬은 문장"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	provider := New(Config{APIKey: "test-key", BaseURL: server.URL})

	response, err := provider.Complete(context.Background(), "test prompt")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if response != "다듬은 문장" {
		t.Errorf("Expected '다듬은 문장', got '%s'", response)
	}
}

func TestProviderCompleteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit exceeded", "type": "rate_limit_error", "code": "rate_limit"}}`))
	}))
	defer server.Close()

	provider := New(Config{APIKey: "test-key", BaseURL: server.URL})

	_, err := provider.Complete(context.Background(), "test prompt")
	if err == nil {
		t.Fatal("Expected error for rate limit")
	}
	if !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("Expected rate limit error, got: %v", err)
	}
}

func TestProviderCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "model": "gpt-4o", "choices": []}`))
	}))
	defer server.Close()

	provider := New(Config{APIKey: "test-key", BaseURL: server.URL})
	if _, err := provider.Complete(context.Background(), "p"); err == nil {
		t.Error("Expected error for empty choices")
	}
}

func TestProviderStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req["stream"] != true {
			t.Errorf("Expected stream=true, got %v", req["stream"])
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, delta := range []string{"안", "녕", "하세요"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	provider := New(Config{APIKey: "test-key", BaseURL: server.URL})

	var got []string
	err := provider.Stream(context.Background(), "test prompt", func(delta string) error {
		got = append(got, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if strings.Join(got, "") != "안녕하세요" || len(got) != 3 {
		t.Errorf("Unexpected deltas %v", got)
	}
}

func TestProviderStreamEmitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 3; i++ {
			fmt.Fprint(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"x\"}}]}\n\n")
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider := New(Config{APIKey: "test-key", BaseURL: server.URL})

	calls := 0
	err := provider.Stream(context.Background(), "p", func(string) error {
		calls++
		return fmt.Errorf("client gone")
	})
	if err == nil || !strings.Contains(err.Error(), "client gone") {
		t.Errorf("Expected emit error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected stream to stop after first emit error, got %d calls", calls)
	}
}

func TestProviderName(t *testing.T) {
	provider := New(Config{APIKey: "test-key"})
	if provider.Name() != "openai" {
		t.Errorf("Expected name 'openai', got '%s'", provider.Name())
	}
	if provider.model != "gpt-4o" {
		t.Errorf("Expected default model gpt-4o, got %s", provider.model)
	}
}

package google

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
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("Expected API key in URL, got %s", r.URL.String())
		}
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		contents, _ := req["contents"].([]any)
		if len(contents) != 1 {
			t.Fatalf("Expected one content entry, got %v", req["contents"])
		}
		cfg, _ := req["generationConfig"].(map[string]any)
		if cfg["temperature"] != 0.2 {
			t.Errorf("Expected temperature 0.2, got %v", cfg["temperature"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "다듬은 "}, {"text": "문장"}], "role": "model"}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 4},
			"responseId": "r-1"
		}`))
	}))
	defer server.Close()

	provider := New(Config{APIKey: "test-key", Model: "gemini-test", BaseURL: server.URL})

	response, err := provider.Complete(context.Background(), "test prompt")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if response != "다듬은 문장" {
		t.Errorf("Expected '다듬은 문장', got '%s'", response)
	}
}

func TestProviderErrorHandling(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		responseBody  string
		expectedError string
	}{
		{
			name:          "Rate limit",
			statusCode:    http.StatusTooManyRequests,
			responseBody:  `{"error": {"code": 429, "message": "Resource exhausted", "status": "RESOURCE_EXHAUSTED"}}`,
			expectedError: "rate limit exceeded",
		},
		{
			name:          "API error",
			statusCode:    http.StatusBadRequest,
			responseBody:  `{"error": {"code": 400, "message": "Invalid request", "status": "INVALID_ARGUMENT"}}`,
			expectedError: "google error (400)",
		},
		{
			name:          "No candidates",
			statusCode:    http.StatusOK,
			responseBody:  `{"candidates": []}`,
			expectedError: "no response candidates",
		},
		{
			name:          "No text",
			statusCode:    http.StatusOK,
			responseBody:  `{"candidates": [{"content": {"parts": []}}]}`,
			expectedError: "no text content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			provider := New(Config{APIKey: "test-key", BaseURL: server.URL})
			_, err := provider.Complete(context.Background(), "p")
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.expectedError) {
				t.Errorf("Expected error containing %q, got %v", tt.expectedError, err)
			}
		})
	}
}

func TestProviderStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("Expected alt=sse, got %s", r.URL.RawQuery)
		}
		if !strings.HasSuffix(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, delta := range []string{"안", "녕", "하세요"} {
			fmt.Fprintf(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":%q}],\"role\":\"model\"}}]}\n\n", delta)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[],\"role\":\"model\"},\"finishReason\":\"STOP\"}]}\n\n")
	}))
	defer server.Close()

	provider := New(Config{APIKey: "test-key", BaseURL: server.URL})

	var got []string
	err := provider.Stream(context.Background(), "p", func(delta string) error {
		got = append(got, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if len(got) != 3 || strings.Join(got, "") != "안녕하세요" {
		t.Errorf("Unexpected deltas %v", got)
	}
}

func TestProviderStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "API key not valid"}}`))
	}))
	defer server.Close()

	provider := New(Config{APIKey: "bad", BaseURL: server.URL})
	err := provider.Stream(context.Background(), "p", func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "google error (403)") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestProviderName(t *testing.T) {
	provider := New(Config{APIKey: "test-key"})
	if provider.Name() != "google" {
		t.Errorf("Expected name 'google', got '%s'", provider.Name())
	}
	if provider.model != "gemini-2.0-flash" {
		t.Errorf("Expected default model, got %s", provider.model)
	}
}

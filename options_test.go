package polish

import (
	"net/http"
	"testing"
	"time"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := newConfig("http://svc", nil)

	if cfg.BaseURL != "http://svc" {
		t.Errorf("expected base URL kept, got %q", cfg.BaseURL)
	}
	if cfg.Chain != DefaultChain {
		t.Errorf("expected default chain, got %v", cfg.Chain)
	}
	if cfg.StreamTimeout != DefaultStreamTimeout {
		t.Errorf("expected %v, got %v", DefaultStreamTimeout, cfg.StreamTimeout)
	}
	if cfg.OneShotTimeout != 0 {
		t.Errorf("expected no one-shot timeout, got %v", cfg.OneShotTimeout)
	}
	if len(cfg.Markers) != 2 || cfg.Markers[0] != "[ERROR]" || cfg.Markers[1] != "[SERVER ERROR]" {
		t.Errorf("unexpected markers %v", cfg.Markers)
	}
	if cfg.HTTPClient != http.DefaultClient {
		t.Error("expected default HTTP client")
	}
	if cfg.Messages != DefaultMessages {
		t.Errorf("expected default messages, got %+v", cfg.Messages)
	}
}

// TestWithStreamTimeout tests the stream timeout option.
func TestWithStreamTimeout(t *testing.T) {
	cfg := newConfig("x", []Option{WithStreamTimeout(5 * time.Second)})
	if cfg.StreamTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.StreamTimeout)
	}

	cfg = newConfig("x", []Option{WithStreamTimeout(0), WithStreamTimeout(-time.Second)})
	if cfg.StreamTimeout != DefaultStreamTimeout {
		t.Errorf("non-positive timeout should keep default, got %v", cfg.StreamTimeout)
	}
}

func TestWithMarkers(t *testing.T) {
	markers := []string{"!!"}
	cfg := newConfig("x", []Option{WithMarkers(markers...)})
	markers[0] = "changed"
	if len(cfg.Markers) != 1 || cfg.Markers[0] != "!!" {
		t.Errorf("expected copied markers, got %v", cfg.Markers)
	}

	cfg = newConfig("x", []Option{WithMarkers()})
	if len(cfg.Markers) != 0 {
		t.Errorf("expected markers disabled, got %v", cfg.Markers)
	}
}

func TestWithHTTPClient(t *testing.T) {
	custom := &http.Client{Timeout: time.Second}
	cfg := newConfig("x", []Option{WithHTTPClient(custom)})
	if cfg.HTTPClient != custom {
		t.Error("expected custom client")
	}

	cfg = newConfig("x", []Option{WithHTTPClient(nil)})
	if cfg.HTTPClient != http.DefaultClient {
		t.Error("nil client should keep default")
	}
}

func TestWithMessages(t *testing.T) {
	cfg := newConfig("x", []Option{WithMessages(Messages{Loading: "wait"})})
	if cfg.Messages.Loading != "wait" {
		t.Errorf("expected override, got %q", cfg.Messages.Loading)
	}
	if cfg.Messages.Failed != DefaultMessages.Failed {
		t.Errorf("expected default failure message, got %q", cfg.Messages.Failed)
	}
}

func TestNewClient_TrimsBaseURL(t *testing.T) {
	c := NewClient("http://svc/", WithOneShotTimeout(time.Second))
	if c.baseURL != "http://svc" {
		t.Errorf("expected trailing slash trimmed, got %q", c.baseURL)
	}
	if c.oneShotTimeout != time.Second {
		t.Errorf("expected one-shot timeout, got %v", c.oneShotTimeout)
	}
}

package polish

import (
	"net/http"
	"time"
)

// DefaultStreamTimeout bounds a streaming attempt.
const DefaultStreamTimeout = 30 * time.Second

// In-band markers written by the service when the upstream fails mid-stream
// (MarkerError) or before any output (MarkerServerError).
const (
	MarkerError       = "[ERROR]"
	MarkerServerError = "[SERVER ERROR]"
)

// DefaultMarkers are the literal strings that signal an upstream failure inside an
// otherwise successful stream.
var DefaultMarkers = []string{MarkerError, MarkerServerError}

// Config holds the client and orchestrator settings.
type Config struct {
	BaseURL        string
	Chain          Chain
	StreamTimeout  time.Duration // Deadline for the streaming attempt
	OneShotTimeout time.Duration // Zero means no deadline beyond the transport's own
	Markers        []string      // Case-sensitive substrings, matched anywhere in the stream
	HTTPClient     *http.Client
	Messages       Messages
}

// Option modifies the configuration.
type Option func(*Config)

// WithStreamTimeout sets the streaming attempt deadline.
// Non-positive values keep the default.
func WithStreamTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.StreamTimeout = d
		}
	}
}

// WithOneShotTimeout bounds each one-shot fallback request.
// By default one-shot requests rely on the HTTP client's own timeout.
func WithOneShotTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.OneShotTimeout = d
	}
}

// WithMarkers replaces the in-band error marker set.
func WithMarkers(markers ...string) Option {
	return func(c *Config) {
		c.Markers = append([]string(nil), markers...)
	}
}

// WithChain replaces the endpoint chain.
func WithChain(chain Chain) Option {
	return func(c *Config) {
		c.Chain = chain
	}
}

// WithHTTPClient sets the HTTP client used for every attempt.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		if client != nil {
			c.HTTPClient = client
		}
	}
}

// WithMessages overrides the user-facing messages.
func WithMessages(m Messages) Option {
	return func(c *Config) {
		c.Messages = m.withDefaults()
	}
}

func newConfig(baseURL string, opts []Option) Config {
	cfg := Config{
		BaseURL:       baseURL,
		Chain:         DefaultChain,
		StreamTimeout: DefaultStreamTimeout,
		Markers:       append([]string(nil), DefaultMarkers...),
		HTTPClient:    http.DefaultClient,
		Messages:      DefaultMessages,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

package polish

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/tidwall/sjson"
)

// Client performs single endpoint attempts against the polishing service.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	streamTimeout  time.Duration
	oneShotTimeout time.Duration
	markers        []string
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	return newClient(newConfig(baseURL, opts))
}

func newClient(cfg Config) *Client {
	return &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:     cfg.HTTPClient,
		streamTimeout:  cfg.StreamTimeout,
		oneShotTimeout: cfg.OneShotTimeout,
		markers:        cfg.Markers,
	}
}

// newPost builds the JSON POST shared by every endpoint. Caching is disabled.
func (c *Client) newPost(ctx context.Context, ep Endpoint, req Request, accept string) (*http.Request, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "text", req.Text())
	if err != nil {
		return nil, errors.Wrap(err, "encode request body")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ep.Path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("Cache-Control", "no-store")
	httpReq.Header.Set("Pragma", "no-cache")
	return httpReq, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

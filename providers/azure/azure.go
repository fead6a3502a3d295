// Package azure implements the polishing backend on Azure OpenAI Service.
package azure

import (
	"net/http"
	"time"

	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"

	"github.com/zoobzio/polish/providers/openai"
)

// Config holds configuration for the Azure provider.
type Config struct {
	Endpoint    string        // Your Azure OpenAI endpoint (https://{your-resource}.openai.azure.com)
	APIKey      string        // Your Azure API key
	Deployment  string        // Your deployment name
	APIVersion  string        // API version, defaults to "2024-06-01"
	Temperature float64       // Optional, defaults to 0.2
	Timeout     time.Duration // Optional, defaults to 60s
}

// New creates a new Azure OpenAI provider.
// Azure speaks the Chat Completions protocol, so the OpenAI provider is reused with
// deployment routing and api-key authentication.
func New(config Config) *openai.Provider {
	if config.APIVersion == "" {
		config.APIVersion = "2024-06-01"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return openai.NewWithOptions("azure", config.Deployment, config.Temperature,
		azure.WithEndpoint(config.Endpoint, config.APIVersion),
		azure.WithAPIKey(config.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	)
}

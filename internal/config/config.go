// Package config loads the polishing service settings from the environment.
package config

import (
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Backend names accepted by POLISH_BACKEND.
const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendAzure     = "azure"
	BackendBedrock   = "bedrock"
	BackendGoogle    = "google"
	BackendMock      = "mock"
)

// Config holds the service settings.
type Config struct {
	// Port the HTTP server listens on (PORT).
	Port int `validate:"min=1,max=65535"`
	// Backend selects the upstream model (POLISH_BACKEND).
	Backend string `validate:"oneof=openai anthropic azure bedrock google mock"`
	// BackendTimeout bounds one upstream call (POLISH_BACKEND_TIMEOUT).
	BackendTimeout time.Duration
	// ShutdownTimeout bounds graceful shutdown (POLISH_SHUTDOWN_TIMEOUT).
	ShutdownTimeout time.Duration
	// Debug enables development logging (DEBUG).
	Debug bool

	OpenAIAPIKey  string `validate:"required_if=Backend openai"`
	OpenAIModel   string
	OpenAIBaseURL string `validate:"omitempty,url"`

	AnthropicAPIKey string `validate:"required_if=Backend anthropic"`
	AnthropicModel  string

	AzureEndpoint   string `validate:"required_if=Backend azure"`
	AzureAPIKey     string `validate:"required_if=Backend azure"`
	AzureDeployment string `validate:"required_if=Backend azure"`
	AzureAPIVersion string

	AWSRegion    string `validate:"required_if=Backend bedrock"`
	AWSAccessKey string `validate:"required_if=Backend bedrock"`
	AWSSecretKey string `validate:"required_if=Backend bedrock"`
	BedrockModel string

	GoogleAPIKey string `validate:"required_if=Backend google"`
	GoogleModel  string
}

var validate = validator.New()

// LoadEnv reads optional dotenv files into the process environment and then
// loads the configuration from it. Missing files are ignored; variables that are
// already set win over file values.
func LoadEnv(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "load %s", f)
		}
	}
	return Load(os.LookupEnv)
}

// Load builds the configuration from lookup and validates it.
func Load(lookup func(string) (string, bool)) (*Config, error) {
	e := env{lookup: lookup}
	cfg := &Config{
		Port:            e.Int("PORT", 10000),
		Backend:         strings.ToLower(e.String("POLISH_BACKEND", BackendOpenAI)),
		BackendTimeout:  e.Duration("POLISH_BACKEND_TIMEOUT", 60*time.Second),
		ShutdownTimeout: e.Duration("POLISH_SHUTDOWN_TIMEOUT", 10*time.Second),
		Debug:           e.Bool("DEBUG", false),

		OpenAIAPIKey:  e.String("OPENAI_API_KEY", ""),
		OpenAIModel:   e.String("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL: e.String("OPENAI_BASE_URL", ""),

		AnthropicAPIKey: e.String("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  e.String("ANTHROPIC_MODEL", ""),

		AzureEndpoint:   e.String("AZURE_OPENAI_ENDPOINT", ""),
		AzureAPIKey:     e.String("AZURE_OPENAI_API_KEY", ""),
		AzureDeployment: e.String("AZURE_OPENAI_DEPLOYMENT", ""),
		AzureAPIVersion: e.String("AZURE_OPENAI_API_VERSION", ""),

		AWSRegion:    e.String("AWS_REGION", ""),
		AWSAccessKey: e.String("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey: e.String("AWS_SECRET_ACCESS_KEY", ""),
		BedrockModel: e.String("BEDROCK_MODEL", ""),

		GoogleAPIKey: e.String("GOOGLE_API_KEY", ""),
		GoogleModel:  e.String("GOOGLE_MODEL", ""),
	}
	if e.err != nil {
		return nil, e.err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// env reads typed values and keeps the first parse error.
type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *env) String(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

func (e *env) Int(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *env) Bool(key string, def bool) bool {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return b
}

// Duration accepts Go durations ("30s") or a bare number of seconds.
func (e *env) Duration(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return d
}

func (e *env) fail(key string, err error) {
	if e.err == nil {
		e.err = errors.Wrapf(err, "parse %s", key)
	}
}

// Command polishd serves the polishing endpoints in front of a language model.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/zoobzio/polish/internal/config"
	"github.com/zoobzio/polish/internal/logging"
	"github.com/zoobzio/polish/providers"
	"github.com/zoobzio/polish/providers/anthropic"
	"github.com/zoobzio/polish/providers/azure"
	"github.com/zoobzio/polish/providers/bedrock"
	"github.com/zoobzio/polish/providers/google"
	"github.com/zoobzio/polish/providers/openai"
	"github.com/zoobzio/polish/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "polishd: %+v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadEnv()
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	logger, err := logging.New(server.ServiceName, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	bridge := logging.NewBridge(logger.Named("events"))
	defer bridge.Close()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return errors.Wrapf(err, "create %s backend", cfg.Backend)
	}

	srv, err := server.New(server.Config{
		Backend:        backend,
		Logger:         logger,
		BackendTimeout: cfg.BackendTimeout,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: srv.Handler(),
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		logger.Info("server started",
			zap.String("addr", httpServer.Addr),
			zap.String("backend", backend.Name()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	grp.Go(func() error {
		<-grpCtx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	return grp.Wait()
}

func newBackend(ctx context.Context, cfg *config.Config) (providers.Backend, error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		return openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.BackendTimeout,
		}), nil
	case config.BackendAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
			Timeout: cfg.BackendTimeout,
		}), nil
	case config.BackendAzure:
		return azure.New(azure.Config{
			Endpoint:   cfg.AzureEndpoint,
			APIKey:     cfg.AzureAPIKey,
			Deployment: cfg.AzureDeployment,
			APIVersion: cfg.AzureAPIVersion,
			Timeout:    cfg.BackendTimeout,
		}), nil
	case config.BackendBedrock:
		return bedrock.New(ctx, bedrock.Config{
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Model:     cfg.BedrockModel,
			Timeout:   cfg.BackendTimeout,
		})
	case config.BackendGoogle:
		return google.New(google.Config{
			APIKey:  cfg.GoogleAPIKey,
			Model:   cfg.GoogleModel,
			Timeout: cfg.BackendTimeout,
		}), nil
	case config.BackendMock:
		return server.NewMockBackend(), nil
	default:
		return nil, errors.Errorf("unknown backend %q", cfg.Backend)
	}
}

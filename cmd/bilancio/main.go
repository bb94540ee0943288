package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/advice"
	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/core"
	apphttp "bilancio/internal/http"
	applog "bilancio/internal/log"
	"bilancio/internal/session"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	cfg, err := cli.LoadConfig(logger, (*config.Config).Validate)
	var result *backend.BackendResult
	if err == nil {
		result, err = openBackend(ctx, cfg, logger.WithComponent(applog.ComponentBackend))
	}
	if err != nil {
		// The page explains the problem instead of the process crash-looping.
		if runErr := runDegraded(ctx, cfg, err, logger); runErr != nil {
			logger.Error("Degraded server failed", applog.FieldError, runErr)
			os.Exit(1)
		}
		return
	}

	err = run(ctx, cfg, result, logger)
	if cleanupErr := result.Cleanup(); cleanupErr != nil {
		logger.Error("Failed to release backend", applog.FieldError, cleanupErr)
	}
	if err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// openBackend builds the configured table and broker. Any failure is reported as a
// *core.ConfigError so the server can show it instead of exiting.
func openBackend(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, &core.ConfigError{Problems: []string{err.Error()}}
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to open data backend", "backend", cfg.DataBackend, applog.FieldError, err)
		return nil, &core.ConfigError{Problems: []string{fmt.Sprintf("data backend %s unavailable: %v", cfg.DataBackend, err)}}
	}
	return result, nil
}

func run(ctx context.Context, cfg *config.Config, result *backend.BackendResult, logger *applog.Logger) error {
	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Collections:        result.Live,
		Provider:           newProvider(cfg),
		Codec:              session.NewTokenCodec([]byte(cfg.SessionSecret), cfg.SessionTTL),
		Generator:          newGenerator(cfg),
		Registry:           core.DefaultRegistry,
		Ready:              result.Ping,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SecureCookies:      strings.HasPrefix(cfg.GoogleOAuthRedirect, "https://"),
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting bilancio server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"auth", cfg.AuthProvider,
			"advice", cfg.AdviceEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if result.Broker != nil {
		g.Go(func() error {
			return consumeChanges(gctx, cfg.AMQPQueue, result, logger.WithComponent(applog.ComponentAMQP))
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// consumeChanges refreshes local subscribers whenever another process mutates a collection.
// Losing the broker only costs cross-process push, so a failure is logged and the server keeps running.
func consumeChanges(ctx context.Context, queue string, result *backend.BackendResult, logger *applog.Logger) error {
	broker := result.Broker
	err := broker.ConsumeChanges(ctx, queue, func(ctx context.Context, msg *amqp.ChangeMessage) error {
		if broker.IsOwn(msg) {
			return nil
		}
		if err := result.Live.RefreshCollection(ctx, msg.Collection); err != nil {
			logger.WarnContext(ctx, "Failed to refresh collection",
				applog.FieldCollection, msg.Collection,
				applog.FieldError, err)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("Change consumer stopped, live updates from other processes are off", applog.FieldError, err)
	}
	return nil
}

func newProvider(cfg *config.Config) session.Provider {
	if cfg.AuthProvider == "google" {
		return session.NewGoogleProvider(cfg.GoogleOAuthClientID, cfg.GoogleOAuthSecret, cfg.GoogleOAuthRedirect)
	}
	return session.NewStaticProvider(core.Principal{
		ID:        cfg.StaticPrincipalID,
		Name:      cfg.StaticPrincipalName,
		AvatarURL: cfg.StaticPrincipalAvatar,
	}, "/auth/callback")
}

func newGenerator(cfg *config.Config) advice.Generator {
	if !cfg.AdviceEnabled() {
		return advice.Disabled{}
	}
	return advice.NewGeminiClient(cfg.AdviceEndpoint, cfg.AdviceModel, cfg.AdviceAPIKey, cfg.AdviceTimeout)
}

func runDegraded(ctx context.Context, cfg *config.Config, cfgErr error, logger *applog.Logger) error {
	port := cfg.Port
	if port == "" {
		port = "8081"
	}
	srv, err := apphttp.NewDegradedServer(":"+port, cfgErr, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Warn("Starting in degraded mode", "port", port, applog.FieldError, cfgErr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

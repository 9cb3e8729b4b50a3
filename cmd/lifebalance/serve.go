package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lifebalance/internal/amqp"
	"lifebalance/internal/cache"
	"lifebalance/internal/cli"
	"lifebalance/internal/config"
	apphttp "lifebalance/internal/http"
	"lifebalance/internal/log"
	"lifebalance/internal/metrics"
	"lifebalance/internal/section"
	"lifebalance/internal/session"
	"lifebalance/internal/shell"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = time.Minute
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = ":" + cfg.Port
			}
			ctx, stop := cli.SignalContext(cmd.Context())
			defer stop()
			return serve(ctx, cfg, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, addr string) error {
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentApp)
	logger.Info("Starting lifebalance", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend, "addr", addr)
	cli.WarnInsecureDefaults(logger, cfg)

	store, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	}()

	m := metrics.New()

	var notifier section.Notifier = m
	if cfg.EventsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		notifier = section.Notifiers{m, m.CountFailures(client)}
		logger.Info("Record events enabled", "exchange", cfg.AMQPExchange)
	}

	// Zero in the config means no simulated latency; the session treats
	// zero as its default.
	delay := cfg.LoginDelay
	if delay == 0 {
		delay = -1
	}

	registry := shell.NewRegistry(store.Store, shell.RegistryConfig{
		Size: cfg.WorkspaceCacheSize,
		TTL:  cfg.WorkspaceTTL,
		Deps: shell.Deps{
			Section: section.Deps{Notifier: notifier, Logger: logger, OnCorrupt: m.CorruptBlob},
			Session: session.Options{Delay: delay, Logger: logger, OnCorrupt: m.CorruptBlob},
		},
		Logger:  logger,
		OnOpen:  m.WorkspaceOpened,
		OnClose: m.WorkspaceClosed,
	})
	defer registry.Close()

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               addr,
		Registry:           registry,
		Devices:            session.NewDeviceIssuer(cfg.Secret(), session.DefaultDeviceLifetime),
		Metrics:            m,
		Store:              store.Store,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		return err
	}

	caches := cache.NewManager(logger)
	caches.Register(registry.Cleaner())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return caches.Run(gctx, sweepInterval)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}

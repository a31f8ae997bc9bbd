package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spacesedan/redditmcp/config"
	"github.com/spacesedan/redditmcp/internal/clients"
	"github.com/spacesedan/redditmcp/internal/clients/kafka_client"
	"github.com/spacesedan/redditmcp/internal/logging"
	"github.com/spacesedan/redditmcp/internal/server"
)

func main() {
	config.LoadEnv(os.Getenv("APP_ENV"))

	cfg, err := config.Load()
	if err != nil {
		logging.InitLogger("info")
		slog.Error("Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("MCP server stopped", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
	slog.Info("Shutting down MCP server gracefully...")
}

func run(ctx context.Context, cfg config.Config) error {
	opts := clients.Options{
		AuthURL:     cfg.AuthURL,
		APIURL:      cfg.APIURL,
		HTTPClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		MinInterval: cfg.MinInterval,
		TokenMargin: cfg.TokenMargin,
	}

	if cfg.Valkey.Address != "" {
		vc, err := clients.NewValkeyClient(ctx, cfg.Valkey)
		if err != nil {
			return err
		}
		defer vc.Close()

		opts.Ledger = clients.NewValkeyLedger(vc, cfg.Reddit.ClientID)
		opts.TokenCache = clients.NewValkeyTokenCache(vc, cfg.Reddit.ClientID, nil)
	}

	reddit, err := clients.NewRedditClient(cfg.Reddit, opts)
	if err != nil {
		return fmt.Errorf("failed to create Reddit client: %w", err)
	}

	var sink server.ContentSink
	if cfg.Kafka.Enabled() {
		publisher, err := kafka_client.NewPublisher(cfg.Kafka)
		if err != nil {
			slog.Warn("Kafka init failed, search results will not be published",
				slog.String("error", err.Error()))
		} else {
			defer publisher.Close()
			sink = publisher
		}
	}

	err = server.New(reddit, sink).Serve(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

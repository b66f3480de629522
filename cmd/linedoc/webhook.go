package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"linedoc/internal/config"
	"linedoc/internal/domain"
	"linedoc/internal/journal"
	"linedoc/internal/line"
	"linedoc/internal/webhook"

	"github.com/spf13/cobra"
)

func webhookCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Serve the LINE webhook receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadWebhook(source)
			if port != 0 {
				cfg.Port = port
			}
			return runWebhook(cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides PORT)")
	return cmd
}

func runWebhook(cfg config.WebhookConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}
	logStartup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newLineClient(cfg)
	dispatcher := line.NewDispatcher(line.DispatcherConfig{
		Client:  client,
		Timeout: cfg.MessageTimeout,
		Logger:  logger,
	})
	fetcher := line.NewFetcher(line.FetcherConfig{
		Client:         client,
		DownloadDir:    cfg.DownloadDir,
		MaxBytes:       cfg.MaxDownloadBytes,
		HeaderTimeout:  cfg.HeaderTimeout,
		ContentTimeout: cfg.ContentTimeout,
		Logger:         logger,
	})

	var dlJournal domain.DownloadJournal
	if cfg.JournalPath != "" {
		j, err := journal.NewSQLiteJournal(cfg.JournalPath, logger)
		if err != nil {
			return err
		}
		defer j.Close()
		dlJournal = j
	}

	handlers := webhook.NewEventHandlers(webhook.HandlerConfig{
		Notifier: dispatcher,
		Fetcher:  fetcher,
		Journal:  dlJournal,
		Logger:   logger,
	})
	server := webhook.NewServer(webhook.ServerConfig{
		Port:            cfg.Port,
		ChannelSecret:   cfg.ChannelSecret,
		VerifySignature: cfg.VerifySignature,
		Router:          webhook.NewRouter(handlers, logger),
		Logger:          logger,
	})
	return server.Start(ctx)
}

func newLineClient(cfg config.WebhookConfig) *line.Client {
	return line.NewClient(line.ClientConfig{
		AccessToken: cfg.ChannelAccessToken,
		APIBase:     cfg.APIBase,
		DataAPIBase: cfg.DataAPIBase,
		RateLimit:   cfg.APIRateLimit,
		Logger:      logger,
	})
}

// logStartup reports which identifiers are configured without revealing them.
func logStartup(cfg config.WebhookConfig) {
	token := "(not set)"
	if cfg.ChannelAccessToken != "" {
		token = config.MaskString(cfg.ChannelAccessToken)
	}
	logger.Info("webhook configuration",
		"environment", source.Environment(),
		"env_file", source.EnvFile(),
		"access_token", token,
		"channel_secret_set", cfg.ChannelSecret != "",
		"channel_id", cfg.ChannelID,
		"download_dir", cfg.DownloadDir,
		"journal", cfg.JournalPath,
	)
	for _, key := range config.TargetKeys {
		if id, ok := cfg.Targets[key]; ok {
			logger.Info("push target configured", "key", key, "id", config.MaskString(id))
		}
	}
	if cfg.WebhookURL != "" {
		logger.Info(fmt.Sprintf("register %s as the webhook URL in the LINE console", cfg.WebhookURL))
	}
}

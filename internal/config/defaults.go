package config

import "time"

const (
	DefaultAPIBase     = "https://api.line.me"
	DefaultDataAPIBase = "https://api-data.line.me"
)

func DefaultWebhook() WebhookConfig {
	return WebhookConfig{
		Port:             8080,
		APIBase:          DefaultAPIBase,
		DataAPIBase:      DefaultDataAPIBase,
		DownloadDir:      "~/Desktop/LINE_Downloads",
		MaxDownloadBytes: 300 << 20,
		HeaderTimeout:    30 * time.Second,
		ContentTimeout:   60 * time.Second,
		MessageTimeout:   10 * time.Second,
	}
}

func DefaultProcessor() ProcessorConfig {
	return ProcessorConfig{
		Port:           8081,
		MaxConcurrent:  2,
		ProcessTimeout: 5 * time.Minute,
	}
}

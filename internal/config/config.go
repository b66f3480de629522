package config

import (
	"fmt"
	"strings"
	"time"
)

// WebhookConfig configures the LINE webhook receiver.
type WebhookConfig struct {
	Port int

	ChannelAccessToken string
	ChannelSecret      string
	ChannelID          string
	WebhookURL         string
	VerifySignature    bool

	APIBase     string
	DataAPIBase string

	DownloadDir      string
	MaxDownloadBytes int64

	HeaderTimeout  time.Duration
	ContentTimeout time.Duration
	MessageTimeout time.Duration
	APIRateLimit   float64 // requests per second, 0 = unlimited

	JournalPath string

	// Named push targets (user and group IDs) keyed by their config name.
	Targets map[string]string
}

// ProcessorConfig configures the storage-triggered extraction pipeline.
type ProcessorConfig struct {
	Port int

	ProjectID           string
	Location            string
	ProcessorID         string
	SourceBucket        string
	ProcessedBucketName string
	ExportXLSX          bool

	// MaxConcurrent caps simultaneous documents on the trigger server.
	MaxConcurrent  int
	ProcessTimeout time.Duration
	JournalPath    string
}

// TargetKeys are the optional identifier keys used as named push targets.
var TargetKeys = []string{
	"LINE_USER_ID_CURRENT",
	"LINE_GROUP_ID_CURRENT",
	"LINE_USER_ID_SAM",
	"LINE_GROUP_ID_TEMP",
	"LINE_GROUP_ID_PATROL",
}

// ProcessorRequiredKeys must all be set for the extraction pipeline to start.
var ProcessorRequiredKeys = []string{
	"GCP_PROJECT",
	"DOCAI_LOCATION",
	"DOCAI_PROCESSOR_ID",
	"PROCESSED_BUCKET_NAME",
}

// LoadWebhook reads the webhook configuration. Missing identifiers never fail
// here; see WebhookConfig.Warnings.
func LoadWebhook(src *Source) WebhookConfig {
	d := DefaultWebhook()
	cfg := WebhookConfig{
		Port:               src.Int("PORT", d.Port),
		ChannelAccessToken: src.Get("LINE_CHANNEL_ACCESS_TOKEN", ""),
		ChannelSecret:      src.Get("LINE_CHANNEL_SECRET", ""),
		ChannelID:          src.Get("LINE_CHANNEL_ID", ""),
		WebhookURL:         src.Get("WEBHOOK_URL", ""),
		VerifySignature:    src.Bool("LINE_VERIFY_SIGNATURE", d.VerifySignature),
		APIBase:            strings.TrimRight(src.Get("LINE_API_BASE", d.APIBase), "/"),
		DataAPIBase:        strings.TrimRight(src.Get("LINE_DATA_API_BASE", d.DataAPIBase), "/"),
		DownloadDir:        ExpandPath(src.Get("DOWNLOAD_DIR", d.DownloadDir)),
		MaxDownloadBytes:   src.Int64("MAX_DOWNLOAD_BYTES", d.MaxDownloadBytes),
		HeaderTimeout:      src.Duration("FETCH_HEADER_TIMEOUT", d.HeaderTimeout),
		ContentTimeout:     src.Duration("FETCH_CONTENT_TIMEOUT", d.ContentTimeout),
		MessageTimeout:     src.Duration("MESSAGE_TIMEOUT", d.MessageTimeout),
		APIRateLimit:       src.Float("LINE_API_RATE_LIMIT", d.APIRateLimit),
		JournalPath:        ExpandPath(src.Get("JOURNAL_PATH", d.JournalPath)),
		Targets:            map[string]string{},
	}
	for _, key := range TargetKeys {
		if v, ok := src.Lookup(key); ok {
			cfg.Targets[key] = v
		}
	}
	return cfg
}

// Warnings lists configuration gaps that degrade the webhook but do not stop it.
func (c WebhookConfig) Warnings() []string {
	var warns []string
	if c.ChannelAccessToken == "" {
		warns = append(warns, "LINE_CHANNEL_ACCESS_TOKEN is not set (replies, pushes and downloads will fail)")
	}
	if c.ChannelSecret == "" {
		warns = append(warns, "LINE_CHANNEL_SECRET is not set")
		if c.VerifySignature {
			warns = append(warns, "LINE_VERIFY_SIGNATURE is on but there is no secret; signatures will not be checked")
		}
	}
	if c.ChannelID == "" {
		warns = append(warns, "LINE_CHANNEL_ID is not set")
	}
	if c.WebhookURL == "" {
		warns = append(warns, "WEBHOOK_URL is not set")
	}
	return warns
}

// Validate checks value ranges.
func (c WebhookConfig) Validate() error {
	var errs []string
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "PORT must be between 1 and 65535")
	}
	if c.MaxDownloadBytes < 1 {
		errs = append(errs, "MAX_DOWNLOAD_BYTES must be >= 1")
	}
	if c.APIRateLimit < 0 {
		errs = append(errs, "LINE_API_RATE_LIMIT must be >= 0")
	}
	if c.DownloadDir == "" {
		errs = append(errs, "DOWNLOAD_DIR must not be empty")
	}
	for name, base := range map[string]string{"LINE_API_BASE": c.APIBase, "LINE_DATA_API_BASE": c.DataAPIBase} {
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			errs = append(errs, name+" must be an http(s) URL")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LoadProcessor reads the extraction pipeline configuration. Every missing
// required key is reported in a single MissingKeyError.
func LoadProcessor(src *Source) (ProcessorConfig, error) {
	if err := src.MissingRequired(ProcessorRequiredKeys...); err != nil {
		return ProcessorConfig{}, err
	}
	d := DefaultProcessor()
	cfg := ProcessorConfig{
		Port:                src.Int("PORT", d.Port),
		ProjectID:           src.Get("GCP_PROJECT", ""),
		Location:            src.Get("DOCAI_LOCATION", ""),
		ProcessorID:         src.Get("DOCAI_PROCESSOR_ID", ""),
		SourceBucket:        src.Get("BUCKET_NAME", ""),
		ProcessedBucketName: src.Get("PROCESSED_BUCKET_NAME", ""),
		ExportXLSX:          src.Bool("EXPORT_XLSX", d.ExportXLSX),
		MaxConcurrent:       src.Int("PROCESSOR_CONCURRENCY", d.MaxConcurrent),
		ProcessTimeout:      src.Duration("PROCESS_TIMEOUT", d.ProcessTimeout),
		JournalPath:         ExpandPath(src.Get("JOURNAL_PATH", "")),
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return ProcessorConfig{}, fmt.Errorf("config validation: PORT must be between 1 and 65535")
	}
	if cfg.MaxConcurrent < 1 {
		return ProcessorConfig{}, fmt.Errorf("config validation: PROCESSOR_CONCURRENCY must be >= 1")
	}
	return cfg, nil
}

// ProcessorName is the fully qualified Document AI processor resource name.
func (c ProcessorConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

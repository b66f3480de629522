package domain

import (
	"context"
	"time"
)

// DownloadEntry records the outcome of one content fetch.
type DownloadEntry struct {
	ID        int64     `json:"id"`
	MessageID string    `json:"message_id"`
	Kind      string    `json:"kind"`
	FileName  string    `json:"file_name"`
	UserID    string    `json:"user_id"`
	Path      string    `json:"path,omitempty"`
	Size      int64     `json:"size"`
	Tier      string    `json:"tier,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DownloadJournal keeps a history of content fetches.
type DownloadJournal interface {
	RecordDownload(ctx context.Context, entry DownloadEntry) error
	RecentDownloads(ctx context.Context, limit int) ([]DownloadEntry, error)
	Close() error
}

// DocumentEntry records one run of the extraction pipeline.
type DocumentEntry struct {
	ID        int64     `json:"id"`
	Bucket    string    `json:"bucket"`
	Name      string    `json:"name"`
	Records   int       `json:"records"`
	Outputs   []string  `json:"outputs,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentJournal keeps a history of extraction runs.
type DocumentJournal interface {
	RecordDocument(ctx context.Context, entry DocumentEntry) error
	RecentDocuments(ctx context.Context, limit int) ([]DocumentEntry, error)
}

// Package journal persists download and extraction history in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"linedoc/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteJournal implements domain.DownloadJournal and domain.DocumentJournal.
type SQLiteJournal struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteJournal(dbPath string, logger *slog.Logger) (*SQLiteJournal, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create journal directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal migration failed: %w", err)
	}
	return &SQLiteJournal{db: db, logger: logger}, nil
}

func (j *SQLiteJournal) Close() error { return j.db.Close() }

// Ping checks the database connection.
func (j *SQLiteJournal) Ping(ctx context.Context) error { return j.db.PingContext(ctx) }

func (j *SQLiteJournal) RecordDownload(ctx context.Context, e domain.DownloadEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO downloads (message_id, kind, file_name, user_id, path, size, tier, success, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.MessageID, e.Kind, e.FileName, e.UserID, e.Path, e.Size, e.Tier, e.Success, e.Error, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	return nil
}

// RecentDownloads returns up to limit entries, newest first.
func (j *SQLiteJournal) RecentDownloads(ctx context.Context, limit int) ([]domain.DownloadEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, message_id, kind, file_name, user_id, path, size, tier, success, error, created_at
		 FROM downloads ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer rows.Close()

	var entries []domain.DownloadEntry
	for rows.Next() {
		var e domain.DownloadEntry
		if err := rows.Scan(&e.ID, &e.MessageID, &e.Kind, &e.FileName, &e.UserID, &e.Path,
			&e.Size, &e.Tier, &e.Success, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (j *SQLiteJournal) RecordDocument(ctx context.Context, e domain.DocumentEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO documents (bucket, name, records, outputs, success, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Bucket, e.Name, e.Records, strings.Join(e.Outputs, "\n"), e.Success, e.Error, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record document: %w", err)
	}
	return nil
}

// RecentDocuments returns up to limit extraction runs, newest first.
func (j *SQLiteJournal) RecentDocuments(ctx context.Context, limit int) ([]domain.DocumentEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, bucket, name, records, outputs, success, error, created_at
		 FROM documents ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var entries []domain.DocumentEntry
	for rows.Next() {
		var e domain.DocumentEntry
		var outputs string
		if err := rows.Scan(&e.ID, &e.Bucket, &e.Name, &e.Records, &outputs, &e.Success, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if outputs != "" {
			e.Outputs = strings.Split(outputs, "\n")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

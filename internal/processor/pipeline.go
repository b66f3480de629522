// Package processor runs the storage-triggered extraction pipeline:
// recognise a stored document, flatten it and write the exports.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"linedoc/internal/domain"
	"linedoc/internal/extract"
	"linedoc/internal/metrics"
)

const timestampLayout = "2006-01-02_15-04-05"

// ErrInvalidEvent marks a trigger without bucket or object name.
var ErrInvalidEvent = errors.New("storage event requires bucket and name")

// PipelineConfig wires a Pipeline.
type PipelineConfig struct {
	Extractor  domain.DocumentExtractor
	Store      domain.BlobStore
	ExportXLSX bool
	// Journal is optional.
	Journal domain.DocumentJournal
	Now     func() time.Time
	Logger  *slog.Logger
}

// Pipeline turns one stored document into a raw JSON result plus CSV (and
// optionally XLSX) exports in the output store.
type Pipeline struct {
	extractor  domain.DocumentExtractor
	store      domain.BlobStore
	exportXLSX bool
	journal    domain.DocumentJournal
	now        func() time.Time
	logger     *slog.Logger
}

// Result summarises one pipeline run.
type Result struct {
	Source  string   `json:"source"`
	Records int      `json:"records"`
	Objects []string `json:"objects"`
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		extractor:  cfg.Extractor,
		store:      cfg.Store,
		exportXLSX: cfg.ExportXLSX,
		journal:    cfg.Journal,
		now:        cfg.Now,
		logger:     cfg.Logger.With("component", "pipeline"),
	}
}

// Process handles an object-storage event for gs://bucket/name.
func (p *Pipeline) Process(ctx context.Context, ev domain.StorageEvent) (Result, error) {
	if ev.Bucket == "" || ev.Name == "" {
		return Result{}, ErrInvalidEvent
	}
	source := fmt.Sprintf("gs://%s/%s", ev.Bucket, ev.Name)
	res, err := p.run(ctx, source, ev.Name)
	p.record(ctx, ev.Bucket, ev.Name, res, err)
	return res, err
}

// ProcessFile handles a local file, sending its bytes inline.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (Result, error) {
	name := filepath.Base(path)
	res, err := p.run(ctx, path, name)
	p.record(ctx, "", name, res, err)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, source, name string) (res Result, err error) {
	start := time.Now()
	defer func() {
		metrics.ProcessLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.Document("failed").Inc()
		} else {
			metrics.Document("ok").Inc()
		}
	}()

	res.Source = source
	mimeType := extract.MIMETypeFor(name)
	p.logger.Info("processing document", "source", source, "mime_type", mimeType)

	rec, err := p.extractor.Process(ctx, source, mimeType)
	if err != nil {
		return res, fmt.Errorf("recognise %s: %w", source, err)
	}

	records := extract.Records(rec.Document)
	res.Records = len(records)

	prefix := p.now().Format(timestampLayout) + "_" + name
	uploads := []upload{{name: prefix + ".json", contentType: "application/json", data: rec.Raw}}

	if len(records) > 0 {
		csvData, err := extract.CSV(records)
		if err != nil {
			return res, fmt.Errorf("build csv: %w", err)
		}
		uploads = append(uploads, upload{name: prefix + ".csv", contentType: "text/csv; charset=utf-8", data: csvData})

		if p.exportXLSX {
			xlsxData, err := extract.XLSX(records)
			if err != nil {
				return res, fmt.Errorf("build xlsx: %w", err)
			}
			uploads = append(uploads, upload{name: prefix + ".xlsx", contentType: extract.XLSXContentType, data: xlsxData})
		}
	} else {
		p.logger.Info("no structured data extracted", "source", source)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range uploads {
		g.Go(func() error {
			return p.store.Put(gctx, u.name, u.data, u.contentType)
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("store results for %s: %w", source, err)
	}

	for _, u := range uploads {
		res.Objects = append(res.Objects, u.name)
	}
	p.logger.Info("document processed", "source", source, "records", res.Records, "objects", len(res.Objects))
	return res, nil
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

func (p *Pipeline) record(ctx context.Context, bucket, name string, res Result, runErr error) {
	if p.journal == nil {
		return
	}
	entry := domain.DocumentEntry{
		Bucket:  bucket,
		Name:    name,
		Records: res.Records,
		Outputs: res.Objects,
		Success: runErr == nil,
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	if err := p.journal.RecordDocument(ctx, entry); err != nil {
		p.logger.Warn("journal write failed", "name", name, "error", err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"linedoc/internal/config"
	"linedoc/internal/docai"
	"linedoc/internal/domain"
	"linedoc/internal/journal"
	"linedoc/internal/processor"
	"linedoc/internal/storage"

	"github.com/spf13/cobra"
)

const defaultEventFile = "local_test/sample_event.json"

func processorCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "processor",
		Short: "Serve the storage-trigger endpoint for document extraction",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadProcessor(source)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pipeline, cleanup, err := newPipeline(ctx, cfg, "")
			if err != nil {
				return err
			}
			defer cleanup()

			server := processor.NewServer(processor.ServerConfig{
				Port:          cfg.Port,
				Pipeline:      pipeline,
				MaxConcurrent: cfg.MaxConcurrent,
				Timeout:       cfg.ProcessTimeout,
				Logger:        logger,
			})
			return server.Start(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides PORT)")
	return cmd
}

func processCmd() *cobra.Command {
	var (
		bucket    string
		name      string
		eventPath string
		filePath  string
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the extraction pipeline once",
		Long: `Runs Document AI on one document and writes the JSON/CSV results.

The document is taken from --file (a local file sent inline), from
--bucket/--name, or from an event file holding {"bucket": ..., "name": ...}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadProcessor(source)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, cfg.ProcessTimeout)
			defer cancel()

			pipeline, cleanup, err := newPipeline(ctx, cfg, outputDir)
			if err != nil {
				return err
			}
			defer cleanup()

			var res processor.Result
			if filePath != "" {
				res, err = pipeline.ProcessFile(ctx, filePath)
			} else {
				ev := domain.StorageEvent{Bucket: bucket, Name: name}
				if ev.Bucket == "" || ev.Name == "" {
					ev, err = readEventFile(eventPath)
					if err != nil {
						return err
					}
				}
				res, err = pipeline.Process(ctx, ev)
			}
			if err != nil {
				return err
			}

			data, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "source bucket")
	cmd.Flags().StringVar(&name, "name", "", "object name in the source bucket")
	cmd.Flags().StringVar(&eventPath, "event", defaultEventFile, "JSON event file with bucket and name")
	cmd.Flags().StringVar(&filePath, "file", "", "local document to send inline instead of a bucket object")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "write results to this directory instead of the processed bucket")
	return cmd
}

func readEventFile(path string) (domain.StorageEvent, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.StorageEvent{}, fmt.Errorf("event file %s not found; create it with {\"bucket\": \"your-bucket-name\", \"name\": \"test-document.pdf\"}", path)
	}
	if err != nil {
		return domain.StorageEvent{}, fmt.Errorf("read event file: %w", err)
	}
	var ev domain.StorageEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return domain.StorageEvent{}, fmt.Errorf("parse event file %s: %w", path, err)
	}
	if ev.Bucket == "" || ev.Name == "" {
		return domain.StorageEvent{}, fmt.Errorf("event file %s: %w", path, processor.ErrInvalidEvent)
	}
	return ev, nil
}

// newPipeline wires Document AI, the output store and the optional journal.
// An outputDir replaces the processed bucket with a local directory.
func newPipeline(ctx context.Context, cfg config.ProcessorConfig, outputDir string) (*processor.Pipeline, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}

	extractor, err := docai.NewClient(ctx, docai.Config{
		ProjectID:   cfg.ProjectID,
		Location:    cfg.Location,
		ProcessorID: cfg.ProcessorID,
		Logger:      logger,
	})
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, extractor.Close)

	var store domain.BlobStore
	if outputDir != "" {
		local, err := storage.NewLocal(config.ExpandPath(outputDir), logger)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		store = local
	} else {
		gcs, err := storage.NewGCS(ctx, cfg.ProcessedBucketName, logger)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, gcs.Close)
		store = gcs
	}

	var docJournal domain.DocumentJournal
	if cfg.JournalPath != "" {
		j, err := journal.NewSQLiteJournal(cfg.JournalPath, logger)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, j.Close)
		docJournal = j
	}

	pipeline := processor.NewPipeline(processor.PipelineConfig{
		Extractor:  extractor,
		Store:      store,
		ExportXLSX: cfg.ExportXLSX,
		Journal:    docJournal,
		Logger:     logger,
	})
	logger.Info("pipeline ready", "processor", cfg.ProcessorName(), "processed_bucket", cfg.ProcessedBucketName, "xlsx", cfg.ExportXLSX)
	return pipeline, cleanup, nil
}

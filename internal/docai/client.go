// Package docai runs Google Document AI recognition on stored documents.
package docai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"linedoc/internal/domain"
)

// processor is the slice of the Document AI client this package uses.
type processor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// Config identifies the processor to call.
type Config struct {
	ProjectID   string
	Location    string
	ProcessorID string
	// ClientOptions are appended after the regional endpoint option.
	ClientOptions []option.ClientOption
	Logger        *slog.Logger
}

// Name returns the processor resource name.
func (c Config) Name() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// Endpoint returns the API endpoint serving c.Location. Only the "us"
// location uses the global endpoint.
func (c Config) Endpoint() string {
	if c.Location == "" || c.Location == "us" {
		return "documentai.googleapis.com:443"
	}
	return c.Location + "-documentai.googleapis.com:443"
}

// Client implements domain.DocumentExtractor.
type Client struct {
	name   string
	api    processor
	logger *slog.Logger
}

// NewClient dials Document AI with application default credentials unless
// cfg.ClientOptions says otherwise.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts := append([]option.ClientOption{option.WithEndpoint(cfg.Endpoint())}, cfg.ClientOptions...)
	api, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("document ai client: %w", err)
	}
	return newClient(cfg, api), nil
}

func newClient(cfg Config, api processor) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		name:   cfg.Name(),
		api:    api,
		logger: logger.With("component", "docai"),
	}
}

func (c *Client) Close() error { return c.api.Close() }

// Process recognises the document at location. A gs:// URI is read by the
// service directly; anything else is treated as a local file and sent inline.
func (c *Client) Process(ctx context.Context, location, mimeType string) (*domain.Recognition, error) {
	req := &documentaipb.ProcessRequest{Name: c.name}

	if strings.HasPrefix(location, "gs://") {
		req.Source = &documentaipb.ProcessRequest_GcsDocument{
			GcsDocument: &documentaipb.GcsDocument{GcsUri: location, MimeType: mimeType},
		}
	} else {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", location, err)
		}
		req.Source = &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: mimeType},
		}
	}

	c.logger.Info("calling document ai", "processor", c.name, "document", location, "mime_type", mimeType)

	resp, err := c.api.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("process document %s: %w", location, err)
	}
	doc := resp.GetDocument()
	if doc == nil {
		return nil, fmt.Errorf("process document %s: empty response", location)
	}

	raw, err := protojson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	c.logger.Info("document ai finished", "pages", len(doc.GetPages()), "entities", len(doc.GetEntities()))
	return &domain.Recognition{Document: FromProto(doc), Raw: raw}, nil
}

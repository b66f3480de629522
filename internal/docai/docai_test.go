package docai

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"

	"linedoc/internal/extract"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeProcessor struct {
	req  *documentaipb.ProcessRequest
	resp *documentaipb.ProcessResponse
	err  error
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakeProcessor) Close() error { return nil }

func segment(start, end int64) *documentaipb.Document_Page_Layout {
	return &documentaipb.Document_Page_Layout{
		TextAnchor: &documentaipb.Document_TextAnchor{
			TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: start, EndIndex: end}},
		},
	}
}

func invoiceProto() *documentaipb.Document {
	text := "Item Qty\nBolt 4\n"
	return &documentaipb.Document{
		Text: text,
		Entities: []*documentaipb.Document_Entity{
			{
				Type:        "invoice_id",
				MentionText: "INV-9",
				Confidence:  0.5,
				PageAnchor: &documentaipb.Document_PageAnchor{
					PageRefs: []*documentaipb.Document_PageAnchor_PageRef{{Page: 0}},
				},
			},
		},
		Pages: []*documentaipb.Document_Page{{
			PageNumber: 1,
			Tables: []*documentaipb.Document_Page_Table{{
				HeaderRows: []*documentaipb.Document_Page_Table_TableRow{{
					Cells: []*documentaipb.Document_Page_Table_TableCell{
						{Layout: segment(0, 4)},
						{Layout: segment(5, 8)},
					},
				}},
				BodyRows: []*documentaipb.Document_Page_Table_TableRow{{
					Cells: []*documentaipb.Document_Page_Table_TableCell{
						{Layout: segment(9, 13)},
						{Layout: segment(14, 99)},
					},
				}},
			}},
		}},
	}
}

func TestFromProto(t *testing.T) {
	doc := FromProto(invoiceProto())

	if len(doc.Entities) != 1 || doc.Entities[0].Confidence != 0.5 || doc.Entities[0].PageRefs[0] != 0 {
		t.Fatalf("unexpected entities %+v", doc.Entities)
	}
	if len(doc.Pages) != 1 || doc.Pages[0].PageNumber != 1 {
		t.Fatalf("unexpected pages %+v", doc.Pages)
	}
	table := doc.Pages[0].Tables[0]
	got := []string{
		table.HeaderRows[0].Cells[0].Text,
		table.HeaderRows[0].Cells[1].Text,
		table.BodyRows[0].Cells[0].Text,
		table.BodyRows[0].Cells[1].Text,
	}
	if strings.Join(got, "|") != "Item|Qty|Bolt|4" {
		t.Errorf("unexpected cell text %v", got)
	}

	recs := extract.Records(doc)
	if len(recs) != 1+4 {
		t.Errorf("expected 5 records, got %d", len(recs))
	}
}

func TestAnchorText(t *testing.T) {
	if got := anchorText("abc", nil); got != "" {
		t.Errorf("nil anchor: %q", got)
	}
	inline := &documentaipb.Document_TextAnchor{Content: " inline "}
	if got := anchorText("abc", inline); got != "inline" {
		t.Errorf("content anchor: %q", got)
	}
	multi := &documentaipb.Document_TextAnchor{TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
		{StartIndex: 0, EndIndex: 2}, {StartIndex: 4, EndIndex: 6}, {StartIndex: 5, EndIndex: 3},
	}}
	if got := anchorText("abcdefgh", multi); got != "abef" {
		t.Errorf("segments: %q", got)
	}
}

func TestConfig_NameAndEndpoint(t *testing.T) {
	cfg := Config{ProjectID: "p", Location: "eu", ProcessorID: "x"}
	if cfg.Name() != "projects/p/locations/eu/processors/x" {
		t.Errorf("unexpected name %s", cfg.Name())
	}
	if cfg.Endpoint() != "eu-documentai.googleapis.com:443" {
		t.Errorf("unexpected endpoint %s", cfg.Endpoint())
	}
	cfg.Location = "us"
	if cfg.Endpoint() != "documentai.googleapis.com:443" {
		t.Errorf("unexpected endpoint %s", cfg.Endpoint())
	}
}

func TestClient_ProcessGCS(t *testing.T) {
	fake := &fakeProcessor{resp: &documentaipb.ProcessResponse{Document: invoiceProto()}}
	c := newClient(Config{ProjectID: "p", Location: "us", ProcessorID: "x", Logger: testLogger()}, fake)

	rec, err := c.Process(context.Background(), "gs://in/invoice.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	gcs := fake.req.GetGcsDocument()
	if gcs == nil || gcs.GetGcsUri() != "gs://in/invoice.pdf" || gcs.GetMimeType() != "application/pdf" {
		t.Errorf("unexpected request source %+v", fake.req.GetSource())
	}
	if fake.req.GetName() != "projects/p/locations/us/processors/x" {
		t.Errorf("unexpected processor name %s", fake.req.GetName())
	}
	if !strings.Contains(string(rec.Raw), "INV-9") {
		t.Errorf("raw result missing entity: %s", rec.Raw)
	}
	if len(rec.Document.Entities) != 1 {
		t.Errorf("document not converted")
	}
}

func TestClient_ProcessLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(path, []byte("pngbytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	fake := &fakeProcessor{resp: &documentaipb.ProcessResponse{Document: &documentaipb.Document{Text: "x"}}}
	c := newClient(Config{Logger: testLogger()}, fake)

	if _, err := c.Process(context.Background(), path, "image/png"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	raw := fake.req.GetRawDocument()
	if raw == nil || string(raw.GetContent()) != "pngbytes" || raw.GetMimeType() != "image/png" {
		t.Errorf("unexpected raw document %+v", fake.req.GetSource())
	}
}

func TestClient_ProcessErrors(t *testing.T) {
	fake := &fakeProcessor{err: errors.New("permission denied")}
	c := newClient(Config{Logger: testLogger()}, fake)
	if _, err := c.Process(context.Background(), "gs://b/n.pdf", "application/pdf"); err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("expected wrapped api error, got %v", err)
	}

	fake.err = nil
	fake.resp = &documentaipb.ProcessResponse{}
	if _, err := c.Process(context.Background(), "gs://b/n.pdf", "application/pdf"); err == nil {
		t.Fatal("expected error for empty response")
	}

	if _, err := c.Process(context.Background(), "/does/not/exist.pdf", "application/pdf"); err == nil {
		t.Fatal("expected error for missing local file")
	}
}

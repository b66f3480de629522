package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"linedoc/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var fixedNow = func() time.Time { return time.Date(2025, 6, 1, 13, 5, 9, 0, time.UTC) }

type fakeExtractor struct {
	location string
	mimeType string
	rec      *domain.Recognition
	err      error
}

func (f *fakeExtractor) Process(ctx context.Context, location, mimeType string) (*domain.Recognition, error) {
	f.location, f.mimeType = location, mimeType
	return f.rec, f.err
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memoryStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	if m.failOn != "" && strings.HasSuffix(name, m.failOn) {
		return errors.New("bucket unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	m.types[name] = contentType
	return nil
}

func (m *memoryStore) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type fakeDocJournal struct {
	entries []domain.DocumentEntry
}

func (f *fakeDocJournal) RecordDocument(ctx context.Context, e domain.DocumentEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeDocJournal) RecentDocuments(ctx context.Context, limit int) ([]domain.DocumentEntry, error) {
	return f.entries, nil
}

func recognition() *domain.Recognition {
	return &domain.Recognition{
		Raw: []byte(`{"text":"x"}`),
		Document: domain.Document{
			Entities: []domain.Entity{{Type: "total", MentionText: "10", Confidence: 0.9}},
			Pages: []domain.Page{{PageNumber: 1, Tables: []domain.Table{{
				HeaderRows: []domain.TableRow{{Cells: []domain.TableCell{{Text: "a"}}}},
			}}}},
		},
	}
}

func newTestPipeline(ex domain.DocumentExtractor, store domain.BlobStore, xlsx bool, j domain.DocumentJournal) *Pipeline {
	return NewPipeline(PipelineConfig{Extractor: ex, Store: store, ExportXLSX: xlsx, Journal: j, Now: fixedNow, Logger: testLogger()})
}

func TestPipeline_WritesJSONAndCSV(t *testing.T) {
	ex := &fakeExtractor{rec: recognition()}
	store := newMemoryStore()
	j := &fakeDocJournal{}
	p := newTestPipeline(ex, store, false, j)

	res, err := p.Process(context.Background(), domain.StorageEvent{Bucket: "in", Name: "scan.PNG"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if ex.location != "gs://in/scan.PNG" || ex.mimeType != "image/png" {
		t.Errorf("unexpected extractor call %s %s", ex.location, ex.mimeType)
	}
	if res.Records != 2 {
		t.Errorf("expected 2 records, got %d", res.Records)
	}

	want := []string{"2025-06-01_13-05-09_scan.PNG.csv", "2025-06-01_13-05-09_scan.PNG.json"}
	if got := store.names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected objects %v", got)
	}
	if string(store.objects[want[1]]) != `{"text":"x"}` {
		t.Errorf("raw result not stored verbatim")
	}
	if !strings.HasPrefix(string(store.objects[want[0]]), "type,value,confidence,page\n") {
		t.Errorf("csv missing header: %q", store.objects[want[0]])
	}
	if store.types[want[1]] != "application/json" {
		t.Errorf("unexpected json content type %s", store.types[want[1]])
	}
	if len(j.entries) != 1 || !j.entries[0].Success || j.entries[0].Records != 2 {
		t.Errorf("unexpected journal %+v", j.entries)
	}
}

func TestPipeline_NoRecordsSkipsCSV(t *testing.T) {
	ex := &fakeExtractor{rec: &domain.Recognition{Raw: []byte(`{}`)}}
	store := newMemoryStore()
	p := newTestPipeline(ex, store, true, nil)

	if _, err := p.Process(context.Background(), domain.StorageEvent{Bucket: "in", Name: "blank.pdf"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := store.names(); len(got) != 1 || !strings.HasSuffix(got[0], ".json") {
		t.Fatalf("expected only the json object, got %v", got)
	}
}

func TestPipeline_XLSXExport(t *testing.T) {
	store := newMemoryStore()
	p := newTestPipeline(&fakeExtractor{rec: recognition()}, store, true, nil)

	res, err := p.Process(context.Background(), domain.StorageEvent{Bucket: "in", Name: "a.pdf"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.Objects) != 3 {
		t.Fatalf("expected json, csv and xlsx, got %v", res.Objects)
	}
	xlsx := store.objects["2025-06-01_13-05-09_a.pdf.xlsx"]
	if !bytes.HasPrefix(xlsx, []byte("PK")) {
		t.Errorf("xlsx export is not a zip archive")
	}
}

func TestPipeline_Errors(t *testing.T) {
	p := newTestPipeline(&fakeExtractor{}, newMemoryStore(), false, nil)
	if _, err := p.Process(context.Background(), domain.StorageEvent{Name: "a.pdf"}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}

	j := &fakeDocJournal{}
	p = newTestPipeline(&fakeExtractor{err: errors.New("quota exceeded")}, newMemoryStore(), false, j)
	_, err := p.Process(context.Background(), domain.StorageEvent{Bucket: "b", Name: "a.pdf"})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected wrapped extractor error, got %v", err)
	}
	if len(j.entries) != 1 || j.entries[0].Success {
		t.Errorf("failure not journaled: %+v", j.entries)
	}

	store := newMemoryStore()
	store.failOn = ".csv"
	p = newTestPipeline(&fakeExtractor{rec: recognition()}, store, false, nil)
	if _, err := p.Process(context.Background(), domain.StorageEvent{Bucket: "b", Name: "a.pdf"}); err == nil {
		t.Error("expected upload failure to surface")
	}
}

func TestPipeline_ProcessFile(t *testing.T) {
	ex := &fakeExtractor{rec: recognition()}
	store := newMemoryStore()
	p := newTestPipeline(ex, store, false, nil)

	res, err := p.ProcessFile(context.Background(), "/tmp/in/receipt.jpg")
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if ex.location != "/tmp/in/receipt.jpg" || ex.mimeType != "image/jpeg" {
		t.Errorf("unexpected extractor call %s %s", ex.location, ex.mimeType)
	}
	if res.Objects[0] != "2025-06-01_13-05-09_receipt.jpg.json" {
		t.Errorf("unexpected object name %s", res.Objects[0])
	}
}

func newTestServer(p *Pipeline) http.Handler {
	return NewServer(ServerConfig{Pipeline: p, Logger: testLogger()}).Handler()
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rr
}

func TestServer_Trigger(t *testing.T) {
	store := newMemoryStore()
	h := newTestServer(newTestPipeline(&fakeExtractor{rec: recognition()}, store, false, nil))

	rr := post(h, `{"bucket":"in","name":"a.pdf"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Records != 2 || len(res.Objects) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestServer_BadRequests(t *testing.T) {
	h := newTestServer(newTestPipeline(&fakeExtractor{rec: recognition()}, newMemoryStore(), false, nil))
	for _, body := range []string{`{"bucket":"in"}`, `{"name":"a.pdf"}`, `not json`} {
		if rr := post(h, body); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestServer_PipelineFailure(t *testing.T) {
	h := newTestServer(newTestPipeline(&fakeExtractor{err: errors.New("boom")}, newMemoryStore(), false, nil))
	if rr := post(h, `{"bucket":"in","name":"a.pdf"}`); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestServer_HealthAndMethods(t *testing.T) {
	h := newTestServer(newTestPipeline(&fakeExtractor{}, newMemoryStore(), false, nil))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "healthy") {
		t.Errorf("unexpected health response %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

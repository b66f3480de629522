package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"linedoc/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// timeline records the order of calls across fakes.
type timeline struct {
	mu     sync.Mutex
	events []string
}

func (t *timeline) add(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, fmt.Sprintf(format, args...))
}

func (t *timeline) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

type sentMessage struct {
	Kind   string // reply | push
	Token  string
	To     string
	Text   string
	UserID string
}

type mockNotifier struct {
	tl   *timeline
	mu   sync.Mutex
	sent []sentMessage
}

func (m *mockNotifier) Reply(ctx context.Context, token, text, userID string) {
	m.mu.Lock()
	m.sent = append(m.sent, sentMessage{Kind: "reply", Token: token, Text: text, UserID: userID})
	m.mu.Unlock()
	if m.tl != nil {
		m.tl.add("reply")
	}
}

func (m *mockNotifier) Push(ctx context.Context, to, text string) {
	m.mu.Lock()
	m.sent = append(m.sent, sentMessage{Kind: "push", To: to, Text: text})
	m.mu.Unlock()
	if m.tl != nil {
		m.tl.add("push")
	}
}

func (m *mockNotifier) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

type mockFetcher struct {
	tl       *timeline
	download domain.Download
	err      error
	requests []domain.ContentRequest
}

func (m *mockFetcher) Download(ctx context.Context, req domain.ContentRequest) (domain.Download, error) {
	m.requests = append(m.requests, req)
	if m.tl != nil {
		m.tl.add("download")
	}
	return m.download, m.err
}

type mockJournal struct {
	entries []domain.DownloadEntry
	err     error
}

func (m *mockJournal) RecordDownload(ctx context.Context, e domain.DownloadEntry) error {
	m.entries = append(m.entries, e)
	return m.err
}

func (m *mockJournal) RecentDownloads(ctx context.Context, limit int) ([]domain.DownloadEntry, error) {
	return m.entries, nil
}

func (m *mockJournal) Close() error { return nil }

// recordingHandlers counts invocations and can be told to fail or panic.
type recordingHandlers struct {
	mu      sync.Mutex
	calls   []string
	failOn  string
	panicOn string
}

func (r *recordingHandlers) record(name string) error {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
	if name == r.panicOn {
		panic("boom in " + name)
	}
	if name == r.failOn {
		return errors.New("failed " + name)
	}
	return nil
}

func (r *recordingHandlers) HandleText(ctx context.Context, ev domain.InboundEvent) error {
	return r.record("text")
}
func (r *recordingHandlers) HandleFile(ctx context.Context, ev domain.InboundEvent) error {
	return r.record("file")
}
func (r *recordingHandlers) HandleImage(ctx context.Context, ev domain.InboundEvent) error {
	return r.record("image")
}
func (r *recordingHandlers) HandleFollow(ctx context.Context, ev domain.InboundEvent) error {
	return r.record("follow")
}
func (r *recordingHandlers) HandleUnfollow(ctx context.Context, ev domain.InboundEvent) error {
	return r.record("unfollow")
}

func (r *recordingHandlers) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

package line

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"linedoc/internal/domain"
	"linedoc/internal/metrics"
)

const (
	timestampLayout = "20060102_150405"
	imageBaseName   = "LINE_Image"
	maxNameClaims   = 1000
)

// Tier is one endpoint variant of the content fallback chain.
type Tier struct {
	Name    string
	Method  string
	Suffix  string
	Timeout time.Duration
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Client         *Client
	DownloadDir    string
	MaxBytes       int64
	HeaderTimeout  time.Duration
	ContentTimeout time.Duration
	// Now stamps file names; defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Fetcher downloads message content, falling through the tiers until one
// produces a non-empty file on disk.
type Fetcher struct {
	client        *Client
	dir           string
	maxBytes      int64
	headerTimeout time.Duration
	tiers         []Tier
	now           func() time.Time
	logger        *slog.Logger
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 300 << 20
	}
	if cfg.HeaderTimeout <= 0 {
		cfg.HeaderTimeout = 30 * time.Second
	}
	if cfg.ContentTimeout <= 0 {
		cfg.ContentTimeout = 60 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		client:        cfg.Client,
		dir:           cfg.DownloadDir,
		maxBytes:      cfg.MaxBytes,
		headerTimeout: cfg.HeaderTimeout,
		tiers: []Tier{
			{Name: "content", Method: http.MethodGet, Timeout: cfg.ContentTimeout},
			{Name: "stream", Method: http.MethodGet, Suffix: "/stream", Timeout: cfg.ContentTimeout},
			{Name: "post", Method: http.MethodPost, Timeout: cfg.ContentTimeout},
		},
		now:    cfg.Now,
		logger: cfg.Logger.With("component", "fetcher"),
	}
}

// Tiers returns the fallback chain in the order it is tried.
func (f *Fetcher) Tiers() []Tier {
	return append([]Tier(nil), f.tiers...)
}

// Download fetches the content behind req.MessageID. The first tier that
// writes a non-empty file wins; if every tier fails the returned error wraps
// the last failure.
func (f *Fetcher) Download(ctx context.Context, req domain.ContentRequest) (dl domain.Download, err error) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("panic during download", "message_id", req.MessageID, "panic", r)
			dl, err = domain.Download{}, fmt.Errorf("download %s: panic: %v", req.MessageID, r)
		}
	}()

	if req.MessageID == "" {
		return domain.Download{}, errors.New("download: empty message id")
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return domain.Download{}, fmt.Errorf("create download dir: %w", err)
	}

	start := time.Now()
	defer func() { metrics.DownloadLatency.Observe(time.Since(start).Seconds()) }()

	f.probeHeader(ctx, req.MessageID)

	var lastErr error
	for i, tier := range f.tiers {
		dl, err := f.attempt(ctx, tier, req)
		if err == nil {
			metrics.FetchAttempt(tier.Name, "ok").Inc()
			f.logger.Info("content downloaded",
				"message_id", req.MessageID,
				"tier", tier.Name,
				"attempt", i+1,
				"path", dl.Path,
				"size", dl.Size,
			)
			return dl, nil
		}
		metrics.FetchAttempt(tier.Name, "failed").Inc()
		lastErr = err
		f.logger.Warn("content tier failed, trying next",
			"message_id", req.MessageID,
			"tier", tier.Name,
			"attempt", i+1,
			"error", err,
		)
	}
	return domain.Download{}, fmt.Errorf("download %s: all %d tiers failed: %w", req.MessageID, len(f.tiers), lastErr)
}

// probeHeader asks the data API about the content for diagnostics only.
func (f *Fetcher) probeHeader(ctx context.Context, messageID string) {
	ctx, cancel := context.WithTimeout(ctx, f.headerTimeout)
	defer cancel()

	resp, err := f.client.do(ctx, http.MethodGet, f.client.contentURL(messageID, "/header"), nil, "")
	if err != nil {
		f.logger.Debug("content header probe failed", "message_id", messageID, "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	f.logger.Debug("content header probe",
		"message_id", messageID,
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
		"content_length", resp.Header.Get("Content-Length"),
	)
}

func (f *Fetcher) attempt(ctx context.Context, tier Tier, req domain.ContentRequest) (domain.Download, error) {
	ctx, cancel := context.WithTimeout(ctx, tier.Timeout)
	defer cancel()

	resp, err := f.client.do(ctx, tier.Method, f.client.contentURL(req.MessageID, tier.Suffix), nil, "")
	if err != nil {
		return domain.Download{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return domain.Download{}, parseAPIError(resp.StatusCode, body)
	}

	tmp, err := os.CreateTemp(f.dir, ".linedoc-*.part")
	if err != nil {
		return domain.Download{}, fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := copyLimited(tmp, resp.Body, f.maxBytes)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return domain.Download{}, err
	}
	if n == 0 {
		return domain.Download{}, errors.New("empty response body")
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		if mt, err := mimetype.DetectFile(tmpPath); err == nil {
			contentType = mediaType(mt.String())
		}
	}

	name := f.now().Format(timestampLayout) + "_" + fileName(req, contentType)
	finalPath, err := claimPath(f.dir, name)
	if err != nil {
		return domain.Download{}, err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(finalPath)
		return domain.Download{}, fmt.Errorf("rename: %w", err)
	}
	keep = true

	info, err := os.Stat(finalPath)
	if err != nil {
		return domain.Download{}, fmt.Errorf("verify: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(finalPath)
		return domain.Download{}, errors.New("verify: written file is empty")
	}

	return domain.Download{
		Path:        finalPath,
		ContentType: contentType,
		Size:        info.Size(),
		Tier:        tier.Name,
	}, nil
}

// claimPath reserves a name in dir that no other download holds. A taken
// name gets a numeric suffix before its extension: a.jpg, a_2.jpg, a_3.jpg.
func claimPath(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxNameClaims; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		p := filepath.Join(dir, candidate)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("claim %s: %w", candidate, err)
		}
		f.Close()
		return p, nil
	}
	return "", fmt.Errorf("claim %s: %d names already taken", name, maxNameClaims)
}

func copyLimited(dst io.Writer, src io.Reader, maxBytes int64) (int64, error) {
	lr := &io.LimitedReader{R: src, N: maxBytes + 1}
	n, err := io.Copy(dst, lr)
	if err != nil {
		return n, fmt.Errorf("read body: %w", err)
	}
	if n > maxBytes {
		return n, fmt.Errorf("content exceeds %d byte limit", maxBytes)
	}
	return n, nil
}

func mediaType(contentType string) string {
	mt := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// fileName picks the on-disk name (without timestamp) for a download.
func fileName(req domain.ContentRequest, contentType string) string {
	if req.Kind == domain.ContentImage {
		return imageBaseName + imageExtension(contentType)
	}
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(req.FileName), `\`, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		if mt := mimetype.Lookup(contentType); mt != nil && mt.Extension() != "" {
			return "file" + mt.Extension()
		}
		return "file.bin"
	}
	return name
}

func imageExtension(contentType string) string {
	switch {
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return ".jpg"
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}

package webhook

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"linedoc/internal/domain"
)

// HandlerConfig wires the collaborators of EventHandlers.
type HandlerConfig struct {
	Notifier domain.Notifier
	Fetcher  domain.ContentFetcher
	// Journal is optional.
	Journal domain.DownloadJournal
	Logger  *slog.Logger
}

// EventHandlers implements Handlers with the two-phase protocol: acknowledge
// with the reply token at once, do the work, then push the outcome.
type EventHandlers struct {
	notifier domain.Notifier
	fetcher  domain.ContentFetcher
	journal  domain.DownloadJournal
	logger   *slog.Logger
}

func NewEventHandlers(cfg HandlerConfig) *EventHandlers {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &EventHandlers{
		notifier: cfg.Notifier,
		fetcher:  cfg.Fetcher,
		journal:  cfg.Journal,
		logger:   cfg.Logger.With("component", "handlers"),
	}
}

func (h *EventHandlers) HandleText(ctx context.Context, ev domain.InboundEvent) error {
	h.logger.Info("text message received", "user", ev.Source.UserID, "text_len", len(ev.Message.Text))
	h.notifier.Reply(ctx, ev.ReplyToken, echoText(ev.Message.Text), ev.Source.UserID)
	return nil
}

func (h *EventHandlers) HandleFollow(ctx context.Context, ev domain.InboundEvent) error {
	h.logger.Info("new follower", "user", ev.Source.UserID)
	h.notifier.Reply(ctx, ev.ReplyToken, welcomeText, ev.Source.UserID)
	return nil
}

func (h *EventHandlers) HandleUnfollow(ctx context.Context, ev domain.InboundEvent) error {
	h.logger.Info("follower left", "user", ev.Source.UserID)
	return nil
}

func (h *EventHandlers) HandleFile(ctx context.Context, ev domain.InboundEvent) error {
	msg := ev.Message
	name := filepath.Base(msg.FileName)
	h.logger.Info("file message received", "message_id", msg.ID, "file", name, "declared_size", msg.FileSize, "sent_at", ev.Time())

	h.notifier.Reply(ctx, ev.ReplyToken, fileStartText(msg.FileName), ev.Source.UserID)

	dl, err := h.fetcher.Download(ctx, domain.ContentRequest{
		MessageID: msg.ID,
		Kind:      domain.ContentFile,
		FileName:  msg.FileName,
	})
	h.record(ctx, ev, domain.ContentFile, dl, err)

	var result string
	if err != nil {
		h.logger.Error("file download failed", "message_id", msg.ID, "error", err)
		result = fileFailedText(msg.FileName)
	} else {
		result = fileDoneText(msg.FileName, dl.Size, dl.Path)
	}
	h.notifier.Push(ctx, ev.Source.PushTarget(), result)
	return nil
}

func (h *EventHandlers) HandleImage(ctx context.Context, ev domain.InboundEvent) error {
	msg := ev.Message
	h.logger.Info("image message received", "message_id", msg.ID, "sent_at", ev.Time())

	h.notifier.Reply(ctx, ev.ReplyToken, imageStartText, ev.Source.UserID)

	dl, err := h.fetcher.Download(ctx, domain.ContentRequest{
		MessageID: msg.ID,
		Kind:      domain.ContentImage,
	})
	h.record(ctx, ev, domain.ContentImage, dl, err)

	var result string
	if err != nil {
		h.logger.Error("image download failed", "message_id", msg.ID, "error", err)
		result = imageFailedText
	} else {
		result = imageDoneText(filepath.Base(dl.Path), dl.Path)
	}
	h.notifier.Push(ctx, ev.Source.PushTarget(), result)
	return nil
}

// record writes the download outcome to the journal when one is configured.
// Journal errors never affect the user-visible flow.
func (h *EventHandlers) record(ctx context.Context, ev domain.InboundEvent, kind domain.ContentKind, dl domain.Download, dlErr error) {
	if h.journal == nil {
		return
	}
	entry := domain.DownloadEntry{
		MessageID: ev.Message.ID,
		Kind:      string(kind),
		FileName:  ev.Message.FileName,
		UserID:    ev.Source.UserID,
		Path:      dl.Path,
		Size:      dl.Size,
		Tier:      dl.Tier,
		Success:   dlErr == nil,
		CreatedAt: time.Now(),
	}
	if dlErr != nil {
		entry.Error = dlErr.Error()
	}
	if err := h.journal.RecordDownload(ctx, entry); err != nil {
		h.logger.Warn("journal write failed", "message_id", ev.Message.ID, "error", err)
	}
}

package domain

import "context"

// ContentKind selects how downloaded content is named on disk.
type ContentKind string

const (
	ContentFile  ContentKind = "file"
	ContentImage ContentKind = "image"
)

// ContentRequest identifies the binary content behind a message.
type ContentRequest struct {
	MessageID string
	Kind      ContentKind
	FileName  string // declared name, file messages only
}

// Download is a successfully fetched and verified local copy.
type Download struct {
	Path        string
	ContentType string
	Size        int64
	Tier        string // which endpoint variant succeeded
}

// ContentFetcher retrieves message content from the messaging provider.
// Failures come back as errors; implementations never panic past the call.
type ContentFetcher interface {
	Download(ctx context.Context, req ContentRequest) (Download, error)
}

// Notifier acknowledges events and delivers follow-up notifications.
// Delivery is best-effort: failures are logged by the implementation and
// never reported to the caller.
type Notifier interface {
	Reply(ctx context.Context, replyToken, text, userID string)
	Push(ctx context.Context, to, text string)
}

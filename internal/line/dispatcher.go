package line

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"linedoc/internal/metrics"
)

// SendResult classifies the outcome of a reply or push call.
type SendResult int

const (
	SendOK SendResult = iota
	SendInvalidToken
	SendFailed
)

func (r SendResult) String() string {
	switch r {
	case SendOK:
		return "ok"
	case SendInvalidToken:
		return "invalid_token"
	default:
		return "failed"
	}
}

const invalidReplyTokenMessage = "invalid reply token"

// classify maps a Messaging API answer onto a SendResult. Reply tokens that
// expired or were already used come back as 400 with a JSON message naming
// the token; everything else non-2xx is a plain failure.
func classify(status int, body []byte) (SendResult, error) {
	if status >= 200 && status < 300 {
		return SendOK, nil
	}
	apiErr := parseAPIError(status, body)
	if status == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), invalidReplyTokenMessage) {
		return SendInvalidToken, apiErr
	}
	return SendFailed, apiErr
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Client *Client
	// Timeout bounds a single reply or push call.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Dispatcher sends acknowledgments and notifications. It implements
// domain.Notifier: delivery problems are logged, never returned.
type Dispatcher struct {
	client  *Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		client:  cfg.Client,
		timeout: cfg.Timeout,
		logger:  cfg.Logger.With("component", "dispatcher"),
	}
}

// Reply acknowledges an event. The reply token is used when present; a
// rejected token falls back to one push to userID. Without a token the text
// is pushed straight to userID, and with neither it is dropped.
func (d *Dispatcher) Reply(ctx context.Context, replyToken, text, userID string) {
	if replyToken == "" {
		if userID == "" {
			d.logger.Warn("reply dropped: no reply token or user id", "text_len", len(text))
			return
		}
		d.Push(ctx, userID, text)
		return
	}

	result, err := d.SendReply(ctx, replyToken, text)
	switch result {
	case SendOK:
		d.logger.Debug("reply sent", "text_len", len(text))
	case SendInvalidToken:
		if userID == "" {
			d.logger.Warn("reply token rejected, no user id for push", "error", err)
			return
		}
		d.logger.Info("reply token rejected, falling back to push", "user", userID)
		d.Push(ctx, userID, text)
	default:
		d.logger.Error("reply failed", "error", err)
	}
}

// Push delivers text to a user, group or room id.
func (d *Dispatcher) Push(ctx context.Context, to, text string) {
	if to == "" {
		d.logger.Warn("push dropped: empty recipient", "text_len", len(text))
		return
	}
	result, err := d.SendPush(ctx, to, text)
	if result != SendOK {
		d.logger.Error("push failed", "to", to, "result", result.String(), "error", err)
		return
	}
	d.logger.Debug("push sent", "to", to, "text_len", len(text))
}

// SendReply performs one reply call and reports its classified outcome.
func (d *Dispatcher) SendReply(ctx context.Context, replyToken, text string) (SendResult, error) {
	return d.send(ctx, "reply", "/v2/bot/message/reply", replyRequest{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: text}},
	})
}

// SendPush performs one push call and reports its classified outcome.
func (d *Dispatcher) SendPush(ctx context.Context, to, text string) (SendResult, error) {
	if to == "" {
		return SendFailed, errors.New("push: empty recipient")
	}
	return d.send(ctx, "push", "/v2/bot/message/push", pushRequest{
		To:       to,
		Messages: []textMessage{{Type: "text", Text: text}},
	})
}

func (d *Dispatcher) send(ctx context.Context, kind, path string, payload any) (result SendResult, err error) {
	defer func() {
		metrics.Send(kind, result.String()).Inc()
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	status, body, err := d.client.postJSON(ctx, path, payload)
	if err != nil {
		return SendFailed, err
	}
	return classify(status, body)
}

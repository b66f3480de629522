// Package webhook receives LINE webhook deliveries and turns each event into
// an acknowledgment, an optional content download and a follow-up push.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"linedoc/internal/domain"
	"linedoc/internal/metrics"
)

// Handlers is the set of per-event behaviours the router dispatches to.
type Handlers interface {
	HandleText(ctx context.Context, ev domain.InboundEvent) error
	HandleFile(ctx context.Context, ev domain.InboundEvent) error
	HandleImage(ctx context.Context, ev domain.InboundEvent) error
	HandleFollow(ctx context.Context, ev domain.InboundEvent) error
	HandleUnfollow(ctx context.Context, ev domain.InboundEvent) error
}

const (
	respOK    = "OK"
	respError = "Error"
)

// Router classifies webhook events and dispatches them to Handlers.
type Router struct {
	handlers Handlers
	logger   *slog.Logger
}

func NewRouter(h Handlers, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{handlers: h, logger: logger.With("component", "router")}
}

// Route handles one webhook body and returns the HTTP status and text to
// answer with. Every event in the batch is attempted; the answer is an error
// if the body is not JSON or any event failed.
func (r *Router) Route(ctx context.Context, body []byte) (int, string) {
	if len(bytes.TrimSpace(body)) == 0 {
		r.logger.Debug("empty webhook body")
		return http.StatusOK, respOK
	}

	var payload domain.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		r.logger.Error("malformed webhook payload", "error", err)
		return http.StatusInternalServerError, respError
	}
	if len(payload.Events) == 0 {
		r.logger.Debug("webhook without events", "destination", payload.Destination)
		return http.StatusOK, respOK
	}

	failed := 0
	for i, ev := range payload.Events {
		if err := r.dispatch(ctx, ev); err != nil {
			failed++
			r.logger.Error("event handling failed",
				"index", i,
				"type", ev.Type,
				"error", err,
			)
		}
	}

	if failed > 0 {
		r.logger.Warn("webhook batch finished with failures", "events", len(payload.Events), "failed", failed)
		return http.StatusInternalServerError, respError
	}
	return http.StatusOK, respOK
}

// dispatch runs the handler for one event, converting a panic into an error.
func (r *Router) dispatch(ctx context.Context, ev domain.InboundEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	metrics.Event(string(ev.Type)).Inc()

	switch ev.Type {
	case domain.EventMessage:
		return r.dispatchMessage(ctx, ev)
	case domain.EventFollow:
		return r.handlers.HandleFollow(ctx, ev)
	case domain.EventUnfollow:
		return r.handlers.HandleUnfollow(ctx, ev)
	default:
		r.logger.Info("unhandled event type", "type", ev.Type)
		return nil
	}
}

func (r *Router) dispatchMessage(ctx context.Context, ev domain.InboundEvent) error {
	if ev.Message == nil {
		r.logger.Warn("message event without message body")
		return nil
	}
	switch ev.Message.Type {
	case domain.MessageText:
		return r.handlers.HandleText(ctx, ev)
	case domain.MessageFile:
		return r.handlers.HandleFile(ctx, ev)
	case domain.MessageImage:
		return r.handlers.HandleImage(ctx, ev)
	default:
		r.logger.Info("unhandled message type", "type", ev.Message.Type, "message_id", ev.Message.ID)
		return nil
	}
}

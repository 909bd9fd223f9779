// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/likey/middleware"
)

// maxUpdateSize bounds webhook bodies. Telegram updates are far smaller.
const maxUpdateSize = 1 << 20

// UpdateProcessor is satisfied by *worker.Processor.
type UpdateProcessor interface {
	Process(ctx context.Context, raw []byte) error
}

type WebhookHandler struct {
	proc UpdateProcessor
}

func NewWebhookHandler(proc UpdateProcessor) *WebhookHandler {
	return &WebhookHandler{proc: proc}
}

// Receive handles POST /webhook
// Answers 200 once the update is handled or deliberately dropped, and 500
// when the store asks for a retry so the update is delivered again.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	raw, err := middleware.ReadBody(r, maxUpdateSize)
	if errors.Is(err, middleware.ErrBodyTooLarge) {
		middleware.ErrorResponse(w, http.StatusRequestEntityTooLarge, "Update too large")
		return
	}
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Could not read body")
		return
	}

	if err := h.proc.Process(r.Context(), raw); err != nil {
		slog.Warn("update will be redelivered", "request_id", middleware.RequestID(r.Context()), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Temporary failure, retry")
		return
	}

	w.WriteHeader(http.StatusOK)
}

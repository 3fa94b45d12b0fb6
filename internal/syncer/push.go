package syncer

import (
	"context"

	"github.com/tama-audit/auditor/internal/logging"
)

// Notification fields shown to the user. Icon and badge are fixed
// application assets.
type Notification struct {
	Title string
	Body  string
	Icon  string
	Badge string
}

const (
	notificationTitle = "Tama Auditor"
	fallbackBody      = "Nouvelle notification"
	notificationIcon  = "/icon-192.png"
)

// Notifier displays user-visible notifications. Implemented by the host UI;
// the CLI ships a terminal-backed implementation.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
	Dismiss(ctx context.Context, n Notification) error
}

// Opener focuses or opens a top-level application view.
type Opener interface {
	Open(ctx context.Context, path string) error
}

// PushHandler turns server-pushed payloads into user notifications.
type PushHandler struct {
	notifier Notifier
	opener   Opener
	log      logging.Logger
}

func NewPushHandler(notifier Notifier, opener Opener, log logging.Logger) *PushHandler {
	return &PushHandler{notifier: notifier, opener: opener, log: log.With("component", "push")}
}

// HandlePush shows a notification for the raw push payload. An absent
// payload gets the fixed fallback body; a present one is used verbatim.
// Display failures are logged, never propagated — there is no error surface
// for push delivery.
func (h *PushHandler) HandlePush(ctx context.Context, payload []byte) Notification {
	body := fallbackBody
	if len(payload) > 0 {
		body = string(payload)
	}

	n := Notification{
		Title: notificationTitle,
		Body:  body,
		Icon:  notificationIcon,
		Badge: notificationIcon,
	}
	if err := h.notifier.Show(ctx, n); err != nil {
		h.log.Warn(ctx, "notification display failed", "error", err)
	}
	return n
}

// HandleNotificationClick dismisses the notification and focuses the
// application's top-level view.
func (h *PushHandler) HandleNotificationClick(ctx context.Context, n Notification) {
	if err := h.notifier.Dismiss(ctx, n); err != nil {
		h.log.Warn(ctx, "notification dismiss failed", "error", err)
	}
	if err := h.opener.Open(ctx, "/"); err != nil {
		h.log.Warn(ctx, "open application view failed", "error", err)
	}
}

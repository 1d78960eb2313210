// Package notify adapts the WatcherManager's "notify user" obligations
// (new text, still-working ping, done indicator, image offer) onto the
// chat-surface contract, so the watcher package itself never imports a
// concrete bot client.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
)

// Image is one image surfaced by a TurnWatcher for the image-offer flow.
type Image struct {
	MediaType string
	Data      []byte
}

// Notifier is the out-of-band UI collaborator the WatcherManager
// composes around caller-supplied TurnWatcher callbacks.
type Notifier struct {
	Surface chatsurface.Surface
}

// New builds a Notifier over surface.
func New(surface chatsurface.Surface) *Notifier {
	return &Notifier{Surface: surface}
}

// Text delivers one assistant text block to the chat.
func (n *Notifier) Text(ctx context.Context, chatID, text string) {
	if n == nil || n.Surface == nil || text == "" {
		return
	}
	if _, err := n.Surface.SendText(ctx, chatID, text); err != nil {
		slog.Warn("notify: send text failed", "chat_id", chatID, "error", err)
	}
}

// Ping tells the user the agent is still working.
func (n *Notifier) Ping(ctx context.Context, chatID string) {
	if n == nil || n.Surface == nil {
		return
	}
	if _, err := n.Surface.SendText(ctx, chatID, "Still working…"); err != nil {
		slog.Warn("notify: send ping failed", "chat_id", chatID, "error", err)
	}
}

// Done tells the user the turn completed with no text reply, unless
// suppressed (a text reply was already delivered this watch).
func (n *Notifier) Done(ctx context.Context, chatID string, suppressed bool) {
	if n == nil || n.Surface == nil || suppressed {
		return
	}
	if _, err := n.Surface.SendText(ctx, chatID, "Done."); err != nil {
		slog.Warn("notify: send done failed", "chat_id", chatID, "error", err)
	}
}

// OfferImages announces how many images are staged and points the user
// at /images to retrieve them. key is not shown in the message.
func (n *Notifier) OfferImages(ctx context.Context, chatID, key string, images []Image) {
	if n == nil || n.Surface == nil || len(images) == 0 {
		return
	}
	text := fmt.Sprintf("%d image(s) ready. Send /images to view them.", len(images))
	if _, err := n.Surface.SendText(ctx, chatID, text); err != nil {
		slog.Warn("notify: offer images failed", "chat_id", chatID, "error", err)
	}
}

package coordinator

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
	"github.com/vanducng/goclaw-bridge/internal/classify"
)

// HandleCallback dispatches one inline-button tap. Every branch
// answers the callback so the chat platform clears its spinner, per
// the chat-surface contract.
func (c *Coordinator) HandleCallback(ctx context.Context, cb chatsurface.Callback) {
	if !c.Allowed(cb.ChatID) {
		return
	}
	defer func() {
		if err := c.Surface.AnswerCallback(ctx, cb.ID, ""); err != nil {
			slog.Warn("coordinator: answer callback failed", "error", err)
		}
	}()

	switch {
	case strings.HasPrefix(cb.Data, "session:attach:"):
		c.attachSession(ctx, cb.ChatID, strings.TrimPrefix(cb.Data, "session:attach:"), false)
	case strings.HasPrefix(cb.Data, "session:launch:"):
		c.attachSession(ctx, cb.ChatID, strings.TrimPrefix(cb.Data, "session:launch:"), true)
	case strings.HasPrefix(cb.Data, "detach:close:"):
		paneID := strings.TrimPrefix(cb.Data, "detach:close:")
		if err := c.Locator.Close(ctx, paneID); err != nil {
			slog.Warn("coordinator: detach close window failed", "error", err)
		}
	case cb.Data == "detach:keep":
		// No action; the window stays open.
	case cb.Data == "yn:yes":
		c.HandleText(ctx, cb.ChatID, "yes")
	case cb.Data == "yn:no":
		c.HandleText(ctx, cb.ChatID, "no")
	case cb.Data == "enter:go":
		c.HandleText(ctx, cb.ChatID, "")
	case strings.HasPrefix(cb.Data, "plan:"):
		idx, err := strconv.Atoi(strings.TrimPrefix(cb.Data, "plan:"))
		if err != nil || idx < 0 || idx >= len(classify.PlanChoices) {
			return
		}
		c.HandleText(ctx, cb.ChatID, classify.PlanChoices[idx])
	case strings.HasPrefix(cb.Data, "perm:approve:"):
		c.resolvePermission(ctx, strings.TrimPrefix(cb.Data, "perm:approve:"), true)
	case strings.HasPrefix(cb.Data, "perm:deny:"):
		c.resolvePermission(ctx, strings.TrimPrefix(cb.Data, "perm:deny:"), false)
	}
}

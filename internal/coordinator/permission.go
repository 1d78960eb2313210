package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
	"github.com/vanducng/goclaw-bridge/internal/permission"
)

// OnPermissionRequest is wired as Permission.Bridge.OnRequest: it
// surfaces the hook's request as an Approve/Deny prompt in the
// allowlisted chat.
func (c *Coordinator) OnPermissionRequest(ev permission.Event) {
	chatID := c.Config.AllowedChatID
	if chatID == "" {
		return
	}

	text := fmt.Sprintf("Permission requested: %s\n%s", ev.ToolName, ev.ToolInput)
	if ev.ToolCommand != "" {
		text = fmt.Sprintf("Permission requested: %s\n%s", ev.ToolName, ev.ToolCommand)
	}

	kb := chatsurface.Keyboard{{
		{Text: "Approve", Data: "perm:approve:" + ev.RequestID},
		{Text: "Deny", Data: "perm:deny:" + ev.RequestID},
	}}
	if _, err := c.Surface.SendTextWithKeyboard(context.Background(), chatID, text, kb); err != nil {
		slog.Warn("coordinator: permission prompt failed", "error", err)
	}
}

// resolvePermission writes the response file and additionally sends a
// keystroke into the attached pane, since some agent prompts only
// consume a keypress and never poll the response file.
func (c *Coordinator) resolvePermission(ctx context.Context, requestID string, approve bool) {
	action := permission.ActionDeny
	key := "Escape"
	if approve {
		action = permission.ActionApprove
		key = "1"
	}

	if err := c.Permission.Respond(requestID, action); err != nil {
		slog.Warn("coordinator: permission respond failed", "error", err)
	}

	attached, ok := c.Marker.Get()
	if !ok {
		return
	}
	found := c.Locator.Find(ctx, attached.Cwd)
	if !found.Found {
		return
	}
	if err := c.Injector.SendKey(ctx, found.PaneID, key); err != nil {
		slog.Warn("coordinator: permission keystroke failed", "error", err)
	}
}

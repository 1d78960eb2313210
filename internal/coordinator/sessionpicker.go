package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
)

const sessionPickerPageSize = 8

// offerSessionPicker lists the currently running agent panes (deduped
// by cwd) alongside recently used sessions that no longer have a pane,
// and offers both as an inline button list. Tapping a running pane's
// button attaches immediately; tapping a paneless entry launches a new
// pane at that cwd before attaching.
func (c *Coordinator) offerSessionPicker(ctx context.Context, chatID string) {
	panes := c.Locator.List(ctx)
	runningCwds := make(map[string]bool, len(panes))
	for _, p := range panes {
		runningCwds[p.Cwd] = true
	}

	summaries := c.Index.ListSessions(0)
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Mtime.After(summaries[j].Mtime)
	})

	var rows [][]chatsurface.Button
	for i, s := range summaries {
		if i >= sessionPickerPageSize {
			break
		}
		label := s.ProjectName
		action := "attach"
		if !runningCwds[s.Cwd] {
			label += " (launch)"
			action = "launch"
		}
		rows = append(rows, []chatsurface.Button{{
			Text: label,
			Data: fmt.Sprintf("session:%s:%s", action, s.SessionID),
		}})
	}

	if len(rows) == 0 {
		c.reply(ctx, chatID, "no sessions found")
		return
	}

	if _, err := c.Surface.SendTextWithKeyboard(ctx, chatID, "Pick a session:", chatsurface.Keyboard(rows)); err != nil {
		slog.Warn("coordinator: session picker send failed", "error", err)
	}
}

// attachSession resolves sessionID's cwd via the index, writes the
// attached marker, and, if launch is true and no pane is currently
// running there, starts one first.
func (c *Coordinator) attachSession(ctx context.Context, chatID, sessionID string, launch bool) {
	summaries := c.Index.ListSessions(0)
	var match *struct {
		SessionID, Cwd, ProjectName string
	}
	for _, s := range summaries {
		if s.SessionID == sessionID {
			match = &struct{ SessionID, Cwd, ProjectName string }{s.SessionID, s.Cwd, s.ProjectName}
			break
		}
	}
	if match == nil {
		c.reply(ctx, chatID, "session no longer found")
		return
	}

	if launch {
		if found := c.Locator.Find(ctx, match.Cwd); !found.Found {
			if _, err := c.Locator.Launch(ctx, match.Cwd, match.ProjectName, false); err != nil {
				c.reply(ctx, chatID, "launch failed: "+err.Error())
				return
			}
		}
	}

	if err := c.Marker.Set(match.SessionID, match.Cwd); err != nil {
		c.reply(ctx, chatID, "could not attach: "+err.Error())
		return
	}
	c.reply(ctx, chatID, "attached to "+match.ProjectName)
}

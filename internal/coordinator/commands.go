package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
	"github.com/vanducng/goclaw-bridge/internal/media"
	"github.com/vanducng/goclaw-bridge/internal/transcript"
)

const polishVoiceOffFlag = "polish-voice-off"

// HandleCommand dispatches one inbound bot command. Commands from a chat
// outside the allowlist are dropped before any dispatch.
func (c *Coordinator) HandleCommand(ctx context.Context, cmd chatsurface.Command) {
	if !c.Allowed(cmd.ChatID) {
		return
	}

	switch cmd.Name {
	case "/sessions":
		c.offerSessionPicker(ctx, cmd.ChatID)
	case "/detach":
		c.Detach(ctx, cmd.ChatID)
	case "/status":
		c.reportStatus(ctx, cmd.ChatID)
	case "/summarize":
		c.summarize(ctx, cmd.ChatID)
	case "/compact":
		c.HandleText(ctx, cmd.ChatID, "/compact")
	case "/clear":
		c.HandleText(ctx, cmd.ChatID, "/clear")
	case "/close_session":
		c.closeSession(ctx, cmd.ChatID)
	case "/polishvoice":
		c.togglePolishVoice(ctx, cmd.ChatID)
	case "/images":
		c.offerImages(ctx, cmd.ChatID, strings.TrimSpace(cmd.Args))
	case "/timer":
		c.startTimerWizard(ctx, cmd.ChatID, strings.TrimSpace(cmd.Args))
	case "/model":
		c.HandleText(ctx, cmd.ChatID, "/model "+strings.TrimSpace(cmd.Args))
	case "/escape":
		c.sendEscape(ctx, cmd.ChatID)
	case "/restart":
		c.restart(ctx, cmd.ChatID)
	case "/help":
		c.reply(ctx, cmd.ChatID, helpText)
	default:
		c.reply(ctx, cmd.ChatID, "unknown command: "+cmd.Name)
	}
}

const helpText = `/sessions - pick or launch a session
/detach - detach from the current session
/status - show the attached session and pane
/summarize - summarize the attached session
/compact - ask the agent to compact its context
/clear - ask the agent to clear its context
/close_session - close the attached session's window
/polishvoice - toggle voice-transcript polishing
/images - resend staged images
/timer - schedule a recurring prompt
/model <name> - switch the agent's model
/escape - send an interrupt keystroke
/restart - relaunch the agent at the attached cwd
/help - show this message`

// PolishVoiceEnabled reports whether voice-transcript polishing is
// currently on (the flag file's absence is the "on" state).
func (c *Coordinator) PolishVoiceEnabled() bool {
	_, err := os.Stat(filepath.Join(c.Config.ConfigDir, polishVoiceOffFlag))
	return err != nil
}

func (c *Coordinator) togglePolishVoice(ctx context.Context, chatID string) {
	path := filepath.Join(c.Config.ConfigDir, polishVoiceOffFlag)
	if c.PolishVoiceEnabled() {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			c.reply(ctx, chatID, "could not disable polishing: "+err.Error())
			return
		}
		c.reply(ctx, chatID, "voice polishing: off")
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.reply(ctx, chatID, "could not enable polishing: "+err.Error())
		return
	}
	c.reply(ctx, chatID, "voice polishing: on")
}

func (c *Coordinator) reportStatus(ctx context.Context, chatID string) {
	attached, ok := c.Marker.Get()
	if !ok {
		c.reply(ctx, chatID, "no session attached")
		return
	}
	found := c.Locator.Find(ctx, attached.Cwd)
	if !found.Found {
		c.reply(ctx, chatID, fmt.Sprintf("attached to %s\ncwd: %s\nno pane running", attached.SessionID, attached.Cwd))
		return
	}
	c.reply(ctx, chatID, fmt.Sprintf("attached to %s\ncwd: %s\npane: %s\nwatching: %v", attached.SessionID, attached.Cwd, found.PaneID, c.Manager.IsActive()))
}

func (c *Coordinator) summarize(ctx context.Context, chatID string) {
	attached, ok := c.Marker.Get()
	if !ok {
		c.reply(ctx, chatID, "no session attached")
		return
	}
	path, ok := c.Index.GetSessionFilePath(attached.SessionID)
	if !ok {
		c.reply(ctx, chatID, "session transcript not found")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.reply(ctx, chatID, "could not read transcript")
		return
	}
	msgs := transcript.Read(splitLines(data)).AllMessages
	result := strings.Join(msgs, "\n\n")
	if result == "" {
		c.reply(ctx, chatID, "nothing to summarize yet")
		return
	}
	if c.Summary == nil {
		c.reply(ctx, chatID, result)
		return
	}
	summary, err := c.Summary.Summarize(ctx, result)
	if err != nil {
		slog.Warn("coordinator: summarize failed, falling back to first message", "error", err)
		c.reply(ctx, chatID, msgs[0])
		return
	}
	c.reply(ctx, chatID, summary)
}

func (c *Coordinator) closeSession(ctx context.Context, chatID string) {
	attached, ok := c.Marker.Get()
	if !ok {
		c.reply(ctx, chatID, "no session attached")
		return
	}
	c.Manager.Clear()
	found := c.Locator.Find(ctx, attached.Cwd)
	if found.Found {
		if err := c.Locator.Close(ctx, found.PaneID); err != nil {
			slog.Warn("coordinator: close window failed", "error", err)
		}
	}
	if err := c.Marker.Clear(); err != nil {
		slog.Warn("coordinator: clear marker failed", "error", err)
	}
	c.reply(ctx, chatID, "session closed")
}

func (c *Coordinator) sendEscape(ctx context.Context, chatID string) {
	attached, ok := c.Marker.Get()
	if !ok {
		c.reply(ctx, chatID, "no session attached")
		return
	}
	found := c.Locator.Find(ctx, attached.Cwd)
	if !found.Found {
		c.reply(ctx, chatID, "no pane running at this session")
		return
	}
	if err := c.Injector.SendInterrupt(ctx, found.PaneID); err != nil {
		c.reply(ctx, chatID, "escape failed: "+err.Error())
		return
	}
	c.reply(ctx, chatID, "sent")
}

func (c *Coordinator) restart(ctx context.Context, chatID string) {
	attached, ok := c.Marker.Get()
	if !ok {
		c.reply(ctx, chatID, "no session attached")
		return
	}
	c.Manager.Clear()
	if found := c.Locator.Find(ctx, attached.Cwd); found.Found {
		if err := c.Locator.Close(ctx, found.PaneID); err != nil {
			slog.Warn("coordinator: close before restart failed", "error", err)
		}
	}
	projectName := filepath.Base(attached.Cwd)
	if _, err := c.Locator.Launch(ctx, attached.Cwd, projectName, false); err != nil {
		c.reply(ctx, chatID, "restart failed: "+err.Error())
		return
	}
	c.reply(ctx, chatID, "relaunching agent at "+attached.Cwd)
}

func (c *Coordinator) offerImages(ctx context.Context, chatID, arg string) {
	if arg == "" {
		if _, ok := c.Manager.LatestImageKey(); !ok {
			c.reply(ctx, chatID, "no staged images")
			return
		}
		c.setPending(chatID, pendingImageCount)
		c.reply(ctx, chatID, "how many images? (or \"all\")")
		return
	}
	c.sendPendingImages(ctx, chatID, arg)
}

func (c *Coordinator) sendPendingImages(ctx context.Context, chatID, reply string) {
	key, ok := c.Manager.LatestImageKey()
	if !ok {
		c.reply(ctx, chatID, "no staged images")
		return
	}
	imgs, ok := c.Manager.PopImages(key)
	if !ok {
		c.reply(ctx, chatID, "images already sent")
		return
	}

	n := len(imgs)
	reply = strings.TrimSpace(strings.ToLower(reply))
	if reply != "all" {
		if parsed, err := strconv.Atoi(reply); err == nil && parsed >= 0 && parsed < n {
			n = parsed
		}
	}

	for i := 0; i < n; i++ {
		out, mime, err := media.Reencode(imgs[i].Data, media.DefaultMaxDimension)
		if err != nil {
			slog.Warn("coordinator: re-encode staged image failed", "error", err)
			continue
		}
		if err := c.Surface.SendPhoto(ctx, chatID, out, mime, ""); err != nil {
			slog.Warn("coordinator: send staged image failed", "error", err)
		}
	}
}

func (c *Coordinator) startTimerWizard(ctx context.Context, chatID, arg string) {
	if strings.EqualFold(arg, "stop") {
		if c.Timer == nil {
			c.reply(ctx, chatID, "timer not configured")
			return
		}
		prior := c.Timer.StopTimer()
		if prior.Spec == "" {
			c.reply(ctx, chatID, "no timer was running")
			return
		}
		c.reply(ctx, chatID, "timer stopped")
		return
	}
	c.setPending(chatID, pendingTimerSpec)
	c.reply(ctx, chatID, "every how many minutes, or a cron expression?")
}

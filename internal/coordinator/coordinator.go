// Package coordinator implements the Coordinator: the glue that turns
// chat-surface events into pane injections, session attachment, and
// the command surface, wiring every other component together without
// any of them importing the bot directly.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
	"github.com/vanducng/goclaw-bridge/internal/classify"
	"github.com/vanducng/goclaw-bridge/internal/llm"
	"github.com/vanducng/goclaw-bridge/internal/permission"
	"github.com/vanducng/goclaw-bridge/internal/sessions"
	"github.com/vanducng/goclaw-bridge/internal/stt"
	"github.com/vanducng/goclaw-bridge/internal/timer"
	"github.com/vanducng/goclaw-bridge/internal/tmux"
	"github.com/vanducng/goclaw-bridge/internal/tracing"
	"github.com/vanducng/goclaw-bridge/internal/transcript"
	"github.com/vanducng/goclaw-bridge/internal/tts"
	"github.com/vanducng/goclaw-bridge/internal/watch"
)

// postInterruptSettle is the pause after sending an interrupt keystroke
// and stopAndFlush, giving the agent time to drop its current turn
// before the next injection.
var postInterruptSettle = 600 * time.Millisecond

// typingInterval re-sends the chat-platform "typing" indicator while a
// turn is in flight.
var typingInterval = 4 * time.Second

// Config is the small slice of the process config the Coordinator
// needs directly.
type Config struct {
	ConfigDir     string
	AllowedChatID string // empty means no allowlist filter
}

// Coordinator wires every other component together: pane location and
// injection, the watcher manager, the session index, the attached
// marker, the permission bridge, the prompt timer, and the chat
// surface — all via constructor injection.
type Coordinator struct {
	Config     Config
	Locator    *tmux.Locator
	Injector   *tmux.Injector
	Manager    *watch.Manager
	Index      *sessions.Index
	Marker     sessions.Marker
	ChatIDFile sessions.ChatIDFile
	Surface    chatsurface.Surface
	Timer      *timer.Timer
	Permission *permission.Bridge
	Polish     llm.PolishClient
	Summary    llm.SummaryClient
	STT        stt.Client
	TTS        tts.Client
	Tracer     trace.Tracer

	mu           sync.Mutex
	pending      map[string]*pendingState
	lastTurnFile map[string]string // chatID -> session file path, for post-completion classification
	voiceTurn    map[string]bool   // chatID -> true while the in-flight turn was started by HandleVoice
}

// New builds a Coordinator over its collaborators.
func New(cfg Config, locator *tmux.Locator, injector *tmux.Injector, manager *watch.Manager, idx *sessions.Index, marker sessions.Marker, surface chatsurface.Surface) *Coordinator {
	return &Coordinator{
		Config:       cfg,
		Locator:      locator,
		Injector:     injector,
		Manager:      manager,
		Index:        idx,
		Marker:       marker,
		ChatIDFile:   sessions.ChatIDFile{ConfigDir: cfg.ConfigDir},
		Surface:      surface,
		Tracer:       noop.NewTracerProvider().Tracer("goclaw-bridge"),
		pending:      make(map[string]*pendingState),
		lastTurnFile: make(map[string]string),
		voiceTurn:    make(map[string]bool),
	}
}

// Allowed reports whether chatID passes the configured allowlist. No
// allowlist means every chat is admitted.
func (c *Coordinator) Allowed(chatID string) bool {
	if c.Config.AllowedChatID == "" {
		return true
	}
	return chatID == c.Config.AllowedChatID
}

// HandleText runs the text turn algorithm (component design §4.11).
func (c *Coordinator) HandleText(ctx context.Context, chatID, text string) {
	if !c.Allowed(chatID) {
		return
	}
	if err := c.ChatIDFile.Set(chatID); err != nil {
		slog.Warn("coordinator: record last-seen chat id failed", "error", err)
	}

	if c.consumePending(ctx, chatID, text) {
		return
	}

	attached, ok := c.ensureAttached(ctx, chatID)
	if !ok {
		return
	}

	if c.Manager.IsActive() {
		c.interruptAndFlush(ctx, attached.Cwd)
	}

	ctx, span := tracing.StartTurn(ctx, c.Tracer, attached.SessionID, attached.Cwd)

	baseline, ok := c.Manager.SnapshotBaseline(attached.Cwd)
	if !ok {
		tracing.EndTurn(span, "no_baseline")
		c.reply(ctx, chatID, "no agent running at this session")
		return
	}

	found := c.Locator.Find(ctx, attached.Cwd)
	fallback := ""
	if found.Found {
		fallback = found.PaneID
	}

	res := c.Injector.Inject(ctx, attached.Cwd, text, fallback)
	if !res.Injected {
		tracing.EndTurn(span, "inject_failed")
		c.reply(ctx, chatID, "no agent running at this session")
		return
	}

	c.armWatcher(ctx, chatID, attached, &baseline, span)
}

// interruptAndFlush sends the interrupt keystroke to the attached
// session's pane (if one is found), then stops and flushes the
// in-flight watcher and waits for the agent to settle.
func (c *Coordinator) interruptAndFlush(ctx context.Context, cwd string) {
	found := c.Locator.Find(ctx, cwd)
	if found.Found {
		if err := c.Injector.SendInterrupt(ctx, found.PaneID); err != nil {
			slog.Warn("coordinator: send interrupt failed", "error", err)
		}
	}
	c.Manager.StopAndFlush()
	time.Sleep(postInterruptSettle)
}

func (c *Coordinator) armWatcher(ctx context.Context, chatID string, attached sessions.Attached, baseline *sessions.Baseline, span trace.Span) {
	typingDone := make(chan struct{})
	go c.streamTyping(ctx, chatID, typingDone)

	c.Manager.StartInjectionWatcher(ctx, watch.StartOptions{
		Attached: attached,
		ChatID:   chatID,
		OnText: func(ev watch.TextEvent) {
			c.mu.Lock()
			c.lastTurnFile[chatID] = ev.FilePath
			fromVoice := c.voiceTurn[chatID]
			delete(c.voiceTurn, chatID)
			c.mu.Unlock()

			if fromVoice && c.TTS != nil {
				c.replyVoice(ctx, chatID, ev.Text)
				return
			}
			c.reply(ctx, chatID, ev.Text)
		},
		OnComplete: func() {
			close(typingDone)
			tracing.EndTurn(span, "completed")
			c.offerFollowupKeyboard(ctx, chatID)
		},
		PreBaseline: baseline,
	})
}

func (c *Coordinator) streamTyping(ctx context.Context, chatID string, done <-chan struct{}) {
	if c.Surface == nil {
		return
	}
	ticker := time.NewTicker(typingInterval)
	defer ticker.Stop()
	c.Surface.SendTyping(ctx, chatID)
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Surface.SendTyping(ctx, chatID)
		}
	}
}

// offerFollowupKeyboard classifies the last assistant entry of the
// completed turn's session file and, if it names a pending-input kind,
// attaches the matching inline keyboard to the chat.
func (c *Coordinator) offerFollowupKeyboard(ctx context.Context, chatID string) {
	c.mu.Lock()
	filePath := c.lastTurnFile[chatID]
	c.mu.Unlock()
	if filePath == "" || c.Surface == nil {
		return
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	entry := transcript.GetLastAssistantEntry(splitLines(data))
	tag := classify.Classify(entry.Text, entry.HasExitPlanMode)

	var kb chatsurface.Keyboard
	switch tag {
	case classify.TagYesNo:
		kb = chatsurface.Keyboard{{{Text: "Yes", Data: "yn:yes"}, {Text: "No", Data: "yn:no"}}}
	case classify.TagEnter:
		kb = chatsurface.Keyboard{{{Text: "Press Enter", Data: "enter:go"}}}
	case classify.TagMultipleChoice:
		row := make([]chatsurface.Button, 0, len(classify.PlanChoices))
		for i, choice := range classify.PlanChoices {
			row = append(row, chatsurface.Button{Text: choice, Data: fmt.Sprintf("plan:%d", i)})
		}
		kb = chatsurface.Keyboard{row}
	default:
		return
	}

	if _, err := c.Surface.SendTextWithKeyboard(ctx, chatID, "Waiting for your input:", kb); err != nil {
		slog.Warn("coordinator: offer followup keyboard failed", "error", err)
	}
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

func (c *Coordinator) reply(ctx context.Context, chatID, text string) {
	if c.Surface == nil {
		return
	}
	if _, err := c.Surface.SendText(ctx, chatID, text); err != nil {
		slog.Warn("coordinator: reply failed", "chat_id", chatID, "error", err)
	}
}

// ensureAttached makes sure a session is attached for chatID, auto-
// attaching to the single most recently modified session if none is
// set.
func (c *Coordinator) ensureAttached(ctx context.Context, chatID string) (sessions.Attached, bool) {
	if attached, ok := c.Marker.Get(); ok {
		return attached, true
	}

	summaries := c.Index.ListSessions(1)
	if len(summaries) == 0 {
		c.reply(ctx, chatID, "no sessions found; use /sessions to launch one")
		return sessions.Attached{}, false
	}

	latest := summaries[0]
	if err := c.Marker.Set(latest.SessionID, latest.Cwd); err != nil {
		slog.Warn("coordinator: failed to write attached marker", "error", err)
		c.reply(ctx, chatID, "could not attach to a session")
		return sessions.Attached{}, false
	}

	c.reply(ctx, chatID, fmt.Sprintf("auto-attached to %s (%s)", latest.ProjectName, latest.Cwd))
	return sessions.Attached{SessionID: latest.SessionID, Cwd: latest.Cwd}, true
}

// Detach locates the attached session's pane and, if found, offers a
// close-window-or-keep prompt; with no pane it just clears the marker.
func (c *Coordinator) Detach(ctx context.Context, chatID string) {
	attached, ok := c.Marker.Get()
	if !ok {
		c.reply(ctx, chatID, "no session attached")
		return
	}

	c.Manager.Clear()
	found := c.Locator.Find(ctx, attached.Cwd)
	if !found.Found {
		if err := c.Marker.Clear(); err != nil {
			slog.Warn("coordinator: failed to clear attached marker", "error", err)
		}
		c.reply(ctx, chatID, "detached")
		return
	}

	if err := c.Marker.Clear(); err != nil {
		slog.Warn("coordinator: failed to clear attached marker", "error", err)
	}
	kb := chatsurface.Keyboard{{
		{Text: "Close window", Data: "detach:close:" + found.PaneID},
		{Text: "Keep", Data: "detach:keep"},
	}}
	if _, err := c.Surface.SendTextWithKeyboard(ctx, chatID, "Detached. Close the window too?", kb); err != nil {
		slog.Warn("coordinator: detach prompt failed", "error", err)
	}
}

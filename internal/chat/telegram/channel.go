// Package telegram implements the chat-surface contract
// (internal/chatsurface.Surface) on top of the Telegram Bot API via
// long polling, exactly as the teacher's internal/channels/telegram
// does, trimmed to this bridge's single-allowlisted-chat model.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mymmrac/telego"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
	"github.com/vanducng/goclaw-bridge/internal/ratelimit"
)

// Router receives the inbound events a Channel decodes from Telegram
// updates. The Coordinator implements this.
type Router interface {
	HandleText(ctx context.Context, chatID, text string)
	HandleCommand(ctx context.Context, cmd chatsurface.Command)
	HandleCallback(ctx context.Context, cb chatsurface.Callback)
	HandleVoice(ctx context.Context, chatID, filePath string)
	HandlePhoto(ctx context.Context, chatID, filePath string)
	HandleDocument(ctx context.Context, chatID, filePath, mimeType string)
}

// Channel connects to Telegram via long polling and implements
// chatsurface.Surface for outbound replies.
type Channel struct {
	bot         *telego.Bot
	token       string
	downloadDir string
	limiter     *ratelimit.Limiter
	router      Router

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates a Channel bound to token, staging downloaded media under
// downloadDir and rate-limiting outbound calls via limiter.
func New(token, downloadDir string, limiter *ratelimit.Limiter) (*Channel, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return &Channel{bot: bot, token: token, downloadDir: downloadDir, limiter: limiter}, nil
}

// SetRouter wires the Coordinator (or any Router) as the recipient of
// decoded inbound events. Must be called before Start.
func (c *Channel) SetRouter(r Router) {
	c.router = r
}

// Start begins long polling for updates and dispatches them to the
// router in a background goroutine.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("telegram: starting long polling")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("telegram: start long polling: %w", err)
	}

	go c.syncMenuCommandsWithRetry(pollCtx)

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				c.dispatch(pollCtx, update)
			}
		}
	}()

	return nil
}

// dispatch recovers from panics in a single update's handling so one
// bad update cannot crash the polling goroutine.
func (c *Channel) dispatch(ctx context.Context, update telego.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("telegram: recovered from panic handling update", "panic", r)
		}
	}()

	switch {
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, update.CallbackQuery)
	}
}

// Stop cancels long polling and waits for the dispatch goroutine to
// exit so Telegram releases the getUpdates lock before a restart.
func (c *Channel) Stop(context.Context) error {
	if c.pollCancel != nil {
		c.pollCancel()
	}
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
		case <-time.After(10 * time.Second):
			slog.Warn("telegram: polling goroutine did not exit within timeout")
		}
	}
	return nil
}

func (c *Channel) syncMenuCommandsWithRetry(ctx context.Context) {
	commands := []telego.BotCommand{
		{Command: "sessions", Description: "pick or launch a session"},
		{Command: "detach", Description: "detach from the current session"},
		{Command: "status", Description: "show the attached session"},
		{Command: "summarize", Description: "summarize the attached session"},
		{Command: "compact", Description: "ask the agent to compact context"},
		{Command: "clear", Description: "ask the agent to clear context"},
		{Command: "close_session", Description: "close the attached session's window"},
		{Command: "polishvoice", Description: "toggle voice-transcript polishing"},
		{Command: "images", Description: "resend staged images"},
		{Command: "timer", Description: "schedule a recurring prompt"},
		{Command: "model", Description: "switch the agent's model"},
		{Command: "escape", Description: "send an interrupt keystroke"},
		{Command: "restart", Description: "relaunch the agent"},
		{Command: "help", Description: "show help"},
	}

	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
			slog.Warn("telegram: sync menu commands failed", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * 5 * time.Second):
			}
			continue
		}
		return
	}
}

// downloadFile fetches a Telegram file by id and writes it under
// downloadDir, returning the local path.
func (c *Channel) downloadFile(ctx context.Context, fileID, localName string) (string, error) {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("telegram: get file: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", c.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("telegram: download file: %w", err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(c.downloadDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(c.downloadDir, localName)
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("telegram: write file: %w", err)
	}
	return dest, nil
}

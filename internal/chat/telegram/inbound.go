package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
)

// handleMessage decodes one inbound telego.Message into the matching
// Router call: a leading "/" is a Command, otherwise it is routed by
// attachment kind (voice, photo, image document, or plain text).
func (c *Channel) handleMessage(ctx context.Context, msg *telego.Message) {
	if c.router == nil {
		return
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	switch {
	case msg.Voice != nil:
		c.routeDownload(ctx, chatID, msg.Voice.FileID, "voice.ogg", c.router.HandleVoice)

	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		c.routeDownload(ctx, chatID, largest.FileID, "photo.jpg", c.router.HandlePhoto)

	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		mimeType := msg.Document.MimeType
		c.routeDownload(ctx, chatID, msg.Document.FileID, msg.Document.FileName, func(ctx context.Context, chatID, path string) {
			c.router.HandleDocument(ctx, chatID, path, mimeType)
		})

	case strings.HasPrefix(msg.Text, "/"):
		c.router.HandleCommand(ctx, parseCommand(chatID, msg.Text))

	case msg.Text != "":
		c.router.HandleText(ctx, chatID, msg.Text)
	}
}

func (c *Channel) routeDownload(ctx context.Context, chatID, fileID, localName string, handle func(ctx context.Context, chatID, path string)) {
	path, err := c.downloadFile(ctx, fileID, fmt.Sprintf("%s-%s", chatID, localName))
	if err != nil {
		slog.Warn("telegram: download failed", "error", err)
		_, _ = c.SendText(ctx, chatID, "could not download attachment")
		return
	}
	handle(ctx, chatID, path)
}

func (c *Channel) handleCallback(ctx context.Context, cb *telego.CallbackQuery) {
	if c.router == nil || cb.Message == nil {
		return
	}
	chatID := strconv.FormatInt(cb.Message.GetChat().ID, 10)
	c.router.HandleCallback(ctx, chatsurface.Callback{
		ID:     cb.ID,
		ChatID: chatID,
		Data:   cb.Data,
	})
}

// parseCommand splits a "/name arg1 arg2" message into a chatsurface.Command,
// stripping a "@botname" suffix Telegram appends in group chats. Name
// keeps its leading "/" so it matches HandleCommand's "/name" cases
// directly.
func parseCommand(chatID, text string) chatsurface.Command {
	fields := strings.SplitN(text, " ", 2)
	name := fields[0]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	args := ""
	if len(fields) > 1 {
		args = strings.TrimSpace(fields[1])
	}
	return chatsurface.Command{ChatID: chatID, Name: name, Args: args}
}

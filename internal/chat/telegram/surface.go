package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
)

// Channel implements chatsurface.Surface; every outbound call waits on
// the shared rate limiter before hitting the Bot API.

func (c *Channel) SendText(ctx context.Context, chatID, text string) (string, error) {
	if err := c.limiter.Wait(ctx, chatID); err != nil {
		return "", err
	}
	msg, err := c.bot.SendMessage(ctx, tu.Message(chatIDOf(chatID), text))
	if err != nil {
		return "", fmt.Errorf("telegram: send text: %w", err)
	}
	return strconv.Itoa(msg.MessageID), nil
}

func (c *Channel) SendTextWithKeyboard(ctx context.Context, chatID, text string, kb chatsurface.Keyboard) (string, error) {
	if err := c.limiter.Wait(ctx, chatID); err != nil {
		return "", err
	}
	params := tu.Message(chatIDOf(chatID), text).WithReplyMarkup(toInlineKeyboard(kb))
	msg, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("telegram: send text with keyboard: %w", err)
	}
	return strconv.Itoa(msg.MessageID), nil
}

func (c *Channel) EditMessageText(ctx context.Context, chatID, messageID, text string) error {
	if err := c.limiter.Wait(ctx, chatID); err != nil {
		return err
	}
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("telegram: invalid message id %q: %w", messageID, err)
	}
	_, err = c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    chatIDOf(chatID),
		MessageID: id,
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("telegram: edit text: %w", err)
	}
	return nil
}

func (c *Channel) EditMessageKeyboard(ctx context.Context, chatID, messageID string, kb chatsurface.Keyboard) error {
	if err := c.limiter.Wait(ctx, chatID); err != nil {
		return err
	}
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("telegram: invalid message id %q: %w", messageID, err)
	}
	markup := toInlineKeyboard(kb)
	_, err = c.bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
		ChatID:      chatIDOf(chatID),
		MessageID:   id,
		ReplyMarkup: markup,
	})
	if err != nil {
		return fmt.Errorf("telegram: edit keyboard: %w", err)
	}
	return nil
}

func (c *Channel) SendPhoto(ctx context.Context, chatID string, data []byte, mimeType, caption string) error {
	if err := c.limiter.Wait(ctx, chatID); err != nil {
		return err
	}
	params := &telego.SendPhotoParams{
		ChatID:  chatIDOf(chatID),
		Photo:   tu.FileFromReader(bytes.NewReader(data), "image"+extensionFor(mimeType)),
		Caption: caption,
	}
	if _, err := c.bot.SendPhoto(ctx, params); err != nil {
		return fmt.Errorf("telegram: send photo: %w", err)
	}
	return nil
}

func (c *Channel) SendVoice(ctx context.Context, chatID string, data []byte, caption string) error {
	if err := c.limiter.Wait(ctx, chatID); err != nil {
		return err
	}
	params := &telego.SendVoiceParams{
		ChatID:  chatIDOf(chatID),
		Voice:   tu.FileFromReader(bytes.NewReader(data), "voice.ogg"),
		Caption: caption,
	}
	if _, err := c.bot.SendVoice(ctx, params); err != nil {
		return fmt.Errorf("telegram: send voice: %w", err)
	}
	return nil
}

func (c *Channel) AnswerCallback(ctx context.Context, callbackID, text string) error {
	err := c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	return nil
}

func (c *Channel) SendTyping(ctx context.Context, chatID string) error {
	if err := c.limiter.Wait(ctx, chatID); err != nil {
		return err
	}
	if err := c.bot.SendChatAction(ctx, tu.ChatAction(chatIDOf(chatID), telego.ChatActionTyping)); err != nil {
		return fmt.Errorf("telegram: send typing: %w", err)
	}
	return nil
}

func chatIDOf(chatID string) telego.ChatID {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return tu.ID(id)
	}
	return telego.ChatID{Username: chatID}
}

func toInlineKeyboard(kb chatsurface.Keyboard) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Text).WithCallbackData(b.Data))
		}
		rows = append(rows, buttons)
	}
	return tu.InlineKeyboard(rows...)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

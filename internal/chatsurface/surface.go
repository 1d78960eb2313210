// Package chatsurface defines the contract the Coordinator and
// WatcherManager need from a chat-platform collaborator, so that
// neither component imports a concrete bot client directly (the
// concrete binding lives in internal/chat/telegram).
package chatsurface

import "context"

// Button is one inline-keyboard button: Text is shown, Data is echoed
// back in the resulting Callback.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, one row per slice element.
type Keyboard [][]Button

// Surface is the outbound half of the chat-platform contract.
type Surface interface {
	SendText(ctx context.Context, chatID, text string) (messageID string, err error)
	SendTextWithKeyboard(ctx context.Context, chatID, text string, kb Keyboard) (messageID string, err error)
	EditMessageText(ctx context.Context, chatID, messageID, text string) error
	EditMessageKeyboard(ctx context.Context, chatID, messageID string, kb Keyboard) error
	SendPhoto(ctx context.Context, chatID string, data []byte, mimeType, caption string) error
	SendVoice(ctx context.Context, chatID string, data []byte, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	SendTyping(ctx context.Context, chatID string) error
}

// TextMessage is an inbound plain-text update.
type TextMessage struct {
	ChatID string
	Text   string
}

// VoiceMessage is an inbound voice-note update: a downloadable binary
// plus a local path hint once downloaded.
type VoiceMessage struct {
	ChatID   string
	FilePath string
}

// PhotoMessage is an inbound photo update (largest variant already
// selected by the concrete binding).
type PhotoMessage struct {
	ChatID   string
	FilePath string
}

// DocumentMessage is an inbound document whose mime begins with
// "image/" — treated like a photo by the Coordinator.
type DocumentMessage struct {
	ChatID   string
	FilePath string
	MimeType string
}

// Callback is an inbound inline-button tap.
type Callback struct {
	ID     string
	ChatID string
	Data   string
}

// Command is an inbound bot command (e.g. "/sessions", "/timer 30").
type Command struct {
	ChatID string
	Name   string
	Args   string
}

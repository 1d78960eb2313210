package coordinator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vanducng/goclaw-bridge/internal/media"
)

// imagesDirName is the staging subdirectory, relative to Config.ConfigDir,
// that inbound photos/documents are saved under for agent consumption.
const imagesDirName = "images"

// HandleVoice transcribes a downloaded voice note, optionally polishes
// the raw transcript, and runs the result through the normal text turn
// algorithm. STT failures are reported to the chat; polish failures
// fall back to the raw transcript, per the collaborator error policy.
func (c *Coordinator) HandleVoice(ctx context.Context, chatID, filePath string) {
	if c.STT == nil {
		c.reply(ctx, chatID, "speech-to-text is not configured")
		return
	}

	f, err := os.Open(filePath)
	if err != nil {
		c.reply(ctx, chatID, "could not read voice note")
		return
	}
	defer f.Close()

	raw, err := c.STT.Transcribe(ctx, filepath.Base(filePath), f)
	if err != nil {
		slog.Warn("coordinator: transcribe failed", "error", err)
		c.reply(ctx, chatID, "could not transcribe voice note")
		return
	}
	if raw == "" {
		c.reply(ctx, chatID, "got an empty transcript")
		return
	}

	text := raw
	if c.Polish != nil && c.PolishVoiceEnabled() {
		if polished, err := c.Polish.Polish(ctx, raw); err != nil {
			slog.Warn("coordinator: polish failed, using raw transcript", "error", err)
		} else {
			text = polished
		}
	}

	if c.TTS != nil {
		c.mu.Lock()
		c.voiceTurn[chatID] = true
		c.mu.Unlock()
	}

	c.HandleText(ctx, chatID, text)
}

// replyVoice synthesizes text via TTS and sends it as a voice note,
// the symmetric counterpart to HandleVoice's transcription. A
// synthesis or delivery failure falls back to a plain text reply.
func (c *Coordinator) replyVoice(ctx context.Context, chatID, text string) {
	audio, err := c.TTS.Synthesize(ctx, text)
	if err != nil {
		slog.Warn("coordinator: synthesize voice reply failed, falling back to text", "error", err)
		c.reply(ctx, chatID, text)
		return
	}
	data, err := io.ReadAll(audio)
	if err != nil {
		slog.Warn("coordinator: read synthesized voice reply failed, falling back to text", "error", err)
		c.reply(ctx, chatID, text)
		return
	}
	if c.Surface == nil {
		return
	}
	if err := c.Surface.SendVoice(ctx, chatID, data, ""); err != nil {
		slog.Warn("coordinator: send voice reply failed, falling back to text", "error", err)
		c.reply(ctx, chatID, text)
	}
}

// HandlePhoto re-encodes and stages a downloaded photo under the
// bridge's images directory, then notes its path to the attached
// agent via the normal text turn algorithm so the agent can read it
// off disk.
func (c *Coordinator) HandlePhoto(ctx context.Context, chatID, filePath string) {
	c.stageImageAndNotify(ctx, chatID, filePath)
}

// HandleDocument treats an inbound document whose MIME type begins
// with "image/" exactly like a photo; non-image documents are not
// supported by this bridge.
func (c *Coordinator) HandleDocument(ctx context.Context, chatID, filePath, mimeType string) {
	if len(mimeType) < 6 || mimeType[:6] != "image/" {
		c.reply(ctx, chatID, "only image documents are supported")
		return
	}
	c.stageImageAndNotify(ctx, chatID, filePath)
}

func (c *Coordinator) stageImageAndNotify(ctx context.Context, chatID, filePath string) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		c.reply(ctx, chatID, "could not read image")
		return
	}

	maxDim := media.DefaultMaxDimension
	out, mimeType, err := media.Reencode(data, maxDim)
	if err != nil {
		slog.Warn("coordinator: re-encode inbound image failed", "error", err)
		out, mimeType = data, media.SniffMIME(data)
	}

	ext := extensionForMIME(mimeType)
	dir := filepath.Join(c.Config.ConfigDir, imagesDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.reply(ctx, chatID, "could not stage image: "+err.Error())
		return
	}
	dest := filepath.Join(dir, fmt.Sprintf("telegram-%d%s", time.Now().UnixNano(), ext))
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		c.reply(ctx, chatID, "could not stage image: "+err.Error())
		return
	}

	c.HandleText(ctx, chatID, fmt.Sprintf("[image attached: %s]", dest))
}

func extensionForMIME(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

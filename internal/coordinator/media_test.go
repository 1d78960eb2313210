package coordinator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTT struct {
	transcript string
	err        error
}

func (f fakeSTT) Transcribe(_ context.Context, _ string, _ io.Reader) (string, error) {
	return f.transcript, f.err
}

type fakePolish struct {
	out string
	err error
}

func (f fakePolish) Polish(context.Context, string) (string, error) { return f.out, f.err }

type fakeTTS struct {
	audio string
	err   error
}

func (f fakeTTS) Synthesize(context.Context, string) (io.Reader, error) {
	if f.err != nil {
		return nil, f.err
	}
	return bytes.NewReader([]byte(f.audio)), nil
}

func TestHandleVoiceTranscribesAndInjects(t *testing.T) {
	cwd := t.TempDir()
	c, runner, _ := newTestCoordinator(t, cwd)
	require.NoError(t, c.Marker.Set("sess-1", cwd))
	c.STT = fakeSTT{transcript: "what is the weather"}

	voicePath := filepath.Join(t.TempDir(), "note.ogg")
	require.NoError(t, os.WriteFile(voicePath, []byte("fake audio"), 0o644))

	c.HandleVoice(context.Background(), "c1", voicePath)
	assert.Contains(t, joinCommands(runner), "weather")
}

func TestHandleVoicePolishFailureFallsBackToRaw(t *testing.T) {
	cwd := t.TempDir()
	c, runner, _ := newTestCoordinator(t, cwd)
	require.NoError(t, c.Marker.Set("sess-1", cwd))
	c.STT = fakeSTT{transcript: "raw text"}
	c.Polish = fakePolish{err: errors.New("polish down")}

	voicePath := filepath.Join(t.TempDir(), "note.ogg")
	require.NoError(t, os.WriteFile(voicePath, []byte("fake audio"), 0o644))

	c.HandleVoice(context.Background(), "c1", voicePath)
	assert.Contains(t, joinCommands(runner), "raw text")
}

func TestHandleVoiceMarksTurnForVoiceReplyWhenTTSConfigured(t *testing.T) {
	cwd := t.TempDir()
	c, _, _ := newTestCoordinator(t, cwd)
	require.NoError(t, c.Marker.Set("sess-1", cwd))
	c.STT = fakeSTT{transcript: "what is the weather"}
	c.TTS = fakeTTS{audio: "fake audio"}

	voicePath := filepath.Join(t.TempDir(), "note.ogg")
	require.NoError(t, os.WriteFile(voicePath, []byte("fake audio"), 0o644))

	c.HandleVoice(context.Background(), "c1", voicePath)
	assert.True(t, c.voiceTurn["c1"])
}

func TestReplyVoiceSynthesizesAndSendsVoice(t *testing.T) {
	cwd := t.TempDir()
	c, _, surface := newTestCoordinator(t, cwd)
	c.TTS = fakeTTS{audio: "synthesized audio"}

	c.replyVoice(context.Background(), "c1", "hello there")

	require.Len(t, surface.voices, 1)
	assert.Equal(t, "synthesized audio", string(surface.voices[0]))
	assert.Empty(t, surface.texts)
}

func TestReplyVoiceFallsBackToTextOnSynthesizeFailure(t *testing.T) {
	cwd := t.TempDir()
	c, _, surface := newTestCoordinator(t, cwd)
	c.TTS = fakeTTS{err: errors.New("tts down")}

	c.replyVoice(context.Background(), "c1", "hello there")

	assert.Empty(t, surface.voices)
	assert.Equal(t, "hello there", surface.lastText())
}

func TestHandlePhotoStagesAndInjectsPath(t *testing.T) {
	cwd := t.TempDir()
	c, runner, _ := newTestCoordinator(t, cwd)
	require.NoError(t, c.Marker.Set("sess-1", cwd))

	photoPath := filepath.Join(t.TempDir(), "pic.png")
	require.NoError(t, os.WriteFile(photoPath, makePNGBytes(t, 10, 10), 0o644))

	c.HandlePhoto(context.Background(), "c1", photoPath)

	entries, err := os.ReadDir(filepath.Join(c.Config.ConfigDir, imagesDirName))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, joinCommands(runner), "image attached")
}

func makePNGBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func joinCommands(r *recordingRunner) string {
	out := ""
	for _, cmd := range r.commands() {
		out += cmd + "|"
	}
	return out
}

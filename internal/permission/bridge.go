// Package permission implements the two-file handshake with the
// agent's permission hook: the hook writes a request file, the bridge
// surfaces it out-of-band and writes a response file back.
package permission

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/vanducng/goclaw-bridge/internal/transcript"
)

const (
	requestPrefix  = "permission-request-"
	requestSuffix  = ".json"
	responsePrefix = "permission-response-"

	// Action is written verbatim as the response file's content; the
	// hook exits 0 on approve, 2 on deny.
	ActionApprove = "approve"
	ActionDeny    = "deny"
)

// Request is the decoded shape of a permission-request-<id>.json file.
type Request struct {
	RequestID      string `json:"requestId"`
	ToolName       string `json:"toolName"`
	ToolInput      string `json:"toolInput"`
	TranscriptPath string `json:"transcriptPath,omitempty"`
}

// Event is what the bridge's callback receives: the request plus an
// optional human-readable preview of the last tool_use command and the
// request file's path.
type Event struct {
	RequestID   string
	ToolName    string
	ToolInput   string
	ToolCommand string // empty when TranscriptPath was absent or unreadable
	FilePath    string
}

// Bridge watches ConfigDir for request files and writes response files.
type Bridge struct {
	ConfigDir string
	OnRequest func(Event)

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// Start begins watching ConfigDir for permission-request-*.json files.
// The directory is created if missing.
func (b *Bridge) Start(ctx context.Context) error {
	if err := os.MkdirAll(b.ConfigDir, 0o755); err != nil {
		return fmt.Errorf("permission bridge: create config dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("permission bridge: create watcher: %w", err)
	}
	if err := fw.Add(b.ConfigDir); err != nil {
		fw.Close()
		return fmt.Errorf("permission bridge: watch config dir: %w", err)
	}
	b.watcher = fw

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	go b.run(runCtx)
	return nil
}

// Stop closes the underlying directory watcher.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.watcher != nil {
		b.watcher.Close()
	}
}

func (b *Bridge) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			b.maybeHandle(ev.Name)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("permission bridge: watcher error", "error", err)
		}
	}
}

func (b *Bridge) maybeHandle(path string) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, requestPrefix) || !strings.HasSuffix(name, requestSuffix) {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Cannot read the request file — skip; the hook will time out
		// waiting for a response and re-prompt itself.
		slog.Debug("permission bridge: cannot read request file", "path", path, "error", err)
		return
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Debug("permission bridge: malformed request file", "path", path, "error", err)
		return
	}

	ev := Event{
		RequestID: req.RequestID,
		ToolName:  req.ToolName,
		ToolInput: req.ToolInput,
		FilePath:  path,
	}
	if req.TranscriptPath != "" {
		ev.ToolCommand = previewFromTranscript(req.TranscriptPath)
	}

	if b.OnRequest != nil {
		b.OnRequest(ev)
	}
}

// previewFromTranscript extracts the last tool_use block's command (or,
// failing that, the tool name followed by its file_path input, or the
// bare tool name) from the transcript at path, for a human-readable
// permission-prompt preview. Returns "" if the read fails or no
// tool_use block is present — the preview is simply left undefined.
func previewFromTranscript(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	res := transcript.Read(splitLines(data))
	if len(res.ToolCalls) == 0 {
		return ""
	}
	last := res.ToolCalls[len(res.ToolCalls)-1]
	if cmd, ok := last.Input["command"].(string); ok && cmd != "" {
		return cmd
	}
	if fp, ok := last.Input["file_path"].(string); ok && fp != "" {
		return last.Name + " " + fp
	}
	return last.Name
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

// Respond creates ConfigDir if missing and writes the response file
// with the literal action string.
func (b *Bridge) Respond(requestID, action string) error {
	if err := os.MkdirAll(b.ConfigDir, 0o755); err != nil {
		return fmt.Errorf("permission bridge: create config dir: %w", err)
	}
	path := filepath.Join(b.ConfigDir, responsePrefix+requestID)
	if err := os.WriteFile(path, []byte(action), 0o644); err != nil {
		return fmt.Errorf("permission bridge: write response file: %w", err)
	}
	return nil
}

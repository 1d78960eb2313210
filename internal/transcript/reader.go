package transcript

import (
	"bufio"
	"bytes"
	"strings"
)

// maxLastMessageChars is the truncation length for Result.LastMessage.
const maxLastMessageChars = 200

// ToolCall is one tool_use block surfaced by Read.
type ToolCall struct {
	Name  string
	Input map[string]any
}

// Result is the total summary Read produces from a set of transcript lines.
type Result struct {
	Cwd         string
	LastMessage string
	ToolCalls   []ToolCall
	AllMessages []string
}

// Read is the pure TranscriptReader: given a sequence of raw lines (one
// JSON record each), it returns the accumulated view over them. Blank
// lines and lines that fail to parse are skipped. Only assistant records
// contribute.
func Read(lines [][]byte) Result {
	var res Result
	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		rec, ok := parseLine(trimmed)
		if !ok {
			continue
		}
		if rec.Type != KindAssistant {
			continue
		}
		if res.Cwd == "" && rec.Cwd != "" {
			res.Cwd = rec.Cwd
		}
		if rec.Message == nil {
			continue
		}
		for _, block := range rec.Message.Content {
			switch block.Type {
			case BlockText:
				res.AllMessages = append(res.AllMessages, block.Text)
				res.LastMessage = truncateMessage(block.Text)
			case BlockToolUse:
				res.ToolCalls = append(res.ToolCalls, ToolCall{
					Name:  block.Name,
					Input: block.ToolInput(),
				})
			}
		}
	}
	return res
}

// ReadString splits s on newlines and delegates to Read; a convenience
// for callers holding a whole-file or whole-tail buffer.
func ReadString(s string) Result {
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var lines [][]byte
	for scanner.Scan() {
		b := append([]byte(nil), scanner.Bytes()...)
		lines = append(lines, b)
	}
	return Read(lines)
}

func truncateMessage(text string) string {
	flat := strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", " "), "\n", " ")
	if len(flat) > maxLastMessageChars {
		return flat[:maxLastMessageChars]
	}
	return flat
}

// LastAssistantEntry is the result of scanning a transcript backwards
// from EOF across assistant records, stopping at the first user record.
type LastAssistantEntry struct {
	Text            string
	HasExitPlanMode bool
	PlanText        string
}

// GetLastAssistantEntry scans lines backwards (lines[len-1] is assumed
// to be the end of file) across consecutive assistant records, stopping
// at the first user record — a turn boundary. It never returns an error:
// unparseable lines are skipped exactly as in Read.
func GetLastAssistantEntry(lines [][]byte) LastAssistantEntry {
	var entry LastAssistantEntry
	textSeen := false

	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := bytes.TrimSpace(lines[i])
		if len(trimmed) == 0 {
			continue
		}
		rec, ok := parseLine(trimmed)
		if !ok {
			continue
		}
		if rec.Type == KindUser {
			break
		}
		if rec.Type != KindAssistant || rec.Message == nil {
			continue
		}
		for _, block := range rec.Message.Content {
			switch block.Type {
			case BlockText:
				if !textSeen {
					entry.Text = block.Text
					textSeen = true
				}
			case BlockToolUse:
				if block.Name == ToolExitPlanMode {
					entry.HasExitPlanMode = true
					if plan := block.Plan(); plan != "" {
						entry.PlanText = plan
					}
				}
			}
		}
	}
	return entry
}

// imageExtensions is the set of file extensions TurnWatcher treats as
// image-producing Write tool calls.
var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImageMIME returns the inferred MIME type for a file path by extension,
// and ok=false if the extension isn't a recognised image type.
func ImageMIME(path string) (string, bool) {
	lower := strings.ToLower(path)
	for ext, mime := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return mime, true
		}
	}
	return "", false
}

// Package transcript parses the append-only JSON-lines files the agent
// writes for each session. Parsing is total: malformed or unexpected
// input is skipped, never returned as an error to the caller.
package transcript

import "encoding/json"

// Kind enumerates the record types a transcript line can carry. Unknown
// kinds are preserved on Record.Type but never contribute to a Result.
const (
	KindAssistant          = "assistant"
	KindUser               = "user"
	KindSystem             = "system"
	KindResult             = "result"
	KindFileHistorySnapshot = "file-history-snapshot"
)

// BlockKind enumerates the tagged union of assistant message content blocks.
const (
	BlockText    = "text"
	BlockToolUse = "tool_use"
)

// ToolExitPlanMode is the tool name the agent uses to signal that it is
// awaiting plan-approval input from the operator.
const ToolExitPlanMode = "ExitPlanMode"

// ToolWrite is the tool name used to write files, including images
// offered back to the operator.
const ToolWrite = "Write"

// Record is the raw shape of one transcript line: Type, Cwd and Message
// are decoded; other fields are not.
type Record struct {
	Type    string          `json:"type"`
	Cwd     string          `json:"cwd,omitempty"`
	Message *AssistantMsg   `json:"message,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// AssistantMsg is the content of an {type:"assistant", message:{...}} record.
type AssistantMsg struct {
	Content []Block `json:"content"`
}

// Block is one tagged-union content element of an assistant message.
type Block struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolInput decodes Input as a generic map, ignoring errors — a tool
// whose input doesn't decode as an object simply reports no fields.
func (b Block) ToolInput() map[string]any {
	if len(b.Input) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b.Input, &m); err != nil {
		return nil
	}
	return m
}

// Plan returns the "plan" field of an ExitPlanMode tool_use block's input,
// or "" if absent or the block isn't ExitPlanMode.
func (b Block) Plan() string {
	if b.Type != BlockToolUse || b.Name != ToolExitPlanMode {
		return ""
	}
	if v, ok := b.ToolInput()["plan"].(string); ok {
		return v
	}
	return ""
}

// FilePath returns the "file_path" input field of a tool_use block, used
// to detect image-producing Write calls.
func (b Block) FilePath() string {
	if b.Type != BlockToolUse {
		return ""
	}
	if v, ok := b.ToolInput()["file_path"].(string); ok {
		return v
	}
	return ""
}

// parseLine decodes one transcript line. Returns ok=false for blank lines
// or lines that fail to parse — callers skip these silently, never
// propagating an error, per the transcript reader's total-function contract.
func parseLine(line []byte) (Record, bool) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, false
	}
	rec.Raw = line
	return rec, true
}

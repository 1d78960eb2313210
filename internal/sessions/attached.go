package sessions

import (
	"os"
	"path/filepath"
	"strings"
)

// attachedFileName is the marker file's name within the bridge's config
// directory.
const attachedFileName = "attached"

// Attached is the (sessionId, cwd) currently selected as the target of
// user messages.
type Attached struct {
	SessionID string
	Cwd       string
}

// Marker reads and writes the attached-session marker file, a two-line
// text file `sessionId\ncwd` in the bridge's config directory. Writes
// are whole-file replacements; readers tolerate transient malformed
// content by returning "present=false" rather than an error, since a
// write can in principle race a read.
type Marker struct {
	ConfigDir string
	HomeCwd   string
}

func (m Marker) path() string {
	return filepath.Join(m.ConfigDir, attachedFileName)
}

// Get reads the marker file. Returns ok=false if it is missing or
// carries no sessionId. A missing cwd line falls back to HomeCwd.
func (m Marker) Get() (Attached, bool) {
	data, err := os.ReadFile(m.path())
	if err != nil {
		return Attached{}, false
	}
	lines := strings.SplitN(strings.TrimRight(string(data), "\n"), "\n", 2)
	sessionID := strings.TrimSpace(lines[0])
	if sessionID == "" {
		return Attached{}, false
	}
	cwd := m.HomeCwd
	if len(lines) > 1 && strings.TrimSpace(lines[1]) != "" {
		cwd = strings.TrimSpace(lines[1])
	}
	return Attached{SessionID: sessionID, Cwd: cwd}, true
}

// Set writes sessionId\ncwd as a whole-file replacement.
func (m Marker) Set(sessionID, cwd string) error {
	if err := os.MkdirAll(m.ConfigDir, 0o755); err != nil {
		return err
	}
	content := sessionID + "\n" + cwd + "\n"
	return os.WriteFile(m.path(), []byte(content), 0o644)
}

// Clear removes the marker file. Missing file is not an error.
func (m Marker) Clear() error {
	err := os.Remove(m.path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Package sessions indexes the on-disk project tree of transcript
// files, resolves the session file currently active for a cwd, and
// reads/writes the attached-session marker file.
package sessions

import "strings"

// EncodeCwd derives a transcript directory name from a cwd by a lossy
// sanitisation: any character outside alphanumeric/underscore/hyphen
// becomes "-". In practice the agent's own encoding collapses
// path separators to "-", including the leading one.
func EncodeCwd(cwd string) string {
	var b strings.Builder
	b.Grow(len(cwd))
	for _, r := range cwd {
		if isAlnum(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// DecodeProjectName reverses the encoding well enough to recover a
// human-readable project name: the leading hyphen (standing for the
// root "/") is dropped, then every remaining "-" is treated as a path
// separator, and the last segment is returned.
func DecodeProjectName(encodedDir string) string {
	trimmed := strings.TrimPrefix(encodedDir, "-")
	if trimmed == "" {
		return "/"
	}
	segments := strings.Split(trimmed, "-")
	return segments[len(segments)-1]
}

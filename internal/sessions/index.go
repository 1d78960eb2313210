package sessions

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanducng/goclaw-bridge/internal/transcript"
)

// transcriptExt is the on-disk extension for one session's newline-JSON
// transcript file.
const transcriptExt = ".jsonl"

// Summary is one row of listSessions: the newest session per project
// directory, with a preview of the last assistant message.
type Summary struct {
	SessionID   string
	Cwd         string
	ProjectName string
	LastMessage string
	Mtime       time.Time
}

// FileRef names a resolved session file without its content.
type FileRef struct {
	SessionID string
	FilePath  string
}

// Index scans projectsRoot, the directory under which the agent
// maintains one subdirectory per encoded cwd.
type Index struct {
	ProjectsRoot string
}

// New builds an Index rooted at projectsRoot.
func New(projectsRoot string) *Index {
	return &Index{ProjectsRoot: projectsRoot}
}

// ListSessions enumerates every project subdirectory, keeps only the
// newest transcript file per directory (one entry per project), sorts
// globally by mtime descending, and truncates to limit (limit<=0 means
// unlimited).
func (idx *Index) ListSessions(limit int) []Summary {
	entries, err := os.ReadDir(idx.ProjectsRoot)
	if err != nil {
		return nil
	}

	var summaries []Summary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(idx.ProjectsRoot, entry.Name())
		newest, ok := newestTranscript(dir)
		if !ok {
			continue
		}

		sessionID := strings.TrimSuffix(filepath.Base(newest.path), transcriptExt)
		lastMessage := lastMessageOf(newest.path)
		cwd := decodeCwdGuess(entry.Name())

		summaries = append(summaries, Summary{
			SessionID:   sessionID,
			Cwd:         cwd,
			ProjectName: DecodeProjectName(entry.Name()),
			LastMessage: lastMessage,
			Mtime:       newest.mtime,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Mtime.After(summaries[j].Mtime)
	})

	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// GetLatestSessionFileForCwd returns the newest transcript file under
// cwd's encoded directory, regardless of whether it contains only
// metadata records — a freshly cleared session is empty and must still
// be picked, since that is exactly the post-compaction rotation case.
func (idx *Index) GetLatestSessionFileForCwd(cwd string) (FileRef, bool) {
	dir := filepath.Join(idx.ProjectsRoot, EncodeCwd(cwd))
	newest, ok := newestTranscript(dir)
	if !ok {
		return FileRef{}, false
	}
	return FileRef{
		SessionID: strings.TrimSuffix(filepath.Base(newest.path), transcriptExt),
		FilePath:  newest.path,
	}, true
}

// GetSessionFilePath probes every project directory for a file named
// sessionID+".jsonl", returning the first match.
func (idx *Index) GetSessionFilePath(sessionID string) (string, bool) {
	entries, err := os.ReadDir(idx.ProjectsRoot)
	if err != nil {
		return "", false
	}
	target := sessionID + transcriptExt
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(idx.ProjectsRoot, entry.Name(), target)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

type fileStat struct {
	path  string
	mtime time.Time
}

func newestTranscript(dir string) (fileStat, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fileStat{}, false
	}
	var best fileStat
	found := false
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), transcriptExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !found || info.ModTime().After(best.mtime) {
			best = fileStat{path: filepath.Join(dir, entry.Name()), mtime: info.ModTime()}
			found = true
		}
	}
	return best, found
}

func lastMessageOf(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return transcript.ReadString(string(data)).LastMessage
}

// decodeCwdGuess reconstructs a plausible absolute cwd from an encoded
// directory name by replacing every "-" with "/". This is lossy when
// the original path segments themselves contained hyphens, matching
// the agent's own encoding, which is likewise lossy; callers that need
// the authoritative cwd should prefer the transcript's own `cwd` field
// (see transcript.Result.Cwd) over this reconstruction.
func decodeCwdGuess(encodedDir string) string {
	if encodedDir == "" {
		return "/"
	}
	return strings.ReplaceAll(encodedDir, "-", "/")
}

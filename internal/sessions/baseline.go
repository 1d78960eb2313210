package sessions

import "os"

// Baseline is a {filePath, sessionId, size} snapshot captured
// immediately before injection, so the turn watcher sees only the
// post-injection tail.
type Baseline struct {
	FilePath  string
	SessionID string
	Size      int64
}

// SnapshotBaseline resolves the current session file for cwd and
// stats its size. Returns ok=false if no session file exists yet for
// this cwd — the caller (WatcherManager) treats that as "nothing to
// watch" and completes immediately.
func (idx *Index) SnapshotBaseline(cwd string) (Baseline, bool) {
	ref, ok := idx.GetLatestSessionFileForCwd(cwd)
	if !ok {
		return Baseline{}, false
	}
	info, err := os.Stat(ref.FilePath)
	if err != nil {
		return Baseline{}, false
	}
	return Baseline{
		FilePath:  ref.FilePath,
		SessionID: ref.SessionID,
		Size:      info.Size(),
	}, true
}

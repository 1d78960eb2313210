package watch

import (
	"context"
	"time"

	"github.com/vanducng/goclaw-bridge/internal/sessions"
)

// runCompactionPoll is the background task attached to generation gen.
// Every compactionPollInterval it re-resolves the latest session file
// for cwd; if it differs from the file currently being watched, the
// agent has rotated (compaction or /clear) and this restarts observation
// on the new file with baseline 0, reusing the same outer callbacks.
// It aborts silently once superseded by a later StartInjectionWatcher
// call, and gives up (firing onComplete) after compactionGiveUp.
func (m *Manager) runCompactionPoll(ctx context.Context, gen int, initialFile, cwd, chatID string, onText func(TextEvent), outerComplete func()) {
	ticker := time.NewTicker(compactionPollInterval)
	defer ticker.Stop()

	deadline := time.Now().Add(compactionGiveUp)
	currentFile := initialFile

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.superseded(gen) {
				return
			}

			ref, ok := m.Index.GetLatestSessionFileForCwd(cwd)
			if ok && ref.FilePath != currentFile {
				m.rotate(ctx, ref, cwd, chatID, onText, outerComplete)
				currentFile = ref.FilePath
				deadline = time.Now().Add(compactionGiveUp)
				continue
			}

			if time.Now().After(deadline) {
				m.mu.Lock()
				w := m.active
				m.active = nil
				m.mu.Unlock()
				if w != nil {
					w.terminateExternally(true)
				}
				return
			}
		}
	}
}

func (m *Manager) superseded(gen int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen != m.generation
}

// rotate stops the watcher on the old file (without firing outer
// onComplete) and starts a fresh one on the rotated file at baseline 0.
// It does not spawn a new runCompactionPoll: the caller's poll loop
// keeps running under the same generation and continues observing the
// watcher rotate just armed.
func (m *Manager) rotate(ctx context.Context, ref sessions.FileRef, cwd, chatID string, onText func(TextEvent), outerComplete func()) {
	m.mu.Lock()
	old := m.active
	m.active = nil
	m.mu.Unlock()

	if old != nil {
		old.terminateExternally(false)
	}

	baseline := sessions.Baseline{FilePath: ref.FilePath, SessionID: ref.SessionID, Size: 0}
	m.startWatcher(ctx, baseline, cwd, chatID, onText, outerComplete)
}

package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vanducng/goclaw-bridge/internal/notify"
	"github.com/vanducng/goclaw-bridge/internal/sessions"
)

var (
	compactionPollInterval = 3 * time.Second
	compactionGiveUp       = 60 * time.Second
)

// Attached is an alias of sessions.Attached, exposed from this package
// for callers of the manager.
type Attached = sessions.Attached

// Manager is the singleton owner of at most one active TurnWatcher. It
// serialises turns, composes notification side effects around
// caller-supplied callbacks, and rolls over to new session files after
// compaction.
type Manager struct {
	Index  *sessions.Index
	Marker sessions.Marker
	Notify *notify.Notifier

	mu             sync.Mutex
	active         *Watcher
	generation     int
	pendingImages  map[string][]Image
	latestImageKey string
}

// New builds a Manager over idx/marker/notifier.
func New(idx *sessions.Index, marker sessions.Marker, notifier *notify.Notifier) *Manager {
	return &Manager{Index: idx, Marker: marker, Notify: notifier}
}

// SnapshotBaseline delegates to the session index.
func (m *Manager) SnapshotBaseline(cwd string) (sessions.Baseline, bool) {
	return m.Index.SnapshotBaseline(cwd)
}

// StartOptions configures one call to StartInjectionWatcher.
type StartOptions struct {
	Attached    Attached
	ChatID      string
	OnText      func(TextEvent)
	OnComplete  func()
	PreBaseline *sessions.Baseline
}

// StartInjectionWatcher arms a watcher for one turn. See the component
// design: increments generation, flushes any prior watcher, resolves
// the baseline (rewriting the attached marker if the session rotated
// since attach), wraps callbacks with notification side effects, and
// starts the compaction poll.
func (m *Manager) StartInjectionWatcher(ctx context.Context, opts StartOptions) {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.stopAndFlushLocked()

	var baseline sessions.Baseline
	var ok bool
	if opts.PreBaseline != nil {
		baseline, ok = *opts.PreBaseline, true
	} else {
		baseline, ok = m.Index.SnapshotBaseline(opts.Attached.Cwd)
	}
	if !ok {
		if opts.OnComplete != nil {
			opts.OnComplete()
		}
		return
	}

	if baseline.SessionID != opts.Attached.SessionID {
		if err := m.Marker.Set(baseline.SessionID, opts.Attached.Cwd); err != nil {
			slog.Warn("watcher manager: failed to rewrite attached marker on rotation", "error", err)
		}
	}

	m.arm(ctx, baseline, opts.Attached.Cwd, opts.ChatID, opts.OnText, opts.OnComplete, gen)
}

// arm starts a watcher for baseline and spawns the compaction poll that
// supersedes it on rotation. Used only for a turn's initial watcher; a
// rotation detected mid-poll instead calls startWatcher directly so the
// existing runCompactionPoll loop keeps observing in place rather than
// a sibling goroutine being spawned for the same generation.
func (m *Manager) arm(ctx context.Context, baseline sessions.Baseline, cwd, chatID string, onText func(TextEvent), outerComplete func(), gen int) {
	m.startWatcher(ctx, baseline, cwd, chatID, onText, outerComplete)
	go m.runCompactionPoll(ctx, gen, baseline.FilePath, cwd, chatID, onText, outerComplete)
}

func (m *Manager) startWatcher(ctx context.Context, baseline sessions.Baseline, cwd, chatID string, onText func(TextEvent), outerComplete func()) {
	var textDelivered bool
	var mu sync.Mutex

	cb := Callbacks{
		OnText: func(ev TextEvent) {
			mu.Lock()
			textDelivered = true
			mu.Unlock()
			if onText != nil {
				onText(ev)
			} else if m.Notify != nil {
				m.Notify.Text(ctx, chatID, ev.Text)
			}
		},
		OnPing: func() {
			if m.Notify != nil {
				m.Notify.Ping(ctx, chatID)
			}
		},
		OnImages: func(imgs []Image) {
			if len(imgs) == 0 {
				return
			}
			key := time.Now().Format(time.RFC3339Nano)
			m.mu.Lock()
			if m.pendingImages == nil {
				m.pendingImages = make(map[string][]Image)
			}
			m.pendingImages[key] = imgs
			m.latestImageKey = key
			m.mu.Unlock()

			if m.Notify == nil {
				return
			}
			converted := make([]notify.Image, 0, len(imgs))
			for _, im := range imgs {
				converted = append(converted, notify.Image{MediaType: im.MediaType, Data: im.Data})
			}
			m.Notify.OfferImages(ctx, chatID, key, converted)
		},
		OnComplete: func() {
			mu.Lock()
			delivered := textDelivered
			mu.Unlock()
			if m.Notify != nil {
				m.Notify.Done(ctx, chatID, delivered)
			}
			m.clearActive()
			if outerComplete != nil {
				outerComplete()
			}
		},
	}

	w := Start(baseline.FilePath, baseline.Size, baseline.SessionID, cwd, sessions.DecodeProjectName(sessions.EncodeCwd(cwd)), cb)

	m.mu.Lock()
	m.active = w
	m.mu.Unlock()
}

func (m *Manager) clearActive() {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
}

// Clear stops any in-flight watcher without firing its completion —
// used only at detach or shutdown.
func (m *Manager) Clear() {
	m.mu.Lock()
	w := m.active
	m.active = nil
	m.mu.Unlock()

	if w != nil {
		w.terminateExternally(false)
	}
}

// StopAndFlush stops any in-flight watcher and fires its completion
// (the notification wrapper plus the caller's outer onComplete) —
// used when a new user message supersedes a running turn.
func (m *Manager) StopAndFlush() {
	m.mu.Lock()
	w := m.active
	m.active = nil
	m.mu.Unlock()

	if w != nil {
		w.terminateExternally(true)
	}
}

func (m *Manager) stopAndFlushLocked() {
	m.StopAndFlush()
}

// IsActive reports whether a watcher is currently armed.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// LatestImageKey returns the most recently staged image batch's key,
// for the bare "/images" command with no explicit key argument.
func (m *Manager) LatestImageKey() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latestImageKey == "" {
		return "", false
	}
	return m.latestImageKey, true
}

// PopImages removes and returns the image batch staged under key. Entries
// are popped on use: a second call for the same key returns ok=false.
func (m *Manager) PopImages(key string) ([]Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	imgs, ok := m.pendingImages[key]
	if !ok {
		return nil, false
	}
	delete(m.pendingImages, key)
	if m.latestImageKey == key {
		m.latestImageKey = ""
	}
	return imgs, true
}

// Package watch implements TurnWatcher (observes one transcript from a
// byte baseline) and WatcherManager (serialises turns, handles
// rotation, composes notification side effects around caller
// callbacks).
package watch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanducng/goclaw-bridge/internal/transcript"
)

// Tunables, named per the concurrency model's timeout table. Declared
// as variables (not constants) so tests can shrink them rather than
// waiting out production-scale timeouts.
var (
	ResultGrace  = 500 * time.Millisecond
	IdlePing     = 60 * time.Second
	HardIdle     = 120 * time.Second
	pollInterval = 2 * time.Second
)

// state enumerates a Watcher's lifecycle, replacing a closure-captured
// "closed" boolean with an explicit value.
type state int

const (
	stateArmed state = iota
	stateTerminated
)

// TextEvent is delivered once per unique assistant text block observed
// after the baseline.
type TextEvent struct {
	SessionID   string
	ProjectName string
	Cwd         string
	FilePath    string
	Text        string
}

// Image is one image file referenced by a Write tool_use block in the
// watched tail, read from disk and base64-ready at delivery time.
type Image struct {
	MediaType string
	Data      []byte
}

// Callbacks is the small struct of function values a TurnWatcher
// drives, replacing dynamic callback fan-out. OnPing, OnImages and
// OnComplete are optional; OnText is not.
type Callbacks struct {
	OnText     func(TextEvent)
	OnPing     func()
	OnComplete func()
	OnImages   func([]Image)
}

// Watcher observes one transcript file from a captured byte baseline.
type Watcher struct {
	filePath    string
	sessionID   string
	cwd         string
	projectName string

	cb Callbacks

	mu         sync.Mutex
	st         state
	cursor     int64
	pending    []byte // unterminated tail from the last read
	seen       map[string]bool
	imagePaths map[string]bool
	resultSeen bool

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	doneCh    chan struct{}

	graceOnce  sync.Once
	graceTimer *time.Timer
	idleTimer  *time.Timer
	pingTimer  *time.Timer

	completeOnce sync.Once
}

// Start arms a new Watcher against filePath, ignoring everything at or
// before baselineSize.
func Start(filePath string, baselineSize int64, sessionID, cwd, projectName string, cb Callbacks) *Watcher {
	w := &Watcher{
		filePath:    filePath,
		sessionID:   sessionID,
		cwd:         cwd,
		projectName: projectName,
		cb:          cb,
		cursor:      baselineSize,
		seen:        make(map[string]bool),
		imagePaths:  make(map[string]bool),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}

	if fw, err := fsnotify.NewWatcher(); err == nil {
		if err := fw.Add(filePath); err == nil {
			w.fsWatcher = fw
		} else {
			fw.Close()
			slog.Debug("turnwatcher: fsnotify add failed, relying on poll fallback", "file", filePath, "error", err)
		}
	} else {
		slog.Debug("turnwatcher: fsnotify init failed, relying on poll fallback", "error", err)
	}

	w.idleTimer = time.AfterFunc(HardIdle, w.onHardIdle)
	w.pingTimer = time.AfterFunc(IdlePing, w.onIdlePing)

	go w.run()
	return w
}

// Stop closes the underlying watcher and clears pending grace timers.
// Calling it after termination is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.st == stateTerminated {
		w.mu.Unlock()
		return
	}
	w.st = stateTerminated
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	defer w.cleanupTimers()
	defer func() {
		if w.fsWatcher != nil {
			w.fsWatcher.Close()
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var fsEvents chan fsnotify.Event
	var fsErrors chan error
	if w.fsWatcher != nil {
		fsEvents = w.fsWatcher.Events
		fsErrors = w.fsWatcher.Errors
	}

	for {
		select {
		case <-w.stopCh:
			return
		case <-fsEvents:
			w.onChange()
		case err := <-fsErrors:
			slog.Warn("turnwatcher: fsnotify error, continuing on poll fallback", "file", w.filePath, "error", err)
		case <-ticker.C:
			w.onChange()
		}
	}
}

func (w *Watcher) cleanupTimers() {
	if w.graceTimer != nil {
		w.graceTimer.Stop()
	}
	if w.idleTimer != nil {
		w.idleTimer.Stop()
	}
	if w.pingTimer != nil {
		w.pingTimer.Stop()
	}
}

func (w *Watcher) isTerminated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st == stateTerminated
}

// onChange reads bytes (cursor, currentSize] and processes new lines.
// I/O errors are swallowed — the watcher keeps watching, per the
// failure model (permanent disappearance surfaces as silent idle).
func (w *Watcher) onChange() {
	if w.isTerminated() {
		return
	}

	f, err := os.Open(w.filePath)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}

	w.mu.Lock()
	cursor := w.cursor
	w.mu.Unlock()

	currentSize := info.Size()
	if currentSize <= cursor {
		return
	}

	if _, err := f.Seek(cursor, 0); err != nil {
		return
	}

	buf := make([]byte, currentSize-cursor)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return
	}
	buf = buf[:n]

	w.resetIdleTimers()
	w.processChunk(buf, cursor+int64(n))
}

// processChunk splits buf into complete lines (carrying over any
// trailing partial line to the next call), parses new assistant text
// and tool_use blocks, and emits onText/onImages/onComplete as needed.
func (w *Watcher) processChunk(buf []byte, newCursor int64) {
	w.mu.Lock()
	combined := append(w.pending, buf...)
	w.mu.Unlock()

	var lines [][]byte
	lastNewline := bytes.LastIndexByte(combined, '\n')
	var toParse []byte
	var remainder []byte
	if lastNewline >= 0 {
		toParse = combined[:lastNewline+1]
		remainder = combined[lastNewline+1:]
	} else {
		remainder = combined
	}

	if len(toParse) > 0 {
		scanner := bufio.NewScanner(bytes.NewReader(toParse))
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			lines = append(lines, line)
		}
	}

	w.mu.Lock()
	w.cursor = newCursor
	w.pending = append([]byte(nil), remainder...)
	w.mu.Unlock()

	w.handleLines(lines)
}

func (w *Watcher) handleLines(lines [][]byte) {
	hasResult := false

	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}

		var rec struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			continue
		}

		switch rec.Type {
		case transcript.KindResult:
			hasResult = true
		case transcript.KindAssistant:
			w.handleAssistantLine(trimmed)
		}
	}

	if hasResult {
		w.onResultSeen()
	}
}

func (w *Watcher) handleAssistantLine(line []byte) {
	res := transcript.Read([][]byte{line})
	for _, text := range res.AllMessages {
		w.emitText(text)
	}
	for _, call := range res.ToolCalls {
		if call.Name != transcript.ToolWrite {
			continue
		}
		fp, _ := call.Input["file_path"].(string)
		if fp == "" {
			continue
		}
		if _, ok := transcript.ImageMIME(fp); !ok {
			continue
		}
		w.mu.Lock()
		w.imagePaths[fp] = true
		w.mu.Unlock()
	}
}

// emitText delivers a text block at most once per (watch, blockText)
// pair, suppressing duplicates even across repeated flushes of the
// same source line.
func (w *Watcher) emitText(text string) {
	w.mu.Lock()
	if w.seen[text] {
		w.mu.Unlock()
		return
	}
	w.seen[text] = true
	delivered := len(w.seen)
	w.mu.Unlock()

	if delivered == 1 {
		w.stopPingTimer()
	}

	if w.cb.OnText != nil {
		w.cb.OnText(TextEvent{
			SessionID:   w.sessionID,
			ProjectName: w.projectName,
			Cwd:         w.cwd,
			FilePath:    w.filePath,
			Text:        text,
		})
	}
}

func (w *Watcher) onResultSeen() {
	w.mu.Lock()
	already := w.resultSeen
	w.resultSeen = true
	w.mu.Unlock()
	if already {
		return
	}

	w.graceOnce.Do(func() {
		w.graceTimer = time.AfterFunc(ResultGrace, w.terminate)
	})
}

func (w *Watcher) onHardIdle() {
	w.terminate()
}

func (w *Watcher) onIdlePing() {
	if w.isTerminated() {
		return
	}
	w.mu.Lock()
	delivered := len(w.seen) > 0
	w.mu.Unlock()
	if delivered {
		return
	}
	if w.cb.OnPing != nil {
		w.cb.OnPing()
	}
	w.pingTimer = time.AfterFunc(IdlePing, w.onIdlePing)
}

func (w *Watcher) stopPingTimer() {
	if w.pingTimer != nil {
		w.pingTimer.Stop()
	}
}

func (w *Watcher) resetIdleTimers() {
	if w.idleTimer != nil {
		w.idleTimer.Reset(HardIdle)
	}
}

// terminate fires onComplete exactly once, then stops the watcher.
func (w *Watcher) terminate() {
	w.completeOnce.Do(func() {
		if w.cb.OnImages != nil {
			if imgs := w.readPendingImages(); len(imgs) > 0 {
				w.cb.OnImages(imgs)
			}
		}
		if w.cb.OnComplete != nil {
			w.cb.OnComplete()
		}
	})
	w.Stop()
}

func (w *Watcher) readPendingImages() []Image {
	w.mu.Lock()
	paths := make([]string, 0, len(w.imagePaths))
	for p := range w.imagePaths {
		paths = append(paths, p)
	}
	w.mu.Unlock()

	var images []Image
	for _, p := range paths {
		mime, ok := transcript.ImageMIME(p)
		if !ok {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			// The agent may have moved or deleted the file between
			// tool_use and this read; skip silently per current policy.
			slog.Debug("turnwatcher: image file unreadable, skipping", "path", p, "error", err)
			continue
		}
		images = append(images, Image{MediaType: mime, Data: data})
	}
	return images
}

// terminateExternally is used by WatcherManager.stopAndFlush/clear to
// stop a watcher that has not reached a natural termination.
func (w *Watcher) terminateExternally(fireComplete bool) {
	if fireComplete {
		w.completeOnce.Do(func() {
			if w.cb.OnComplete != nil {
				w.cb.OnComplete()
			}
		})
	} else {
		// Mark complete as already "fired" so a later natural termination
		// (a race with a trailing fsnotify event) cannot double-fire.
		w.completeOnce.Do(func() {})
	}
	w.Stop()
}

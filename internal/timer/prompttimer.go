// Package timer implements PromptTimer: a periodic injector sharing the
// WatcherManager so its ticks behave exactly like a user message on the
// same pipeline — no races, since the manager serialises.
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/vanducng/goclaw-bridge/internal/sessions"
	"github.com/vanducng/goclaw-bridge/internal/tmux"
	"github.com/vanducng/goclaw-bridge/internal/watch"
)

// cronPollInterval is how often runCron re-evaluates the cron
// expression; tests shrink it to exercise dedup without waiting on
// real minute boundaries.
var cronPollInterval = time.Second

// Settings is the prior configuration returned by StopTimer for UI echo.
type Settings struct {
	Spec   string // either a flat minutes string or a cron expression
	Prompt string
}

// Timer holds at most one active schedule. StartTimer replaces any
// existing one.
type Timer struct {
	Marker   sessions.Marker
	Locator  *tmux.Locator
	Injector *tmux.Injector
	Manager  *watch.Manager
	ChatID   func() string

	mu       sync.Mutex
	cancel   context.CancelFunc
	settings Settings
}

// New builds a Timer over its collaborators.
func New(marker sessions.Marker, locator *tmux.Locator, injector *tmux.Injector, manager *watch.Manager, chatID func() string) *Timer {
	return &Timer{Marker: marker, Locator: locator, Injector: injector, Manager: manager, ChatID: chatID}
}

// StartTimer replaces any existing schedule with spec (either a flat
// minutes count like "30", or a 5-field cron expression) and prompt.
func (t *Timer) StartTimer(ctx context.Context, spec, prompt string) error {
	interval, isCron, err := parseSpec(spec)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.settings = Settings{Spec: spec, Prompt: prompt}
	t.mu.Unlock()

	if isCron {
		go t.runCron(runCtx, spec, prompt)
	} else {
		go t.runInterval(runCtx, interval, prompt)
	}
	return nil
}

// StopTimer clears the schedule and returns the prior settings.
func (t *Timer) StopTimer() Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	prior := t.settings
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.settings = Settings{}
	return prior
}

func parseSpec(spec string) (time.Duration, bool, error) {
	if minutes, err := strconv.Atoi(spec); err == nil && minutes > 0 {
		return time.Duration(minutes) * time.Minute, false, nil
	}
	if gronx.IsValid(spec) {
		return 0, true, nil
	}
	return 0, false, fmt.Errorf("timer: %q is neither a positive minute count nor a valid cron expression", spec)
}

func (t *Timer) runInterval(ctx context.Context, interval time.Duration, prompt string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx, prompt)
		}
	}
}

// runCron polls expr every second since gronx has no wait-for-next-tick
// helper, but IsDue matches at minute granularity, so lastFired tracks
// the minute already ticked and suppresses the other ~59 due ticks in
// that same occurrence.
func (t *Timer) runCron(ctx context.Context, expr, prompt string) {
	gron := gronx.New()
	ticker := time.NewTicker(cronPollInterval)
	defer ticker.Stop()

	var lastFired time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due, err := gron.IsDue(expr, now)
			if err != nil {
				slog.Warn("prompt timer: cron evaluation failed", "expr", expr, "error", err)
				continue
			}
			minute := now.Truncate(time.Minute)
			if due && !minute.Equal(lastFired) {
				lastFired = minute
				t.tick(ctx, prompt)
			}
		}
	}
}

// tick behaves exactly like a user message on the injection pipeline:
// resolve the attached session, locate the pane, capture a baseline,
// inject, then arm the watcher with that same baseline.
func (t *Timer) tick(ctx context.Context, prompt string) {
	attached, ok := t.Marker.Get()
	if !ok {
		slog.Debug("prompt timer: no attached session, skipping tick")
		return
	}

	found := t.Locator.Find(ctx, attached.Cwd)
	if !found.Found {
		slog.Debug("prompt timer: no pane for attached cwd, skipping tick", "cwd", attached.Cwd)
		return
	}

	baseline, ok := t.Manager.SnapshotBaseline(attached.Cwd)
	if !ok {
		slog.Debug("prompt timer: no session file to baseline, skipping tick")
		return
	}

	res := t.Injector.Inject(ctx, attached.Cwd, prompt, found.PaneID)
	if !res.Injected {
		slog.Warn("prompt timer: injection failed", "reason", res.Reason)
		return
	}

	chatID := ""
	if t.ChatID != nil {
		chatID = t.ChatID()
	}

	t.Manager.StartInjectionWatcher(ctx, watch.StartOptions{
		Attached:    attached,
		ChatID:      chatID,
		PreBaseline: &baseline,
	})
}

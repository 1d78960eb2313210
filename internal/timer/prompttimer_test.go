package timer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
	"github.com/vanducng/goclaw-bridge/internal/notify"
	"github.com/vanducng/goclaw-bridge/internal/sessions"
	"github.com/vanducng/goclaw-bridge/internal/tmux"
	"github.com/vanducng/goclaw-bridge/internal/watch"
)

// permissiveRunner answers list-panes with a single pane at cwd and
// records every send-keys invocation for assertions; everything else
// succeeds with empty output.
type permissiveRunner struct {
	mu    sync.Mutex
	cwd   string
	paneID string
	sent  []string
}

func (r *permissiveRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	joined := name + " " + strings.Join(args, " ")
	if name == "tmux" && len(args) > 0 && args[0] == "list-panes" {
		return r.paneID + " 1000 claude " + r.cwd, nil
	}
	r.sent = append(r.sent, joined)
	return "", nil
}

func (r *permissiveRunner) sendCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type nullSurface struct{}

func (nullSurface) SendText(context.Context, string, string) (string, error) { return "", nil }
func (nullSurface) SendTextWithKeyboard(context.Context, string, string, chatsurface.Keyboard) (string, error) {
	return "", nil
}
func (nullSurface) EditMessageText(context.Context, string, string, string) error { return nil }
func (nullSurface) EditMessageKeyboard(context.Context, string, string, chatsurface.Keyboard) error {
	return nil
}
func (nullSurface) SendPhoto(context.Context, string, []byte, string, string) error { return nil }
func (nullSurface) SendVoice(context.Context, string, []byte, string) error         { return nil }
func (nullSurface) AnswerCallback(context.Context, string, string) error            { return nil }
func (nullSurface) SendTyping(context.Context, string) error                        { return nil }

func newTestTimer(t *testing.T, cwd string) (*Timer, *permissiveRunner) {
	t.Helper()
	dir := t.TempDir()
	runner := &permissiveRunner{cwd: cwd, paneID: "%1"}
	locator := &tmux.Locator{Runner: runner}
	injector := tmux.NewInjector(locator)

	idx := &sessions.Index{ProjectsRoot: filepath.Join(dir, "projects")}
	marker := sessions.Marker{ConfigDir: dir, HomeCwd: cwd}
	require.NoError(t, marker.Set("sess-1", cwd))

	projDir := filepath.Join(idx.ProjectsRoot, sessions.EncodeCwd(cwd))
	require.NoError(t, os.MkdirAll(projDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projDir, "sess-1.jsonl"), []byte(""), 0o644))

	mgr := watch.New(idx, marker, notify.New(nullSurface{}))
	tm := New(marker, locator, injector, mgr, func() string { return "chat-1" })
	return tm, runner
}

func TestParseSpecMinutes(t *testing.T) {
	d, isCron, err := parseSpec("15")
	require.NoError(t, err)
	assert.False(t, isCron)
	assert.Equal(t, 15*time.Minute, d)
}

func TestParseSpecCron(t *testing.T) {
	_, isCron, err := parseSpec("*/5 * * * *")
	require.NoError(t, err)
	assert.True(t, isCron)
}

func TestParseSpecInvalid(t *testing.T) {
	_, _, err := parseSpec("not a schedule")
	assert.Error(t, err)
}

func TestStartTimerInjectsOnEachTick(t *testing.T) {
	cwd := t.TempDir()
	tm, runner := newTestTimer(t, cwd)

	// 1 is not a valid minute spec for a sub-second test; drive tick
	// directly instead of waiting on a real ticker.
	tm.tick(context.Background(), "status?")
	assert.GreaterOrEqual(t, runner.sendCount(), 2, "expected a literal send-keys and an Enter")
}

func TestStartTimerReplacesPriorSchedule(t *testing.T) {
	cwd := t.TempDir()
	tm, _ := newTestTimer(t, cwd)

	require.NoError(t, tm.StartTimer(context.Background(), "30", "first"))
	first := tm.settings
	require.NoError(t, tm.StartTimer(context.Background(), "45", "second"))

	tm.mu.Lock()
	second := tm.settings
	tm.mu.Unlock()

	assert.NotEqual(t, first, second)
	assert.Equal(t, "second", second.Prompt)
}

func TestStopTimerReturnsPriorSettingsAndCancels(t *testing.T) {
	cwd := t.TempDir()
	tm, _ := newTestTimer(t, cwd)

	require.NoError(t, tm.StartTimer(context.Background(), "30", "ping"))
	prior := tm.StopTimer()
	assert.Equal(t, "30", prior.Spec)
	assert.Equal(t, "ping", prior.Prompt)

	again := tm.StopTimer()
	assert.Equal(t, Settings{}, again)
}

// TestRunCronFiresOnceWithinADueMinute guards against re-injecting the
// same scheduled prompt on every poll tick within one due minute.
func TestRunCronFiresOnceWithinADueMinute(t *testing.T) {
	cwd := t.TempDir()
	tm, runner := newTestTimer(t, cwd)

	cronPollInterval = 10 * time.Millisecond
	t.Cleanup(func() { cronPollInterval = time.Second })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tm.runCron(ctx, "* * * * *", "scheduled prompt")

	time.Sleep(300 * time.Millisecond)
	cancel()

	assert.Equal(t, 2, runner.sendCount(), "expected exactly one injected tick (literal send-keys + Enter)")
}

func TestTickSkipsWhenNoAttachedSession(t *testing.T) {
	cwd := t.TempDir()
	tm, runner := newTestTimer(t, cwd)
	tm.Marker = sessions.Marker{ConfigDir: t.TempDir(), HomeCwd: cwd}

	tm.tick(context.Background(), "hello")
	assert.Equal(t, 0, runner.sendCount())
}

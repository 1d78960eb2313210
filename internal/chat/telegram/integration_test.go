package telegram

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
	"github.com/vanducng/goclaw-bridge/internal/coordinator"
	"github.com/vanducng/goclaw-bridge/internal/notify"
	"github.com/vanducng/goclaw-bridge/internal/sessions"
	"github.com/vanducng/goclaw-bridge/internal/tmux"
	"github.com/vanducng/goclaw-bridge/internal/watch"
)

type fakeRunner struct{ panes string }

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	if name == "tmux" && len(args) > 0 && args[0] == "list-panes" {
		return r.panes, nil
	}
	return "", nil
}

type fakeSurface struct{ texts []string }

func (s *fakeSurface) SendText(_ context.Context, _, text string) (string, error) {
	s.texts = append(s.texts, text)
	return "msg-1", nil
}
func (s *fakeSurface) SendTextWithKeyboard(_ context.Context, _, text string, _ chatsurface.Keyboard) (string, error) {
	s.texts = append(s.texts, text)
	return "msg-2", nil
}
func (s *fakeSurface) EditMessageText(context.Context, string, string, string) error { return nil }
func (s *fakeSurface) EditMessageKeyboard(context.Context, string, string, chatsurface.Keyboard) error {
	return nil
}
func (s *fakeSurface) SendPhoto(context.Context, string, []byte, string, string) error { return nil }
func (s *fakeSurface) SendVoice(context.Context, string, []byte, string) error         { return nil }
func (s *fakeSurface) AnswerCallback(context.Context, string, string) error            { return nil }
func (s *fakeSurface) SendTyping(context.Context, string) error                        { return nil }

// TestParsedCommandRoutesThroughHandleCommand guards against
// parseCommand and HandleCommand disagreeing on whether a command name
// carries its leading "/" — a real "/status" message must reach
// reportStatus, not the "unknown command" fallback.
func TestParsedCommandRoutesThroughHandleCommand(t *testing.T) {
	cwd := t.TempDir()
	dir := t.TempDir()
	runner := &fakeRunner{panes: "%1 1000 claude " + cwd}
	locator := &tmux.Locator{Runner: runner}
	injector := tmux.NewInjector(locator)

	idx := &sessions.Index{ProjectsRoot: filepath.Join(dir, "projects")}
	marker := sessions.Marker{ConfigDir: dir, HomeCwd: cwd}
	projDir := filepath.Join(idx.ProjectsRoot, sessions.EncodeCwd(cwd))
	require.NoError(t, os.MkdirAll(projDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projDir, "sess-1.jsonl"), []byte(""), 0o644))
	require.NoError(t, marker.Set("sess-1", cwd))

	surface := &fakeSurface{}
	mgr := watch.New(idx, marker, notify.New(surface))
	c := coordinator.New(coordinator.Config{ConfigDir: dir}, locator, injector, mgr, idx, marker, surface)

	cmd := parseCommand("c1", "/status")
	c.HandleCommand(context.Background(), cmd)

	require.NotEmpty(t, surface.texts)
	last := surface.texts[len(surface.texts)-1]
	assert.NotContains(t, last, "unknown command")
	assert.Contains(t, last, "sess-1")
}

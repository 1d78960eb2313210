package permission

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestPermissionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	var got Event
	received := make(chan struct{}, 1)

	b := &Bridge{
		ConfigDir: dir,
		OnRequest: func(ev Event) {
			got = ev
			received <- struct{}{}
		},
	}
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	reqPath := filepath.Join(dir, "permission-request-xyz.json")
	require.NoError(t, os.WriteFile(reqPath, []byte(
		`{"requestId":"xyz","toolName":"Bash","toolInput":"rm -rf /tmp/test"}`), 0o644))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never fired OnRequest")
	}
	assert.Equal(t, "xyz", got.RequestID)
	assert.Equal(t, "Bash", got.ToolName)
	assert.Equal(t, "rm -rf /tmp/test", got.ToolInput)
	assert.Empty(t, got.ToolCommand)

	require.NoError(t, b.Respond("xyz", ActionApprove))
	respData, err := os.ReadFile(filepath.Join(dir, "permission-response-xyz"))
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, string(respData))
}

func TestPermissionIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	called := false
	b := &Bridge{ConfigDir: dir, OnRequest: func(Event) { called = true }}
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "attached"), []byte("x\ny"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.False(t, called)
}

func TestPreviewFromTranscriptUsesLastToolUse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"ls -la"}}]}}`+"\n"),
		0o644))
	assert.Equal(t, "ls -la", previewFromTranscript(path))
}

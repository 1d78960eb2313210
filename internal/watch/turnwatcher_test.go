package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withShortTimeouts(t *testing.T) {
	t.Helper()
	origGrace, origPing, origIdle, origPoll := ResultGrace, IdlePing, HardIdle, pollInterval
	ResultGrace = 50 * time.Millisecond
	IdlePing = 80 * time.Millisecond
	HardIdle = 300 * time.Millisecond
	pollInterval = 20 * time.Millisecond
	t.Cleanup(func() {
		ResultGrace, IdlePing, HardIdle, pollInterval = origGrace, origPing, origIdle, origPoll
	})
}

type collector struct {
	mu       sync.Mutex
	texts    []string
	pings    int
	images   [][]Image
	complete int
}

func (c *collector) callbacks() Callbacks {
	return Callbacks{
		OnText: func(ev TextEvent) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.texts = append(c.texts, ev.Text)
		},
		OnPing: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.pings++
		},
		OnImages: func(imgs []Image) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.images = append(c.images, imgs)
		},
		OnComplete: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.complete++
		},
	}
}

func (c *collector) snapshot() ([]string, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...), c.pings, c.complete
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestTurnWatcherTextAfterBaselineThenComplete(t *testing.T) {
	withShortTimeouts(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "s.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	col := &collector{}
	w := Start(path, 0, "sess", "/tmp/p", "p", col.callbacks())
	defer w.Stop()

	appendLine(t, path, `{"type":"assistant","cwd":"/tmp/p","message":{"content":[{"type":"text","text":"Build succeeded."}]}}`)

	waitFor(t, time.Second, func() bool {
		texts, _, _ := col.snapshot()
		return len(texts) == 1
	})
	texts, _, complete := col.snapshot()
	assert.Equal(t, []string{"Build succeeded."}, texts)
	assert.Equal(t, 0, complete)

	appendLine(t, path, `{"type":"result"}`)
	waitFor(t, time.Second, func() bool {
		_, _, c := col.snapshot()
		return c == 1
	})
}

func TestTurnWatcherPreBaselineIgnored(t *testing.T) {
	withShortTimeouts(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "s.jsonl")
	line := []byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"Old message."}]}}` + "\n")
	require.NoError(t, os.WriteFile(path, line, 0o644))

	col := &collector{}
	w := Start(path, int64(len(line)), "sess", "/tmp/p", "p", col.callbacks())
	defer w.Stop()

	time.Sleep(150 * time.Millisecond)
	texts, _, _ := col.snapshot()
	assert.Empty(t, texts)
}

func TestTurnWatcherDeduplicatesRepeatedBlock(t *testing.T) {
	withShortTimeouts(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "s.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	col := &collector{}
	w := Start(path, 0, "sess", "/tmp/p", "p", col.callbacks())
	defer w.Stop()

	rec := `{"type":"assistant","message":{"content":[{"type":"text","text":"dup"}]}}`
	appendLine(t, path, rec)
	appendLine(t, path, rec)

	time.Sleep(150 * time.Millisecond)
	texts, _, _ := col.snapshot()
	assert.Equal(t, []string{"dup"}, texts)
}

func TestTurnWatcherInterleavedBlocksInOrder(t *testing.T) {
	withShortTimeouts(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "s.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	col := &collector{}
	w := Start(path, 0, "sess", "/tmp/p", "p", col.callbacks())
	defer w.Stop()

	appendLine(t, path, `{"type":"assistant","message":{"content":[{"type":"text","text":"A"}]}}`)
	appendLine(t, path, `{"type":"assistant","message":{"content":[{"type":"text","text":"B"}]}}`)

	waitFor(t, time.Second, func() bool {
		texts, _, _ := col.snapshot()
		return len(texts) == 2
	})
	texts, _, _ := col.snapshot()
	assert.Equal(t, []string{"A", "B"}, texts)
}

func TestTurnWatcherHardIdleTerminatesOnce(t *testing.T) {
	withShortTimeouts(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "s.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	col := &collector{}
	w := Start(path, 0, "sess", "/tmp/p", "p", col.callbacks())
	defer w.Stop()

	waitFor(t, time.Second, func() bool {
		_, _, c := col.snapshot()
		return c == 1
	})
	time.Sleep(50 * time.Millisecond)
	_, _, complete := col.snapshot()
	assert.Equal(t, 1, complete)
}

func TestTurnWatcherStopAfterTerminationIsNoop(t *testing.T) {
	withShortTimeouts(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "s.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	col := &collector{}
	w := Start(path, 0, "sess", "/tmp/p", "p", col.callbacks())
	w.terminate()
	assert.NotPanics(t, func() { w.Stop() })
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
}

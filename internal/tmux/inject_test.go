package tmux

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInjectSendsTextThenEnter(t *testing.T) {
	runner := &fakeRunner{output: map[string]string{
		"tmux list-panes -a -F " + listFormat: "%1 111 claude /repo/x",
	}}
	loc := &Locator{Runner: runner, ProcessFinder: &fakeProcessFinder{}}
	inj := NewInjector(loc)

	res := inj.Inject(context.Background(), "/repo/x", "hello 'world'", "")
	assert.True(t, res.Injected)
	assert.Contains(t, runner.calls, "tmux send-keys -t %1 -l hello '\\''world'\\''")
	assert.Contains(t, runner.calls, "tmux send-keys -t %1 Enter")
}

func TestInjectFallsBackToPaneIDWhenNotFound(t *testing.T) {
	runner := &fakeRunner{output: map[string]string{
		"tmux list-panes -a -F " + listFormat: "%1 111 zsh /repo/x",
	}}
	loc := &Locator{Runner: runner}
	inj := NewInjector(loc)

	res := inj.Inject(context.Background(), "/repo/x", "hi", "%9")
	assert.True(t, res.Injected)
	assert.Contains(t, runner.calls, "tmux send-keys -t %9 -l hi")
}

func TestInjectReportsReasonWhenNoFallback(t *testing.T) {
	runner := &fakeRunner{output: map[string]string{
		"tmux list-panes -a -F " + listFormat: "%1 111 zsh /repo/x",
	}}
	loc := &Locator{Runner: runner}
	inj := NewInjector(loc)

	res := inj.Inject(context.Background(), "/repo/x", "hi", "")
	assert.False(t, res.Injected)
	assert.Equal(t, InjectReasonNoClaudePane, res.Reason)
}

func TestEscapeShellSingleQuoted(t *testing.T) {
	assert.Equal(t, `it'\''s`, EscapeShellSingleQuoted("it's"))
}

package tmux

import (
	"context"
	"strings"
)

// InjectReason names why an injection failed.
type InjectReason string

const (
	InjectReasonNoTmux       InjectReason = "no_tmux"
	InjectReasonNoClaudePane InjectReason = "no_claude_pane"
	InjectReasonAmbiguous    InjectReason = "ambiguous"
	InjectReasonSendFailed   InjectReason = "send_failed"
)

// InjectResult is the result union returned by Injector.Inject.
type InjectResult struct {
	Injected bool
	Reason   InjectReason
}

// interruptKey is the agent's universal cancel keystroke.
const interruptKey = "Escape"

// Injector sends user text into a located pane as two separated
// keystroke commands: the text itself, then a submit, with a short
// delay between them so the submit doesn't race the text's arrival.
type Injector struct {
	Locator *Locator
	Runner  Runner
}

// NewInjector builds an Injector sharing locator's runner.
func NewInjector(locator *Locator) *Injector {
	return &Injector{Locator: locator, Runner: locator.Runner}
}

// Inject locates the pane for cwd and sends text. If no pane is found
// and fallbackPaneID is non-empty, it sends there instead; otherwise it
// reports the locator's failure reason.
func (inj *Injector) Inject(ctx context.Context, cwd, text, fallbackPaneID string) InjectResult {
	found := inj.Locator.Find(ctx, cwd)
	paneID := found.PaneID
	if !found.Found {
		if fallbackPaneID == "" {
			return InjectResult{Injected: false, Reason: reasonFromFind(found.Reason)}
		}
		paneID = fallbackPaneID
	}

	if err := inj.sendText(ctx, paneID, text); err != nil {
		return InjectResult{Injected: false, Reason: InjectReasonSendFailed}
	}
	return InjectResult{Injected: true}
}

func reasonFromFind(r FindReason) InjectReason {
	switch r {
	case ReasonNoTmux:
		return InjectReasonNoTmux
	case ReasonAmbiguous:
		return InjectReasonAmbiguous
	default:
		return InjectReasonNoClaudePane
	}
}

// sendText sends text then a separate Enter, each as its own send-keys
// invocation, with the inter-keystroke delay between them.
func (inj *Injector) sendText(ctx context.Context, paneID, text string) error {
	escaped := EscapeShellSingleQuoted(text)
	if _, err := inj.Runner.Run(ctx, "tmux", "send-keys", "-t", paneID, "-l", escaped); err != nil {
		return err
	}
	sleepOrDone(ctx, interKeystrokeDelay)
	_, err := inj.Runner.Run(ctx, "tmux", "send-keys", "-t", paneID, "Enter")
	return err
}

// SendInterrupt sends the agent's cancel keystroke to paneID.
func (inj *Injector) SendInterrupt(ctx context.Context, paneID string) error {
	_, err := inj.Runner.Run(ctx, "tmux", "send-keys", "-t", paneID, interruptKey)
	return err
}

// SendKey sends a single named key without a following submit —
// used for permission-deny (Escape) and numbered-choice approval (e.g. "1").
func (inj *Injector) SendKey(ctx context.Context, paneID, keyName string) error {
	_, err := inj.Runner.Run(ctx, "tmux", "send-keys", "-t", paneID, keyName)
	return err
}

// EscapeShellSingleQuoted escapes s for embedding inside a single-quoted
// shell argument: each `'` becomes `'\''`.
func EscapeShellSingleQuoted(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}

package tmux

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Pane is one multiplexer pane as reported by list().
type Pane struct {
	PaneID   string
	ShellPID int
	Command  string
	Cwd      string
}

// FindReason names why find() failed to resolve a pane.
type FindReason string

const (
	ReasonNoTmux        FindReason = "no_tmux"
	ReasonNoClaudePane  FindReason = "no_claude_pane"
	ReasonAmbiguous     FindReason = "ambiguous"
)

// FindResult is the result union returned by Locator.Find.
type FindResult struct {
	Found  bool
	PaneID string
	Reason FindReason
}

var semverTitle = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// isAgentPane reports whether a pane's command looks like the agent:
// either the literal substring "claude", or a three-field dotted semver
// the agent advertises as its process title.
func isAgentPane(command string) bool {
	if strings.Contains(command, "claude") {
		return true
	}
	return semverTitle.MatchString(strings.TrimSpace(command))
}

// Locator enumerates tmux panes and picks the one running the agent at
// a given cwd.
type Locator struct {
	Runner        Runner
	ProcessFinder ProcessFinder
}

// NewLocator builds a Locator with the real tmux and OS process table.
func NewLocator() *Locator {
	return &Locator{Runner: ExecRunner{}, ProcessFinder: PSProcessFinder{}}
}

const listFormat = "#{pane_id} #{pane_pid} #{pane_current_command} #{pane_current_path}"

// List returns an ordered sequence of panes across all tmux sessions.
// Returns an empty sequence (never an error) when tmux is absent or the
// command otherwise fails — the caller treats that identically to "no
// panes".
func (l *Locator) List(ctx context.Context) []Pane {
	out, err := l.Runner.Run(ctx, "tmux", "list-panes", "-a", "-F", listFormat)
	if err != nil {
		return nil
	}
	return parsePaneList(out)
}

func parsePaneList(out string) []Pane {
	var panes []Pane
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		pid, _ := strconv.Atoi(fields[1])
		// Trailing multi-word paths containing spaces belong to the cwd
		// field; rejoin everything from field index 3 onward.
		cwd := strings.Join(fields[3:], " ")
		panes = append(panes, Pane{
			PaneID:   fields[0],
			ShellPID: pid,
			Command:  fields[2],
			Cwd:      cwd,
		})
	}
	return panes
}

// Find resolves the pane that should receive input for targetCwd, per
// the tie-break ladder in the component design: exact cwd match, then
// strict-parent-directory match, then freshest agent-child-process
// start time, then a single no-cwd-match candidate, else notFound.
func (l *Locator) Find(ctx context.Context, targetCwd string) FindResult {
	panes := l.List(ctx)
	if panes == nil {
		return FindResult{Found: false, Reason: ReasonNoTmux}
	}

	var candidates []Pane
	for _, p := range panes {
		if isAgentPane(p.Command) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return FindResult{Found: false, Reason: ReasonNoClaudePane}
	}

	var exact []Pane
	for _, p := range candidates {
		if p.Cwd == targetCwd {
			exact = append(exact, p)
		}
	}
	if len(exact) == 1 {
		return FindResult{Found: true, PaneID: exact[0].PaneID}
	}

	var parents []Pane
	for _, p := range candidates {
		if isStrictParent(p.Cwd, targetCwd) {
			parents = append(parents, p)
		}
	}
	if len(parents) == 1 {
		return FindResult{Found: true, PaneID: parents[0].PaneID}
	}

	tied := exact
	tied = append(tied, parents...)
	if len(tied) > 1 {
		best, ok := l.freshest(tied)
		if ok {
			return FindResult{Found: true, PaneID: best.PaneID}
		}
		return FindResult{Found: false, Reason: ReasonAmbiguous}
	}

	if len(candidates) == 1 {
		return FindResult{Found: true, PaneID: candidates[0].PaneID}
	}

	return FindResult{Found: false, Reason: ReasonAmbiguous}
}

// freshest breaks ties by the start time of each pane's agent child
// process; "no start time" is treated as time zero, per the locator's
// determinism property.
func (l *Locator) freshest(panes []Pane) (Pane, bool) {
	if len(panes) == 0 {
		return Pane{}, false
	}
	finder := l.ProcessFinder
	if finder == nil {
		finder = PSProcessFinder{}
	}

	best := panes[0]
	bestT := childStart(finder, best.ShellPID)
	for _, p := range panes[1:] {
		t := childStart(finder, p.ShellPID)
		if t.After(bestT) {
			best = p
			bestT = t
		}
	}
	return best, true
}

func childStart(finder ProcessFinder, shellPID int) time.Time {
	t, ok := finder.ChildStartTime(shellPID)
	if !ok {
		return time.Time{}
	}
	return t
}

func isStrictParent(parent, child string) bool {
	if parent == "" || parent == child {
		return false
	}
	parent = strings.TrimSuffix(parent, "/")
	return strings.HasPrefix(child, parent+"/")
}

var windowNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]`)

const maxWindowNameLen = 30

func sanitizeWindowName(projectName string) string {
	name := windowNameSanitizer.ReplaceAllString(projectName, "-")
	if len(name) > maxWindowNameLen {
		name = name[:maxWindowNameLen]
	}
	return name
}

// interKeystrokeDelay separates a submitted command's text from its
// terminating Enter keystroke, avoiding premature submission.
const interKeystrokeDelay = 100 * time.Millisecond

// Launch creates a new tmux pane at cwd, names its window after
// projectName (sanitised), and starts the agent resuming the most
// recent session (optionally skipping permission prompts). Returns the
// new pane's id.
func (l *Locator) Launch(ctx context.Context, cwd, projectName string, skipPermissions bool) (string, error) {
	windowName := sanitizeWindowName(projectName)
	out, err := l.Runner.Run(ctx, "tmux", "new-window", "-P", "-F", "#{pane_id}", "-n", windowName, "-c", cwd)
	if err != nil {
		return "", fmt.Errorf("launch pane: %w", err)
	}
	paneID := strings.TrimSpace(out)
	if paneID == "" {
		return "", fmt.Errorf("launch pane: tmux returned no pane id")
	}

	launchCmd := "claude -c"
	if skipPermissions {
		launchCmd += " --dangerously-skip-permissions"
	}

	if _, err := l.Runner.Run(ctx, "tmux", "send-keys", "-t", paneID, launchCmd); err != nil {
		return paneID, fmt.Errorf("send launch command: %w", err)
	}
	time.Sleep(interKeystrokeDelay)
	if _, err := l.Runner.Run(ctx, "tmux", "send-keys", "-t", paneID, "Enter"); err != nil {
		return paneID, fmt.Errorf("submit launch command: %w", err)
	}
	return paneID, nil
}

// Close kills the multiplexer window containing paneID.
func (l *Locator) Close(ctx context.Context, paneID string) error {
	if _, err := l.Runner.Run(ctx, "tmux", "kill-window", "-t", paneID); err != nil {
		return fmt.Errorf("close pane: %w", err)
	}
	return nil
}

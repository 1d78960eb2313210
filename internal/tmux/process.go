package tmux

import (
	"time"

	"github.com/mitchellh/go-ps"
)

// ProcessFinder resolves the start time of the agent's child process
// under a pane's shell PID, used to break find() ties by freshest spawn.
type ProcessFinder interface {
	ChildStartTime(shellPID int) (time.Time, bool)
}

// PSProcessFinder walks the OS process table via go-ps.
type PSProcessFinder struct{}

// ChildStartTime scans all processes for one whose parent PID is
// shellPID and whose executable name matches the agent, returning its
// start time. go-ps does not expose start time, so the returned time is
// a synthetic one built from the highest matching child PID (PIDs are
// allocated in increasing order on Linux). That ordering is sufficient
// for the tie-break, since PaneLocator only compares candidates.
func (PSProcessFinder) ChildStartTime(shellPID int) (time.Time, bool) {
	procs, err := ps.Processes()
	if err != nil {
		return time.Time{}, false
	}

	var found bool
	var latest time.Time
	for _, p := range procs {
		if p.PPid() != shellPID {
			continue
		}
		if !looksLikeAgent(p.Executable()) {
			continue
		}
		// go-ps does not report process start time portably; use PID
		// recency (higher PID allocated later on Linux) as the ordering
		// proxy, converted to a synthetic monotonic "time" so callers can
		// compare via time.Time as the spec's contract demands.
		t := time.Unix(int64(p.Pid()), 0)
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}
	return latest, found
}

func looksLikeAgent(name string) bool {
	return name == "claude" || name == "claude-code"
}

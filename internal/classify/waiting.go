// Package classify implements WaitingClassifier: a regex-based detector
// that tags the assistant's last text block as a kind of pending input,
// or none.
package classify

import (
	"regexp"
	"strings"
)

// Tag is the classification WaitingClassifier assigns.
type Tag string

const (
	TagNone           Tag = ""
	TagYesNo          Tag = "YES_NO"
	TagEnter          Tag = "ENTER"
	TagQuestion       Tag = "QUESTION"
	TagMultipleChoice Tag = "MULTIPLE_CHOICE"
)

// PlanChoices are the four fixed choices offered for a MULTIPLE_CHOICE
// classification (ExitPlanMode approval).
var PlanChoices = []string{
	"Accept",
	"Accept & keep planning",
	"Reject",
	"Reject & keep planning",
}

const minQuestionLen = 10

var (
	yesNoPattern = regexp.MustCompile(`(?i)\(y/n\)|\[y/n\]|confirm\?`)
	enterPattern = regexp.MustCompile(`(?i)press enter|hit enter`)
)

// Classify tags lastText given whether the last assistant turn left an
// ExitPlanMode tool_use pending. ExitPlanMode takes priority over any
// textual pattern — the plan-approval keyboard is always offered when
// the agent is awaiting it.
func Classify(lastText string, hasExitPlanMode bool) Tag {
	if hasExitPlanMode {
		return TagMultipleChoice
	}
	if yesNoPattern.MatchString(lastText) {
		return TagYesNo
	}
	if enterPattern.MatchString(lastText) {
		return TagEnter
	}
	trimmed := strings.TrimSpace(lastText)
	if strings.HasSuffix(trimmed, "?") && len(trimmed) > minQuestionLen {
		return TagQuestion
	}
	return TagNone
}

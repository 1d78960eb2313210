package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyYesNo(t *testing.T) {
	assert.Equal(t, TagYesNo, Classify("Proceed with deletion? (y/n)", false))
	assert.Equal(t, TagYesNo, Classify("Overwrite the file? [y/N]", false))
	assert.Equal(t, TagYesNo, Classify("Do you confirm?", false))
}

func TestClassifyEnter(t *testing.T) {
	assert.Equal(t, TagEnter, Classify("Press Enter to continue", false))
	assert.Equal(t, TagEnter, Classify("hit enter when ready", false))
}

func TestClassifyQuestion(t *testing.T) {
	assert.Equal(t, TagQuestion, Classify("Which directory should I use for output?", false))
	assert.Equal(t, TagNone, Classify("ok?", false), "short trailing ? should not classify as QUESTION")
}

func TestClassifyExitPlanModeWinsOverText(t *testing.T) {
	assert.Equal(t, TagMultipleChoice, Classify("Ready to build. Proceed? (y/n)", true))
}

func TestClassifyNone(t *testing.T) {
	assert.Equal(t, TagNone, Classify("Build succeeded.", false))
}

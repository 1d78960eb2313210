package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vanducng/goclaw-bridge/internal/chatsurface"
)

func TestParseCommandSplitsNameAndArgs(t *testing.T) {
	cmd := parseCommand("c1", "/timer 30 do the thing")
	assert.Equal(t, chatsurface.Command{ChatID: "c1", Name: "/timer", Args: "30 do the thing"}, cmd)
}

func TestParseCommandStripsBotnameSuffix(t *testing.T) {
	cmd := parseCommand("c1", "/status@my_bot")
	assert.Equal(t, "/status", cmd.Name)
	assert.Empty(t, cmd.Args)
}

func TestParseCommandWithNoArgs(t *testing.T) {
	cmd := parseCommand("c1", "/help")
	assert.Equal(t, "/help", cmd.Name)
	assert.Empty(t, cmd.Args)
}

func TestChatIDOfNumericString(t *testing.T) {
	id := chatIDOf("12345")
	assert.EqualValues(t, 12345, id.ID)
}

func TestChatIDOfUsername(t *testing.T) {
	id := chatIDOf("@some_channel")
	assert.Equal(t, "@some_channel", id.Username)
}

func TestToInlineKeyboardPreservesRowsAndData(t *testing.T) {
	kb := chatsurface.Keyboard{
		{{Text: "Yes", Data: "yn:yes"}, {Text: "No", Data: "yn:no"}},
	}
	markup := toInlineKeyboard(kb)
	assert.Len(t, markup.InlineKeyboard, 1)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "yn:yes", markup.InlineKeyboard[0][0].CallbackData)
}

func TestExtensionForKnownMimeTypes(t *testing.T) {
	assert.Equal(t, ".png", extensionFor("image/png"))
	assert.Equal(t, ".gif", extensionFor("image/gif"))
	assert.Equal(t, ".jpg", extensionFor("image/jpeg"))
}

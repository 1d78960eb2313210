package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanducng/goclaw-bridge/internal/permission"
)

func TestOnPermissionRequestSendsApproveDenyKeyboard(t *testing.T) {
	cwd := t.TempDir()
	c, _, surface := newTestCoordinator(t, cwd)
	c.Config.AllowedChatID = "c1"

	c.OnPermissionRequest(permission.Event{RequestID: "xyz", ToolName: "Bash", ToolInput: "rm -rf /tmp/test"})

	require.NotEmpty(t, surface.keyboards)
	kb := surface.keyboards[len(surface.keyboards)-1]
	assert.Equal(t, "perm:approve:xyz", kb[0][0].Data)
	assert.Equal(t, "perm:deny:xyz", kb[0][1].Data)
}

func TestResolvePermissionWritesResponseFileAndSendsKeystroke(t *testing.T) {
	cwd := t.TempDir()
	c, runner, _ := newTestCoordinator(t, cwd)
	require.NoError(t, c.Marker.Set("sess-1", cwd))

	configDir := t.TempDir()
	c.Permission = &permission.Bridge{ConfigDir: configDir}

	c.resolvePermission(context.Background(), "xyz", true)

	data, err := os.ReadFile(filepath.Join(configDir, "permission-response-xyz"))
	require.NoError(t, err)
	assert.Equal(t, "approve", string(data))
	assert.Contains(t, joinCommands(runner), "1")
}

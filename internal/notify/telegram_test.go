package notify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilReceiverIsSafe(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.Notify("should be a no-op")
		n.PollCommands(func() string { return "snap" })
	})
}

func TestNotifier_LoadChatIDMissingFileDefaultsZero(t *testing.T) {
	n := &Notifier{chatIDFile: filepath.Join(t.TempDir(), "missing.txt")}

	assert.Equal(t, int64(0), n.loadChatID())
}

func TestNotifier_SaveThenLoadChatIDRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_id.txt")
	n := &Notifier{chatIDFile: path}

	n.saveChatID(123456789)

	reloaded := &Notifier{chatIDFile: path}
	assert.Equal(t, int64(123456789), reloaded.loadChatID())
}

func TestNotifier_LoadChatIDCorruptFileDefaultsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_id.txt")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))
	n := &Notifier{chatIDFile: path}

	assert.Equal(t, int64(0), n.loadChatID())
}

func TestNotifier_NotifyNoopsWithoutCapturedChatID(t *testing.T) {
	n := &Notifier{}
	assert.NotPanics(t, func() {
		n.Notify("no bot, no chat id")
	})
}

package email

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileEmailSenderEmptyPath(t *testing.T) {
	_, err := NewFileEmailSender("  ")
	assert.Error(t, err)
}

func TestFileEmailSenderAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail", "outbox.log")
	sender, err := NewFileEmailSender(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sender.Send(ctx, []string{"a@example.com"}, "First", []byte("body one\r\n")))
	require.NoError(t, sender.Send(ctx, []string{"b@example.com"}, "Second", []byte("body two\r\n")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(content)
	assert.Contains(t, s, "Subject: First")
	assert.Contains(t, s, "body one")
	assert.Contains(t, s, "Subject: Second")
	assert.Contains(t, s, "body two")
}

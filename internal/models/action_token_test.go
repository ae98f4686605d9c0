package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActionTokenIsExpired(t *testing.T) {
	now := time.Now().UTC()

	fresh := &ActionToken{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, fresh.IsExpired())

	stale := &ActionToken{ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, stale.IsExpired())
}

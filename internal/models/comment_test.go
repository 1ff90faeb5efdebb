package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComment_CanEdit(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	token := "edit-token"
	expires := now.Add(10 * time.Minute)

	comment := Comment{EditToken: &token, EditTokenExpiresAt: &expires}

	assert.True(t, comment.CanEdit("edit-token", now))
	assert.True(t, comment.CanEdit("edit-token", expires.Add(-time.Second)))

	assert.False(t, comment.CanEdit("edit-token", expires), "expiry instant is outside the window")
	assert.False(t, comment.CanEdit("wrong-token", now))
	assert.False(t, comment.CanEdit("", now))

	scrubbed := Comment{}
	assert.False(t, scrubbed.CanEdit("edit-token", now))
}

package repository

import (
	"context"
	"testing"
	"time"

	"murmur/internal/bloom"
	"murmur/internal/database"
	"murmur/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepos(t *testing.T) (CommentRepository, ThreadRepository, *gorm.DB) {
	t.Helper()
	db, err := database.OpenTest()
	require.NoError(t, err)
	return NewCommentRepository(db), NewThreadRepository(db), db
}

func createTestThread(t *testing.T, threads ThreadRepository, uri string) *models.Thread {
	t.Helper()
	thread, err := threads.GetOrCreateByURI(context.Background(), uri, nil, nil)
	require.NoError(t, err)
	return thread
}

func createTestComment(t *testing.T, comments CommentRepository, threadID uint, status string) *models.Comment {
	t.Helper()
	author := "Alice"
	comment := &models.Comment{
		ThreadID:     threadID,
		BodyMarkdown: "hello",
		BodyHTML:     "<p>hello</p>",
		Author:       &author,
		Status:       status,
	}
	require.NoError(t, comments.Create(context.Background(), comment))
	return comment
}

func TestCommentRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	comments, threads, _ := newTestRepos(t)
	thread := createTestThread(t, threads, "/blog/post")
	created := createTestComment(t, comments, thread.ID, models.StatusPending)

	got, err := comments.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "hello", got.BodyMarkdown)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestCommentRepository_ListByThread(t *testing.T) {
	t.Parallel()

	comments, threads, db := newTestRepos(t)
	thread := createTestThread(t, threads, "/blog/post")
	other := createTestThread(t, threads, "/blog/other")
	ctx := context.Background()

	first := createTestComment(t, comments, thread.ID, models.StatusApproved)
	createTestComment(t, comments, thread.ID, models.StatusPending)
	createTestComment(t, comments, thread.ID, models.StatusSpam)
	second := createTestComment(t, comments, thread.ID, models.StatusApproved)
	createTestComment(t, comments, other.ID, models.StatusApproved)

	// Force distinct creation times for a deterministic order.
	require.NoError(t, db.Model(first).Update("created_at", time.Now().Add(-time.Hour)).Error)

	list, err := comments.ListByThread(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, list, 2, "only approved comments of this thread")
	assert.Equal(t, first.ID, list[0].ID, "oldest first")
	assert.Equal(t, second.ID, list[1].ID)
}

func TestCommentRepository_ListAdmin(t *testing.T) {
	t.Parallel()

	comments, threads, _ := newTestRepos(t)
	thread := createTestThread(t, threads, "/blog/post")
	ctx := context.Background()

	createTestComment(t, comments, thread.ID, models.StatusApproved)
	pending := createTestComment(t, comments, thread.ID, models.StatusPending)
	reply := createTestComment(t, comments, thread.ID, models.StatusApproved)
	require.NoError(t, comments.UpdateFields(ctx, reply.ID, map[string]interface{}{"parent_id": pending.ID}))
	require.NoError(t, comments.SoftDeleteScrub(ctx, pending.ID))

	all, err := comments.ListAdmin(ctx, "", 50, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "soft-deleted rows stay visible to admins")

	deleted, err := comments.ListAdmin(ctx, models.StatusDeleted, 50, 0)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, pending.ID, deleted[0].ID)

	page, err := comments.ListAdmin(ctx, "", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestCommentRepository_UpdateFields(t *testing.T) {
	t.Parallel()

	comments, threads, _ := newTestRepos(t)
	thread := createTestThread(t, threads, "/blog/post")
	ctx := context.Background()
	comment := createTestComment(t, comments, thread.ID, models.StatusPending)

	require.NoError(t, comments.UpdateFields(ctx, comment.ID, map[string]interface{}{
		"status": models.StatusApproved,
	}))
	got, err := comments.GetByID(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	err = comments.UpdateFields(ctx, 9999, map[string]interface{}{"status": models.StatusApproved})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCommentRepository_SoftDeleteScrub(t *testing.T) {
	t.Parallel()

	comments, threads, db := newTestRepos(t)
	thread := createTestThread(t, threads, "/blog/post")
	ctx := context.Background()

	author := "Alice"
	email := "alice@example.com"
	website := "https://alice.example"
	addr := "203.0.113.0"
	editToken := "edit"
	modToken := "mod"
	expires := time.Now().Add(time.Hour)
	comment := &models.Comment{
		ThreadID:           thread.ID,
		BodyMarkdown:       "secret rant",
		BodyHTML:           "<p>secret rant</p>",
		Author:             &author,
		Email:              &email,
		Website:            &website,
		RemoteAddr:         &addr,
		Status:             models.StatusApproved,
		EditToken:          &editToken,
		EditTokenExpiresAt: &expires,
		ModerationToken:    &modToken,
	}
	require.NoError(t, comments.Create(ctx, comment))

	require.NoError(t, comments.SoftDeleteScrub(ctx, comment.ID))

	// Gone from default-scoped queries.
	_, err := comments.GetByID(ctx, comment.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The row itself survives, scrubbed.
	var scrubbed models.Comment
	require.NoError(t, db.Unscoped().First(&scrubbed, comment.ID).Error)
	assert.Equal(t, models.StatusDeleted, scrubbed.Status)
	assert.Empty(t, scrubbed.BodyMarkdown)
	assert.Empty(t, scrubbed.BodyHTML)
	assert.Nil(t, scrubbed.Author)
	assert.Nil(t, scrubbed.Email)
	assert.Nil(t, scrubbed.Website)
	assert.Nil(t, scrubbed.RemoteAddr)
	assert.Nil(t, scrubbed.EditToken)
	assert.Nil(t, scrubbed.EditTokenExpiresAt)
	assert.Nil(t, scrubbed.ModerationToken)
	assert.True(t, scrubbed.DeletedAt.Valid)

	assert.ErrorIs(t, comments.SoftDeleteScrub(ctx, 9999), gorm.ErrRecordNotFound)
}

func TestCommentRepository_ForceDelete(t *testing.T) {
	t.Parallel()

	comments, threads, db := newTestRepos(t)
	thread := createTestThread(t, threads, "/blog/post")
	ctx := context.Background()
	comment := createTestComment(t, comments, thread.ID, models.StatusApproved)

	require.NoError(t, comments.ForceDelete(ctx, comment.ID))

	var count int64
	require.NoError(t, db.Unscoped().Model(&models.Comment{}).Where("id = ?", comment.ID).Count(&count).Error)
	assert.Zero(t, count, "row must be gone entirely")
}

func TestCommentRepository_CountReplies(t *testing.T) {
	t.Parallel()

	comments, threads, _ := newTestRepos(t)
	thread := createTestThread(t, threads, "/blog/post")
	ctx := context.Background()

	parent := createTestComment(t, comments, thread.ID, models.StatusApproved)
	createTestComment(t, comments, thread.ID, models.StatusApproved)

	count, err := comments.CountReplies(ctx, parent.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	reply := &models.Comment{
		ThreadID:     thread.ID,
		ParentID:     &parent.ID,
		BodyMarkdown: "reply",
		BodyHTML:     "<p>reply</p>",
		Status:       models.StatusApproved,
	}
	require.NoError(t, comments.Create(ctx, reply))

	count, err = comments.CountReplies(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCommentRepository_Upvote(t *testing.T) {
	t.Parallel()

	comments, threads, _ := newTestRepos(t)
	thread := createTestThread(t, threads, "/blog/post")
	ctx := context.Background()
	comment := createTestComment(t, comments, thread.ID, models.StatusApproved)

	alice := bloom.Fingerprint("203.0.113.0", "firefox")
	bob := bloom.Fingerprint("198.51.100.0", "chrome")

	count, already, err := comments.Upvote(ctx, comment.ID, alice)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, 1, count)

	// Same voter again: no increment.
	count, already, err = comments.Upvote(ctx, comment.ID, alice)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, 1, count)

	count, already, err = comments.Upvote(ctx, comment.ID, bob)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, 2, count)

	// The filter is durable, not an in-process cache.
	got, err := comments.GetByID(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Upvotes)
	assert.True(t, bloom.FromBytes(got.VotersBloom).MightContain(alice))

	_, _, err = comments.Upvote(ctx, 9999, alice)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCommentRepository_ApproveWithToken(t *testing.T) {
	t.Parallel()

	comments, threads, _ := newTestRepos(t)
	thread := createTestThread(t, threads, "/blog/post")
	ctx := context.Background()

	comment := createTestComment(t, comments, thread.ID, models.StatusPending)
	require.NoError(t, comments.UpdateFields(ctx, comment.ID, map[string]interface{}{
		"moderation_token": "mod-token",
	}))

	ok, err := comments.ApproveWithToken(ctx, comment.ID, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = comments.ApproveWithToken(ctx, comment.ID, "mod-token")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := comments.GetByID(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Nil(t, got.ModerationToken)

	// The token was consumed with the approval; a replay wins nothing.
	ok, err = comments.ApproveWithToken(ctx, comment.ID, "mod-token")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = comments.ApproveWithToken(ctx, comment.ID, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommentRepository_ConsumeModerationToken(t *testing.T) {
	t.Parallel()

	comments, threads, _ := newTestRepos(t)
	thread := createTestThread(t, threads, "/blog/post")
	ctx := context.Background()

	comment := createTestComment(t, comments, thread.ID, models.StatusPending)
	require.NoError(t, comments.UpdateFields(ctx, comment.ID, map[string]interface{}{
		"moderation_token": "mod-token",
	}))

	ok, err := comments.ConsumeModerationToken(ctx, comment.ID, "mod-token")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = comments.ConsumeModerationToken(ctx, comment.ID, "mod-token")
	require.NoError(t, err)
	assert.False(t, ok, "single use only")
}

package service

import (
	"context"
	"errors"
	"testing"

	"murmur/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestThreadService_ListComments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unknown uri is an empty thread", func(t *testing.T) {
		t.Parallel()
		threadRepo := noopThreadRepo()
		threadRepo.getByURIFn = func(_ context.Context, _ string) (*models.Thread, error) {
			return nil, gorm.ErrRecordNotFound
		}
		svc := NewThreadService(threadRepo, noopCommentRepo())
		comments, err := svc.ListComments(ctx, "/never/commented")
		require.NoError(t, err)
		assert.Empty(t, comments)
		assert.NotNil(t, comments, "empty slice, not nil, for clean JSON")
	})

	t.Run("returns the thread's approved comments", func(t *testing.T) {
		t.Parallel()
		commentRepo := noopCommentRepo()
		commentRepo.listByThreadFn = func(_ context.Context, threadID uint) ([]*models.Comment, error) {
			return []*models.Comment{{ID: 1, ThreadID: threadID}}, nil
		}
		svc := NewThreadService(noopThreadRepo(), commentRepo)
		comments, err := svc.ListComments(ctx, "/blog/post")
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, uint(1), comments[0].ID)
	})

	t.Run("other lookup errors propagate", func(t *testing.T) {
		t.Parallel()
		repoErr := errors.New("db down")
		threadRepo := noopThreadRepo()
		threadRepo.getByURIFn = func(_ context.Context, _ string) (*models.Thread, error) {
			return nil, repoErr
		}
		svc := NewThreadService(threadRepo, noopCommentRepo())
		_, err := svc.ListComments(ctx, "/blog/post")
		assert.ErrorIs(t, err, repoErr)
	})
}

func TestThreadService_CommentCounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty input short-circuits", func(t *testing.T) {
		t.Parallel()
		threadRepo := noopThreadRepo()
		threadRepo.countsFn = func(_ context.Context, _ []string) (map[string]int64, error) {
			t.Error("must not hit the repository for an empty batch")
			return nil, nil
		}
		svc := NewThreadService(threadRepo, noopCommentRepo())
		counts, err := svc.CommentCounts(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, counts)
		assert.NotNil(t, counts)
	})

	t.Run("delegates to the repository", func(t *testing.T) {
		t.Parallel()
		threadRepo := noopThreadRepo()
		threadRepo.countsFn = func(_ context.Context, uris []string) (map[string]int64, error) {
			return map[string]int64{uris[0]: 3}, nil
		}
		svc := NewThreadService(threadRepo, noopCommentRepo())
		counts, err := svc.CommentCounts(ctx, []string{"/blog/post"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), counts["/blog/post"])
	})
}

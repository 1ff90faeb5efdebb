package service

import (
	"context"
	"errors"

	"murmur/internal/models"
	"murmur/internal/repository"

	"gorm.io/gorm"
)

// ThreadService exposes thread lookup and per-URI comment counts.
type ThreadService struct {
	threadRepo  repository.ThreadRepository
	commentRepo repository.CommentRepository
}

// NewThreadService returns a new ThreadService.
func NewThreadService(threadRepo repository.ThreadRepository, commentRepo repository.CommentRepository) *ThreadService {
	return &ThreadService{threadRepo: threadRepo, commentRepo: commentRepo}
}

// ListComments returns the approved comments of a thread. An unknown URI is
// an empty thread, not an error: the embed asks before the first comment
// exists.
func (s *ThreadService) ListComments(ctx context.Context, uri string) ([]*models.Comment, error) {
	thread, err := s.threadRepo.GetByURI(ctx, uri)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []*models.Comment{}, nil
		}
		return nil, err
	}
	return s.commentRepo.ListByThread(ctx, thread.ID)
}

// CommentCounts returns approved comment counts keyed by the given URIs.
func (s *ThreadService) CommentCounts(ctx context.Context, uris []string) (map[string]int64, error) {
	if len(uris) == 0 {
		return map[string]int64{}, nil
	}
	return s.threadRepo.ApprovedCounts(ctx, uris)
}

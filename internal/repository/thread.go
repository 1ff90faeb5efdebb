package repository

import (
	"context"
	"errors"

	"murmur/internal/models"

	"gorm.io/gorm"
)

// ThreadRepository defines the persistence contract for threads.
type ThreadRepository interface {
	// GetOrCreateByURI finds the thread for a URI (normalizing it first)
	// or creates it lazily. Safe under concurrent first submissions.
	GetOrCreateByURI(ctx context.Context, uri string, title, url *string) (*models.Thread, error)
	GetByURI(ctx context.Context, uri string) (*models.Thread, error)
	// ApprovedCounts returns approved-comment counts keyed by the caller's
	// original (un-normalized) URIs. Unknown URIs count as zero.
	ApprovedCounts(ctx context.Context, uris []string) (map[string]int64, error)
}

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository creates a new ThreadRepository
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) GetByURI(ctx context.Context, uri string) (*models.Thread, error) {
	normalized := models.NormalizeURI(uri)
	var thread models.Thread
	// Check the trailing-slash variant first for rows imported before
	// normalization existed.
	err := r.db.WithContext(ctx).
		Where("uri = ? OR uri = ?", normalized+"/", normalized).
		Order("uri desc").
		First(&thread).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) GetOrCreateByURI(ctx context.Context, uri string, title, url *string) (*models.Thread, error) {
	if thread, err := r.GetByURI(ctx, uri); err == nil {
		return thread, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	thread := &models.Thread{
		URI:   models.NormalizeURI(uri),
		Title: title,
		URL:   url,
	}
	if err := r.db.WithContext(ctx).Create(thread).Error; err != nil {
		// A concurrent submission may have won the create; the unique
		// index on uri guarantees the lookup now succeeds.
		if existing, lookupErr := r.GetByURI(ctx, uri); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return thread, nil
}

func (r *threadRepository) ApprovedCounts(ctx context.Context, uris []string) (map[string]int64, error) {
	normalized := make([]string, len(uris))
	for i, uri := range uris {
		normalized[i] = models.NormalizeURI(uri)
	}

	type row struct {
		URI   string
		Count int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("threads.uri as uri, count(comments.id) as count").
		Joins("JOIN threads ON threads.id = comments.thread_id").
		Where("threads.uri IN ? AND comments.status = ?", normalized, models.StatusApproved).
		Group("threads.uri").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byNormalized := make(map[string]int64, len(rows))
	for _, r := range rows {
		byNormalized[r.URI] = r.Count
	}

	counts := make(map[string]int64, len(uris))
	for i, uri := range uris {
		counts[uri] = byNormalized[normalized[i]]
	}
	return counts, nil
}

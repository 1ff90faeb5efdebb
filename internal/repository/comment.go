// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"

	"murmur/internal/bloom"
	"murmur/internal/models"

	"gorm.io/gorm"
)

// ErrVoteContention is returned when an upvote could not be applied after
// repeated conflicts with concurrent voters on the same comment.
var ErrVoteContention = errors.New("upvote contention, retry")

// CommentRepository defines the persistence contract for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByThread(ctx context.Context, threadID uint) ([]*models.Comment, error)
	// ListAdmin sees every comment including soft-deleted rows; status ""
	// means all statuses.
	ListAdmin(ctx context.Context, status string, limit, offset int) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	CountReplies(ctx context.Context, id uint) (int64, error)
	// SoftDeleteScrub empties content, nulls identity fields and tokens,
	// sets status to deleted and soft-deletes the row, all in one
	// transaction. The row survives so replies keep a valid parent.
	SoftDeleteScrub(ctx context.Context, id uint) error
	// ForceDelete removes the row permanently, bypassing the soft-delete
	// marker.
	ForceDelete(ctx context.Context, id uint) error
	// Upvote adds the voter fingerprint to the comment's bloom filter and
	// increments the count as one atomic write. Returns the resulting
	// count and whether the voter had (probably) already voted.
	Upvote(ctx context.Context, id uint, fingerprint []byte) (int, bool, error)
	// ApproveWithToken sets status to approved and clears the moderation
	// token in a single guarded update. Returns false when the token does
	// not match or was already consumed.
	ApproveWithToken(ctx context.Context, id uint, token string) (bool, error)
	// ConsumeModerationToken clears a matching moderation token. Returns
	// false when the token does not match or was already consumed.
	ConsumeModerationToken(ctx context.Context, id uint, token string) (bool, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListByThread(
	ctx context.Context,
	threadID uint,
) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("thread_id = ? AND status = ?", threadID, models.StatusApproved).
		Order("created_at asc").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) ListAdmin(
	ctx context.Context,
	status string,
	limit, offset int,
) ([]*models.Comment, error) {
	q := r.db.WithContext(ctx).Unscoped().Order("created_at desc").Limit(limit).Offset(offset)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var comments []*models.Comment
	err := q.Find(&comments).Error
	return comments, err
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Save(comment).Error
}

func (r *commentRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *commentRepository) CountReplies(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("parent_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *commentRepository) SoftDeleteScrub(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Comment{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":                models.StatusDeleted,
			"body_markdown":         "",
			"body_html":             "",
			"author":                nil,
			"email":                 nil,
			"website":               nil,
			"remote_addr":           nil,
			"edit_token":            nil,
			"edit_token_expires_at": nil,
			"moderation_token":      nil,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Delete(&models.Comment{}, id).Error
	})
}

func (r *commentRepository) ForceDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.Comment{}, id).Error
}

// upvoteRetries bounds the optimistic-CAS loop; conflicts only occur when
// several voters hit the same comment in the same instant.
const upvoteRetries = 5

func (r *commentRepository) Upvote(ctx context.Context, id uint, fingerprint []byte) (int, bool, error) {
	for attempt := 0; attempt < upvoteRetries; attempt++ {
		var comment models.Comment
		if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
			return 0, false, err
		}

		filter := bloom.FromBytes(comment.VotersBloom)
		if filter.MightContain(fingerprint) {
			return comment.Upvotes, true, nil
		}
		filter.Add(fingerprint)

		// The upvotes column doubles as the CAS version: count and bloom
		// blob are committed together or not at all.
		res := r.db.WithContext(ctx).Model(&models.Comment{}).
			Where("id = ? AND upvotes = ?", id, comment.Upvotes).
			Updates(map[string]interface{}{
				"upvotes":      comment.Upvotes + 1,
				"voters_bloom": filter.Bytes(),
			})
		if res.Error != nil {
			return 0, false, res.Error
		}
		if res.RowsAffected == 1 {
			return comment.Upvotes + 1, false, nil
		}
	}
	return 0, false, fmt.Errorf("comment %d: %w", id, ErrVoteContention)
}

func (r *commentRepository) ApproveWithToken(ctx context.Context, id uint, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND moderation_token = ?", id, token).
		Updates(map[string]interface{}{
			"status":           models.StatusApproved,
			"moderation_token": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *commentRepository) ConsumeModerationToken(ctx context.Context, id uint, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND moderation_token = ?", id, token).
		Update("moderation_token", nil)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

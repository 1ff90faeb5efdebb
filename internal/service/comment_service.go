// Package service implements the comment lifecycle on top of the
// repositories: admission, creation, self-service edits, voting, moderation
// and cascade-safe deletion.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"murmur/internal/bloom"
	"murmur/internal/mailer"
	"murmur/internal/markdown"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/repository"
	"murmur/internal/spam"

	"gorm.io/gorm"
)

const maxCommentLen = 10000

// DeleteOutcome reports which deletion path was taken.
type DeleteOutcome int

const (
	// SoftDeleted means the row was scrubbed and kept for its replies.
	SoftDeleted DeleteOutcome = iota
	// HardDeleted means the row was removed permanently.
	HardDeleted
)

// CommentService owns comment state transitions and token authorization.
type CommentService struct {
	commentRepo repository.CommentRepository
	threadRepo  repository.ThreadRepository
	checker     *spam.Checker
	mail        mailer.Mailer
	logger      *slog.Logger

	editWindow  time.Duration
	autoApprove bool
	now         func() time.Time
}

// CommentServiceOptions carries the lifecycle policy knobs.
type CommentServiceOptions struct {
	// EditWindow bounds self-service edit/delete; zero means 15 minutes.
	EditWindow time.Duration
	// AutoApprove makes new comments public without moderation.
	AutoApprove bool
}

// NewCommentService wires the lifecycle around its collaborators. The mailer
// may be nil, in which case no moderation notifications are dispatched.
func NewCommentService(
	commentRepo repository.CommentRepository,
	threadRepo repository.ThreadRepository,
	checker *spam.Checker,
	mail mailer.Mailer,
	opts CommentServiceOptions,
	logger *slog.Logger,
) *CommentService {
	if opts.EditWindow <= 0 {
		opts.EditWindow = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentService{
		commentRepo: commentRepo,
		threadRepo:  threadRepo,
		checker:     checker,
		mail:        mail,
		logger:      logger,
		editWindow:  opts.EditWindow,
		autoApprove: opts.AutoApprove,
		now:         time.Now,
	}
}

// SubmitCommentInput describes one inbound submission from the HTTP layer.
type SubmitCommentInput struct {
	ThreadURI   string
	ThreadTitle *string
	ThreadURL   *string
	ParentID    *uint
	Body        string
	Author      *string
	Email       *string
	Website     *string
	Honeypot    string
	Timestamp   string
	RemoteAddr  string
	UserAgent   string
}

// Submit runs the anti-abuse pipeline and, on admission, persists the
// comment with a fresh edit token. Nothing is persisted on rejection.
func (s *CommentService) Submit(ctx context.Context, in SubmitCommentInput) (*models.Comment, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, models.NewValidationError("Comment body is required")
	}
	if len(body) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	if rej := s.checker.Check(ctx, spam.Submission{
		Body:       body,
		Honeypot:   in.Honeypot,
		Timestamp:  in.Timestamp,
		RemoteAddr: in.RemoteAddr,
		UserAgent:  in.UserAgent,
	}); rej != nil {
		return nil, models.NewRejectedError(rej.Message)
	}

	thread, err := s.threadRepo.GetOrCreateByURI(ctx, in.ThreadURI, in.ThreadTitle, in.ThreadURL)
	if err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewNotFoundError("Parent comment", *in.ParentID)
			}
			return nil, err
		}
		if parent.ThreadID != thread.ID {
			return nil, models.NewValidationError("Parent comment belongs to a different thread")
		}
	}

	status := models.StatusPending
	if s.autoApprove {
		status = models.StatusApproved
	}

	editToken := newToken()
	expires := s.now().Add(s.editWindow)

	comment := &models.Comment{
		ThreadID:           thread.ID,
		ParentID:           in.ParentID,
		BodyMarkdown:       body,
		BodyHTML:           markdown.Render(body),
		Author:             normalizeOptional(in.Author),
		Email:              normalizeEmail(in.Email),
		Website:            NormalizeWebsite(in.Website),
		RemoteAddr:         anonymizedAddr(in.RemoteAddr),
		Status:             status,
		EditToken:          &editToken,
		EditTokenExpiresAt: &expires,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommentsCreated.WithLabelValues(status).Inc()

	if status == models.StatusPending && s.mail != nil {
		if err := s.notifyModeration(ctx, comment); err != nil {
			// The comment is already in; a failed notification only
			// delays moderation.
			s.logger.Error("moderation notification failed", "comment_id", comment.ID, "error", err)
		}
	}

	return comment, nil
}

// notifyModeration mints a single-use moderation token, persists it, then
// hands off to the mailer. The token must be durable before the email that
// embeds it leaves the process.
func (s *CommentService) notifyModeration(ctx context.Context, comment *models.Comment) error {
	token := newToken()
	if err := s.commentRepo.UpdateFields(ctx, comment.ID, map[string]interface{}{
		"moderation_token": token,
	}); err != nil {
		return err
	}
	comment.ModerationToken = &token

	go func() {
		if err := s.mail.SendModerationNotification(comment, token); err != nil {
			s.logger.Error("moderation email dispatch failed", "comment_id", comment.ID, "error", err)
		}
	}()
	return nil
}

// UpdateCommentInput is a patch: a nil field with its Set flag raised clears
// the value, a nil field without the flag leaves it untouched.
type UpdateCommentInput struct {
	Body       *string
	Author     *string
	AuthorSet  bool
	Website    *string
	WebsiteSet bool
}

// Update applies an author edit guarded by the edit token.
func (s *CommentService) Update(ctx context.Context, id uint, editToken string, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.getComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !comment.CanEdit(editToken, s.now()) {
		return nil, models.NewUnauthorizedError("Invalid or expired edit token")
	}

	updates := map[string]interface{}{}
	if in.Body != nil {
		body := strings.TrimSpace(*in.Body)
		if body == "" {
			return nil, models.NewValidationError("Comment body is required")
		}
		if len(body) > maxCommentLen {
			return nil, models.NewValidationError("Comment too long (max 10000 characters)")
		}
		updates["body_markdown"] = body
		updates["body_html"] = markdown.Render(body)
	}
	if in.AuthorSet {
		updates["author"] = normalizeOptional(in.Author)
	}
	if in.WebsiteSet {
		updates["website"] = NormalizeWebsite(in.Website)
	}

	if len(updates) > 0 {
		if err := s.commentRepo.UpdateFields(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.getComment(ctx, id)
}

// Approve moves a comment to approved. Idempotent from any state.
func (s *CommentService) Approve(ctx context.Context, id uint) (*models.Comment, error) {
	return s.setStatus(ctx, id, models.StatusApproved, "approve", "admin")
}

// MarkSpam moves a comment to spam. Idempotent from any state.
func (s *CommentService) MarkSpam(ctx context.Context, id uint) (*models.Comment, error) {
	return s.setStatus(ctx, id, models.StatusSpam, "spam", "admin")
}

func (s *CommentService) setStatus(ctx context.Context, id uint, status, action, actor string) (*models.Comment, error) {
	if err := s.commentRepo.UpdateFields(ctx, id, map[string]interface{}{"status": status}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, err
	}
	observability.ModerationActions.WithLabelValues(action, actor).Inc()
	return s.getComment(ctx, id)
}

// DeleteByAuthor deletes a comment on behalf of its author, guarded by the
// edit token.
func (s *CommentService) DeleteByAuthor(ctx context.Context, id uint, editToken string) (DeleteOutcome, error) {
	comment, err := s.getComment(ctx, id)
	if err != nil {
		return 0, err
	}
	if !comment.CanEdit(editToken, s.now()) {
		return 0, models.NewUnauthorizedError("Invalid or expired edit token")
	}
	observability.ModerationActions.WithLabelValues("delete", "author").Inc()
	return s.performDelete(ctx, comment)
}

// DeleteByAdmin deletes a comment unconditionally.
func (s *CommentService) DeleteByAdmin(ctx context.Context, id uint) (DeleteOutcome, error) {
	comment, err := s.getComment(ctx, id)
	if err != nil {
		return 0, err
	}
	observability.ModerationActions.WithLabelValues("delete", "admin").Inc()
	return s.performDelete(ctx, comment)
}

// performDelete chooses the deletion path: a comment with replies is
// scrubbed in place so the replies keep their parent, one without is
// removed permanently. The reply check is a single query made once.
func (s *CommentService) performDelete(ctx context.Context, comment *models.Comment) (DeleteOutcome, error) {
	replies, err := s.commentRepo.CountReplies(ctx, comment.ID)
	if err != nil {
		return 0, err
	}
	if replies > 0 {
		if err := s.commentRepo.SoftDeleteScrub(ctx, comment.ID); err != nil {
			return 0, err
		}
		return SoftDeleted, nil
	}
	if err := s.commentRepo.ForceDelete(ctx, comment.ID); err != nil {
		return 0, err
	}
	return HardDeleted, nil
}

// Upvote registers a vote from the given source. The second vote from the
// same (ip, user agent) pair is reported as already voted and changes
// nothing.
func (s *CommentService) Upvote(ctx context.Context, id uint, ip, userAgent string) (int, bool, error) {
	fingerprint := bloom.Fingerprint(spam.AnonymizeIP(ip), userAgent)
	count, already, err := s.commentRepo.Upvote(ctx, id, fingerprint)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, models.NewNotFoundError("Comment", id)
		}
		return 0, false, err
	}
	return count, already, nil
}

// ApproveViaToken approves a comment through an emailed moderation link.
// The token is consumed atomically with the status change, so a replayed
// link authorizes nothing.
func (s *CommentService) ApproveViaToken(ctx context.Context, id uint, token string) error {
	ok, err := s.commentRepo.ApproveWithToken(ctx, id, token)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewUnauthorizedError("Invalid or already used moderation token")
	}
	observability.ModerationActions.WithLabelValues("approve", "email").Inc()
	return nil
}

// DeleteViaToken deletes a comment through an emailed moderation link. The
// token is consumed first; only the winner of that race proceeds to delete.
func (s *CommentService) DeleteViaToken(ctx context.Context, id uint, token string) (DeleteOutcome, error) {
	ok, err := s.commentRepo.ConsumeModerationToken(ctx, id, token)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, models.NewUnauthorizedError("Invalid or already used moderation token")
	}
	observability.ModerationActions.WithLabelValues("delete", "email").Inc()
	return s.DeleteByAdmin(ctx, id)
}

// ListAdmin returns comments for the admin view, soft-deleted rows included.
func (s *CommentService) ListAdmin(ctx context.Context, status string, limit, offset int) ([]*models.Comment, error) {
	return s.commentRepo.ListAdmin(ctx, status, limit, offset)
}

func (s *CommentService) getComment(ctx context.Context, id uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, err
	}
	return comment, nil
}

// newToken mints an opaque 256-bit capability token.
func newToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// NormalizeWebsite prefixes a scheme-less URL with https:// and validates
// it; anything unparseable becomes nil rather than an error.
func NormalizeWebsite(website *string) *string {
	if website == nil {
		return nil
	}
	w := strings.TrimSpace(*website)
	if w == "" {
		return nil
	}
	if !strings.HasPrefix(w, "http://") && !strings.HasPrefix(w, "https://") {
		w = "https://" + w
	}
	parsed, err := url.Parse(w)
	if err != nil || parsed.Host == "" {
		return nil
	}
	return &w
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" {
		return nil
	}
	return &e
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func anonymizedAddr(remoteAddr string) *string {
	anon := spam.AnonymizeIP(remoteAddr)
	if anon == "" {
		return nil
	}
	return &anon
}

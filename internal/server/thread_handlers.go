package server

import (
	"net/url"

	"murmur/internal/models"
	"murmur/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IssueTimestamp hands out a signed form-render timestamp for the embed to
// echo back on submission.
func (s *Server) IssueTimestamp(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"timestamp": s.signer.Issue()})
}

// threadURI decodes the :uri route parameter. The embed URL-encodes page
// paths, so "/blog/post" arrives as "%2Fblog%2Fpost".
func threadURI(c *fiber.Ctx) string {
	raw := c.Params("uri")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// ListComments returns the approved comments of a thread (public).
func (s *Server) ListComments(c *fiber.Ctx) error {
	comments, err := s.threadService.ListComments(c.UserContext(), threadURI(c))
	if err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// SubmitComment runs a submission through the anti-abuse pipeline and
// creates the comment (public). The edit token is returned exactly once, in
// this response.
func (s *Server) SubmitComment(c *fiber.Ctx) error {
	var req struct {
		Body      string  `json:"body"`
		Author    *string `json:"author"`
		Email     *string `json:"email"`
		Website   *string `json:"website"`
		ParentID  *uint   `json:"parent_id"`
		Honeypot  string  `json:"honeypot"`
		Timestamp string  `json:"timestamp"`
		Title     *string `json:"title"`
		URL       *string `json:"url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.Submit(c.UserContext(), service.SubmitCommentInput{
		ThreadURI:   threadURI(c),
		ThreadTitle: req.Title,
		ThreadURL:   req.URL,
		ParentID:    req.ParentID,
		Body:        req.Body,
		Author:      req.Author,
		Email:       req.Email,
		Website:     req.Website,
		Honeypot:    req.Honeypot,
		Timestamp:   req.Timestamp,
		RemoteAddr:  c.IP(),
		UserAgent:   c.Get("User-Agent"),
	})
	if err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"comment":    comment,
		"edit_token": comment.EditToken,
	})
}

// CommentCounts returns approved comment counts for a batch of URIs (public).
func (s *Server) CommentCounts(c *fiber.Ctx) error {
	var req struct {
		URIs []string `json:"uris"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	counts, err := s.threadService.CommentCounts(c.UserContext(), req.URIs)
	if err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}
	return c.JSON(fiber.Map{"counts": counts})
}

package server

import (
	"encoding/json"

	"murmur/internal/models"
	"murmur/internal/service"

	"github.com/gofiber/fiber/v2"
)

// editToken pulls the author's edit token from the X-Edit-Token header, with
// ?edit_token= as a fallback for clients that cannot set headers.
func editToken(c *fiber.Ctx) string {
	if token := c.Get("X-Edit-Token"); token != "" {
		return token
	}
	return c.Query("edit_token")
}

// UpdateComment applies an author edit (public, edit-token guarded). The
// patch distinguishes a field set to null (clear it) from a field absent
// from the body (leave it), so the request is decoded as raw JSON first.
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	var in service.UpdateCommentInput
	if msg, ok := raw["body"]; ok {
		if err := json.Unmarshal(msg, &in.Body); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid body field"))
		}
	}
	if msg, ok := raw["author"]; ok {
		in.AuthorSet = true
		if err := json.Unmarshal(msg, &in.Author); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid author field"))
		}
	}
	if msg, ok := raw["website"]; ok {
		in.WebsiteSet = true
		if err := json.Unmarshal(msg, &in.Website); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid website field"))
		}
	}

	comment, err := s.commentService.Update(c.UserContext(), id, editToken(c), in)
	if err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}
	return c.JSON(fiber.Map{"comment": comment})
}

// DeleteComment removes a comment on behalf of its author (public,
// edit-token guarded).
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}

	outcome, err := s.commentService.DeleteByAuthor(c.UserContext(), id, editToken(c))
	if err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}
	return c.JSON(fiber.Map{"deleted": deletedLabel(outcome)})
}

// UpvoteComment registers one vote per (ip, user agent) source. A repeat
// vote responds 409 with the unchanged count.
func (s *Server) UpvoteComment(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}

	count, already, err := s.commentService.Upvote(c.UserContext(), id, c.IP(), c.Get("User-Agent"))
	if err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}
	if already {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"upvotes":       count,
			"already_voted": true,
		})
	}
	return c.JSON(fiber.Map{
		"upvotes":       count,
		"already_voted": false,
	})
}

func deletedLabel(outcome service.DeleteOutcome) string {
	if outcome == service.SoftDeleted {
		return "soft"
	}
	return "hard"
}

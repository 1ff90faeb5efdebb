package server

import (
	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ModerateApprove approves a comment through an emailed moderation link.
// The token is single use; opening the link twice yields 403.
func (s *Server) ModerateApprove(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	token := c.Query("token")
	if token == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Moderation token is required"))
	}

	if err := s.commentService.ApproveViaToken(c.UserContext(), id, token); err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}
	return c.JSON(fiber.Map{"approved": true})
}

// ModerateDelete deletes a comment through an emailed moderation link.
func (s *Server) ModerateDelete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	token := c.Query("token")
	if token == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Moderation token is required"))
	}

	outcome, err := s.commentService.DeleteViaToken(c.UserContext(), id, token)
	if err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}
	return c.JSON(fiber.Map{"deleted": deletedLabel(outcome)})
}

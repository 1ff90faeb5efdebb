package server

import (
	"strings"
	"time"

	"murmur/internal/middleware"
	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const adminTokenTTL = 24 * time.Hour

// AdminLogin exchanges the admin credentials for a session JWT.
func (s *Server) AdminLogin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	if s.config.AdminEmail == "" || s.config.AdminPasswordHash == "" {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Admin login is not configured"))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != strings.ToLower(s.config.AdminEmail) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Invalid credentials"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(req.Password)); err != nil {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": middleware.AdminSubject,
		"iat": now.Unix(),
		"exp": now.Add(adminTokenTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token":      signed,
		"expires_at": now.Add(adminTokenTTL).Unix(),
	})
}

// AdminListComments returns comments across all threads for the moderation
// queue, soft-deleted rows included. Filter with ?status=, page with
// ?limit= and ?offset=.
func (s *Server) AdminListComments(c *fiber.Ctx) error {
	status := c.Query("status")
	switch status {
	case "", models.StatusPending, models.StatusApproved, models.StatusSpam, models.StatusDeleted:
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unknown status filter"))
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	comments, err := s.commentService.ListAdmin(c.UserContext(), status, limit, offset)
	if err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// AdminApproveComment approves a comment from the admin UI.
func (s *Server) AdminApproveComment(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	comment, err := s.commentService.Approve(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}
	return c.JSON(fiber.Map{"comment": comment})
}

// AdminMarkSpam marks a comment as spam from the admin UI.
func (s *Server) AdminMarkSpam(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	comment, err := s.commentService.MarkSpam(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}
	return c.JSON(fiber.Map{"comment": comment})
}

// AdminDeleteComment deletes a comment from the admin UI.
func (s *Server) AdminDeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	outcome, err := s.commentService.DeleteByAdmin(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, statusFromAppError(err), err)
	}
	return c.JSON(fiber.Map{"deleted": deletedLabel(outcome)})
}

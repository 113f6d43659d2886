package server

import (
	"sociable/internal/middleware"
	"sociable/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/users/me
// @Summary Get the current account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.Response())
}

// UpdateMe handles PATCH /api/users/me
// @Summary Change the current account's email or password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{email=string,password=string} true "Fields to change"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/me [patch]
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req struct {
		Email    *string `json:"email" validate:"omitnil,email,max=254"`
		Password *string `json:"password"`
	}
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.UpdateUser(c.UserContext(), currentUserID(c), service.UpdateUserInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.Response())
}

// DeleteMe handles DELETE /api/users/me
// @Summary Delete the current account and everything it owns
// @Tags users
// @Security BearerAuth
// @Success 204
// @Router /users/me [delete]
func (s *Server) DeleteMe(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if err := s.userService.DeleteUser(c.UserContext(), userID, userID); err != nil {
		return respondError(c, err)
	}
	middleware.Logger.InfoContext(c.UserContext(), "account deleted")
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteUser handles DELETE /api/users/:id
// @Summary Delete another account (staff only)
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.DeleteUser(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	middleware.Logger.InfoContext(c.UserContext(), "account deleted by staff", "target_user_id", id)
	return c.SendStatus(fiber.StatusNoContent)
}

package server

import (
	"github.com/gofiber/fiber/v2"
)

type hashTagRequest struct {
	Name string `json:"name" validate:"notblank,max=255"`
}

// ListHashTags handles GET /api/hashtags
// @Summary List hashtags
// @Tags hashtags
// @Produce json
// @Security BearerAuth
// @Param name query string false "Name contains (case-insensitive)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.Page[models.HashTag]
// @Router /hashtags [get]
func (s *Server) ListHashTags(c *fiber.Ctx) error {
	page, err := s.hashtagService.List(c.UserContext(), c.Query("name"), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// CreateHashTag handles POST /api/hashtags
// @Summary Create a hashtag
// @Tags hashtags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body hashTagRequest true "Hashtag"
// @Success 201 {object} models.HashTag
// @Failure 400 {object} models.ErrorResponse
// @Router /hashtags [post]
func (s *Server) CreateHashTag(c *fiber.Ctx) error {
	var req hashTagRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	tag, err := s.hashtagService.Create(c.UserContext(), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

// GetHashTag handles GET /api/hashtags/:id
// @Summary Get a hashtag
// @Tags hashtags
// @Produce json
// @Security BearerAuth
// @Param id path int true "Hashtag ID"
// @Success 200 {object} models.HashTag
// @Failure 404 {object} models.ErrorResponse
// @Router /hashtags/{id} [get]
func (s *Server) GetHashTag(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	tag, err := s.hashtagService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tag)
}

// UpdateHashTag handles PUT and PATCH /api/hashtags/:id
// @Summary Rename a hashtag
// @Tags hashtags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Hashtag ID"
// @Param request body hashTagRequest true "Hashtag"
// @Success 200 {object} models.HashTag
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /hashtags/{id} [put]
// @Router /hashtags/{id} [patch]
func (s *Server) UpdateHashTag(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req hashTagRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	tag, err := s.hashtagService.Update(c.UserContext(), id, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tag)
}

// DeleteHashTag handles DELETE /api/hashtags/:id
// @Summary Delete a hashtag
// @Tags hashtags
// @Security BearerAuth
// @Param id path int true "Hashtag ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /hashtags/{id} [delete]
func (s *Server) DeleteHashTag(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.hashtagService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

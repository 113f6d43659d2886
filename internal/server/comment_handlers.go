package server

import (
	"sociable/internal/models"
	"sociable/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	Post uint   `json:"post" validate:"required,gt=0"`
	Text string `json:"text" validate:"notblank"`
}

type updateCommentRequest struct {
	Text string `json:"text" validate:"notblank"`
}

// ListComments handles GET /api/comments
// @Summary List comments by the caller and the users they follow
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param post query int false "Only comments on this post"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.Page[models.CommentListItem]
// @Router /comments [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	postID, err := optionalUintQuery(c, "post")
	if err != nil {
		return nil
	}

	comments, count, err := s.commentService.ListComments(c.UserContext(), currentUserID(c), service.ListCommentsInput{
		PostID: postID,
		Page:   parsePagination(c),
	})
	if err != nil {
		return respondError(c, err)
	}

	items := make([]models.CommentListItem, 0, len(comments))
	for _, cm := range comments {
		items = append(items, cm.ListItem())
	}
	return c.JSON(models.NewPage(count, items))
}

// GetComment handles GET /api/comments/:id
// @Summary Get a comment with its post
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} models.CommentDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [get]
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.commentService.GetComment(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment.Detail())
}

// CreateComment handles POST /api/comments
// @Summary Comment on a post in the caller's feed
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createCommentRequest true "Comment"
// @Success 201 {object} models.CommentDetail
// @Failure 400 {object} models.ErrorResponse
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), currentUserID(c), service.CreateCommentInput{
		PostID: req.Post,
		Text:   req.Text,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment.Detail())
}

// UpdateComment handles PUT and PATCH /api/comments/:id
// @Summary Edit a comment (owner or staff)
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Param request body updateCommentRequest true "Comment"
// @Success 200 {object} models.CommentDetail
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [put]
// @Router /comments/{id} [patch]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateCommentRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), currentUserID(c), id, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment.Detail())
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete a comment (owner or staff)
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.DeleteComment(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

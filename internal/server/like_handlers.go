package server

import (
	"sociable/internal/models"

	"github.com/gofiber/fiber/v2"
)

// PostLikeUnlike handles POST /api/posts/:id/post_like_unlike
// @Summary Like or unlike a post
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.LikeToggleResult
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/post_like_unlike [post]
func (s *Server) PostLikeUnlike(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.likeService.TogglePostLike(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// CommentLikeUnlike handles POST /api/comments/:id/comment_like_unlike
// @Summary Like or unlike a comment
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} models.LikeToggleResult
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id}/comment_like_unlike [post]
func (s *Server) CommentLikeUnlike(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.likeService.ToggleCommentLike(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// ListPostLikes handles GET /api/likes-list-post
// @Summary Posts the caller liked
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.Page[models.PostLikeItem]
// @Router /likes-list-post [get]
func (s *Server) ListPostLikes(c *fiber.Ctx) error {
	items, count, err := s.likeService.PostLikes(c.UserContext(), currentUserID(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.NewPage(count, items))
}

// ListCommentLikes handles GET /api/likes-list-comment
// @Summary Comments the caller liked
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.Page[models.CommentLikeItem]
// @Router /likes-list-comment [get]
func (s *Server) ListCommentLikes(c *fiber.Ctx) error {
	items, count, err := s.likeService.CommentLikes(c.UserContext(), currentUserID(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.NewPage(count, items))
}

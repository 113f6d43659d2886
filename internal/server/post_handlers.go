package server

import (
	"errors"

	"sociable/internal/middleware"
	"sociable/internal/models"
	"sociable/internal/service"
	"sociable/internal/tasks"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Title    string `json:"title" validate:"notblank,max=60"`
	Text     string `json:"text" validate:"notblank"`
	HashTags []uint `json:"hashtags"`
}

type patchPostRequest struct {
	Title    *string `json:"title" validate:"omitnil,notblank,max=60"`
	Text     *string `json:"text" validate:"omitnil,notblank"`
	HashTags *[]uint `json:"hashtags"`
}

// ListPosts handles GET /api/posts
// @Summary List the caller's feed
// @Description Posts by the caller and by the users they follow, newest first.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param title query string false "Title contains (case-insensitive)"
// @Param hashtag query string false "Has a hashtag whose name contains this"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.Page[models.PostListItem]
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	posts, count, err := s.postService.ListFeed(c.UserContext(), currentUserID(c), service.ListPostsInput{
		Title:   c.Query("title"),
		HashTag: c.Query("hashtag"),
		Page:    parsePagination(c),
	})
	if err != nil {
		return respondError(c, err)
	}

	items := make([]models.PostListItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, p.ListItem())
	}
	return c.JSON(models.NewPage(count, items))
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post from the caller's feed
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post.Detail())
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createPostRequest true "Post"
// @Success 201 {object} models.PostDetail
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), currentUserID(c), service.CreatePostInput{
		Title:      req.Title,
		Text:       req.Text,
		HashTagIDs: req.HashTags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post.Detail())
}

// UpdatePost handles PUT and PATCH /api/posts/:id
// @Summary Update a post (owner or staff)
// @Description PUT requires title and text and replaces the hashtags; PATCH changes only the fields sent.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body patchPostRequest true "Fields"
// @Success 200 {object} models.PostDetail
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id} [put]
// @Router /posts/{id} [patch]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var in service.UpdatePostInput
	if c.Method() == fiber.MethodPut {
		var req createPostRequest
		if err := bindJSON(c, &req); err != nil {
			return respondError(c, err)
		}
		tags := req.HashTags
		in = service.UpdatePostInput{Title: &req.Title, Text: &req.Text, HashTagIDs: &tags}
	} else {
		var req patchPostRequest
		if err := bindJSON(c, &req); err != nil {
			return respondError(c, err)
		}
		in = service.UpdatePostInput{Title: req.Title, Text: req.Text, HashTagIDs: req.HashTags}
	}

	post, err := s.postService.UpdatePost(c.UserContext(), currentUserID(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post.Detail())
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post (owner or staff)
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SchedulePlaceholderPost handles POST /api/posts/schedule-placeholder
// @Summary Queue creation of a placeholder post for the caller
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 202 {object} object{task_id=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /posts/schedule-placeholder [post]
func (s *Server) SchedulePlaceholderPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	profile, err := s.profileService.GetProfileByUser(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	if profile == nil {
		return respondError(c, models.NewValidationError("Create a profile before posting"))
	}

	taskID, err := s.queue.EnqueueCreatePost(ctx, userID)
	if err != nil {
		if errors.Is(err, tasks.ErrQueueUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "Background tasks are unavailable",
			})
		}
		return respondError(c, err)
	}

	middleware.Logger.InfoContext(ctx, "placeholder post scheduled", "task_id", taskID)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"task_id": taskID})
}

package server

import (
	"io"

	"sociable/internal/models"
	"sociable/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createProfileRequest struct {
	Username string `json:"username" validate:"notblank,max=255"`
	Bio      string `json:"bio"`
}

type updateProfileRequest struct {
	Username *string `json:"username" validate:"omitnil,notblank,max=255"`
	Bio      *string `json:"bio"`
}

// ListProfiles handles GET /api/profiles
// @Summary List profiles
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param username query string false "Username contains (case-insensitive)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.Page[models.ProfileView]
// @Router /profiles [get]
func (s *Server) ListProfiles(c *fiber.Ctx) error {
	views, count, err := s.profileService.ListProfiles(c.UserContext(), c.Query("username"), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.NewPage(count, views))
}

// CreateProfile handles POST /api/profiles
// @Summary Create the caller's profile
// @Tags profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createProfileRequest true "Profile"
// @Success 201 {object} models.ProfileView
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /profiles [post]
func (s *Server) CreateProfile(c *fiber.Ctx) error {
	var req createProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	view, err := s.profileService.CreateProfile(c.UserContext(), currentUserID(c), service.CreateProfileInput{
		Username: req.Username,
		Bio:      req.Bio,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// GetProfile handles GET /api/profiles/:id
// @Summary Get a profile with its follower and following emails
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Success 200 {object} models.ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.profileService.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// UpdateProfile handles PUT and PATCH /api/profiles/:id
// @Summary Update a profile (owner or staff)
// @Description PUT requires username; PATCH changes only the fields sent.
// @Tags profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Param request body updateProfileRequest true "Fields"
// @Success 200 {object} models.ProfileView
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id} [put]
// @Router /profiles/{id} [patch]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	if c.Method() == fiber.MethodPut && req.Username == nil {
		return respondError(c, models.NewValidationError("username is required"))
	}

	view, err := s.profileService.UpdateProfile(c.UserContext(), currentUserID(c), id, service.UpdateProfileInput{
		Username: req.Username,
		Bio:      req.Bio,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// DeleteProfile handles DELETE /api/profiles/:id
// @Summary Delete a profile and its follow edges (owner or staff)
// @Tags profiles
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id} [delete]
func (s *Server) DeleteProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.profileService.DeleteProfile(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// FollowUnfollow handles POST /api/profiles/:id/follow_unfollow
// @Summary Follow or unfollow the owner of a profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Success 200 {object} object{status=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id}/follow_unfollow [post]
func (s *Server) FollowUnfollow(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	status, err := s.profileService.ToggleFollow(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": status})
}

// ProfileFollowers handles GET /api/profiles/:id/profile_followers
// @Summary Emails of the users following a profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Success 200 {object} object{followers=[]string}
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id}/profile_followers [get]
func (s *Server) ProfileFollowers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	emails, err := s.profileService.Followers(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if emails == nil {
		emails = []string{}
	}
	return c.JSON(fiber.Map{"followers": emails})
}

// ProfileFollowings handles GET /api/profiles/:id/profile_followings
// @Summary Emails of the users a profile follows
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Success 200 {object} object{following=[]string}
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id}/profile_followings [get]
func (s *Server) ProfileFollowings(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	emails, err := s.profileService.Following(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if emails == nil {
		emails = []string{}
	}
	return c.JSON(fiber.Map{"following": emails})
}

// UploadPicture handles POST /api/profiles/:id/upload-picture
// @Summary Replace the profile picture (owner or staff)
// @Tags profiles
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Param picture formData file true "Image (jpeg, png, gif or webp)"
// @Success 200 {object} models.ProfileView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /profiles/{id}/upload-picture [post]
func (s *Server) UploadPicture(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	file, err := c.FormFile("picture")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	if file.Size > s.config.MaxUploadBytes() {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Uploaded file is too large"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	view, err := s.profileService.SetPicture(c.UserContext(), currentUserID(c), id, content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// DeletePicture handles DELETE /api/profiles/:id/upload-picture
// @Summary Remove the profile picture (owner or staff)
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Success 200 {object} models.ProfileView
// @Failure 403 {object} models.ErrorResponse
// @Router /profiles/{id}/upload-picture [delete]
func (s *Server) DeletePicture(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.profileService.ClearPicture(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

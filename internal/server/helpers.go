package server

import (
	"errors"

	"sociable/internal/middleware"
	"sociable/internal/models"
	"sociable/internal/repository"
	"sociable/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parsePagination extracts limit and offset query parameters.
func parsePagination(c *fiber.Ctx) repository.Page {
	limit := c.QueryInt("limit", repository.DefaultPageSize)
	if limit <= 0 {
		limit = repository.DefaultPageSize
	}
	if limit > repository.MaxPageSize {
		limit = repository.MaxPageSize
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return repository.Page{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// optionalUintQuery reads a positive integer query parameter; zero means absent.
func optionalUintQuery(c *fiber.Ctx, key string) (uint, error) {
	if c.Query(key) == "" {
		return 0, nil
	}
	v := c.QueryInt(key, -1)
	if v <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+key+" filter"))
		return 0, errResponseWritten
	}
	return uint(v), nil
}

// mapServiceError maps an AppError code to its HTTP status.
func mapServiceError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err using its mapped status. Errors without a code
// are logged and reported as internal.
func respondError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
		if models.ErrorCode(err) == "" {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

// bindJSON parses the body into dest and runs its validate tags.
func bindJSON(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return validation.Struct(dest)
}

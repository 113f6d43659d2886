package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sociable/internal/middleware"
	"sociable/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "sociable-api"
	tokenAudience = "sociable-client"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	blacklistPrefix = "blacklist:"
)

var (
	errInvalidToken = models.NewUnauthorizedError("Token is invalid or expired")
	errWrongType    = models.NewUnauthorizedError("Token has wrong type")
	errRevoked      = models.NewUnauthorizedError("Token is blacklisted")
)

type tokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// issueToken signs a token of the given type for userID.
func (s *Server) issueToken(userID uint, typ string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	ttl := s.config.AccessTokenTTL()
	if typ == tokenTypeRefresh {
		ttl = s.config.RefreshTokenTTL()
	}

	now := time.Now()
	claims := tokenClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// parseToken validates signature, issuer, audience and expiry, and rejects
// revoked tokens. An empty typ accepts either token type.
func (s *Server) parseToken(ctx context.Context, raw, typ string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if typ != "" && claims.Type != typ {
		return nil, errWrongType
	}

	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if revoked {
		return nil, errRevoked
	}
	return claims, nil
}

func (s *Server) isRevoked(ctx context.Context, jti string) (bool, error) {
	if s.redis == nil || jti == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		middleware.RedisErrors.WithLabelValues("blacklist_check").Inc()
		// Fail open on Redis outages; the signature is still verified.
		middleware.Logger.WarnContext(ctx, "token blacklist check failed", "error", err)
		return false, nil
	}
	return n > 0, nil
}

// revoke blacklists the token's jti until it would have expired anyway.
func (s *Server) revoke(ctx context.Context, claims *tokenClaims) error {
	if s.redis == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, blacklistPrefix+claims.ID, 1, ttl).Err(); err != nil {
		middleware.RedisErrors.WithLabelValues("blacklist_set").Inc()
		return err
	}
	return nil
}

func subjectID(claims *tokenClaims) (uint, error) {
	id, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewUnauthorizedError("Invalid subject claim")
	}
	return uint(id), nil
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// AuthRequired accepts a Bearer access token. The websocket route may also
// pass it as ?token= since browsers cannot set headers on upgrades.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" && strings.HasPrefix(c.Path(), "/api/ws") {
			raw = c.Query("token")
		}
		if raw == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication credentials were not provided"))
		}

		claims, err := s.parseToken(c.UserContext(), raw, tokenTypeAccess)
		if err != nil {
			return respondError(c, err)
		}
		userID, err := subjectID(claims)
		if err != nil {
			return respondError(c, err)
		}

		user, err := s.userService.GetUser(c.UserContext(), userID)
		if err != nil {
			if models.ErrorCode(err) == models.CodeNotFound {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("User not found"))
			}
			return respondError(c, err)
		}
		if !user.IsActive {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("User is inactive"))
		}

		c.Locals("userID", userID)
		c.Locals("claims", claims)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

// StaffRequired must run after AuthRequired.
func (s *Server) StaffRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		staff, err := s.userService.IsStaff(c.UserContext(), currentUserID(c))
		if err != nil {
			return respondError(c, err)
		}
		if !staff {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Staff access required"))
		}
		return c.Next()
	}
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /api/register
// @Summary Register an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body credentialsRequest true "Credentials"
// @Success 201 {object} models.UserResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	middleware.Logger.InfoContext(c.UserContext(), "user registered", "user_id", user.ID)
	return c.Status(fiber.StatusCreated).JSON(user.Response())
}

// ObtainToken handles POST /api/token
// @Summary Obtain an access/refresh token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body credentialsRequest true "Credentials"
// @Success 200 {object} object{access=string,refresh=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /token [post]
func (s *Server) ObtainToken(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	access, err := s.issueToken(user.ID, tokenTypeAccess)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	refresh, err := s.issueToken(user.ID, tokenTypeRefresh)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"access":  access,
		"refresh": refresh,
	})
}

// RefreshToken handles POST /api/token/refresh
// @Summary Exchange a refresh token for a new access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{refresh=string} true "Refresh token"
// @Success 200 {object} object{access=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /token/refresh [post]
func (s *Server) RefreshToken(c *fiber.Ctx) error {
	var req struct {
		Refresh string `json:"refresh" validate:"required"`
	}
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	claims, err := s.parseToken(c.UserContext(), req.Refresh, tokenTypeRefresh)
	if err != nil {
		return respondError(c, err)
	}
	userID, err := subjectID(claims)
	if err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.GetUser(c.UserContext(), userID)
	if err != nil || !user.IsActive {
		return respondError(c, errInvalidToken)
	}

	access, err := s.issueToken(user.ID, tokenTypeAccess)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"access": access})
}

// VerifyToken handles POST /api/token/verify
// @Summary Check that a token is valid
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{token=string} true "Token"
// @Success 200 {object} object{}
// @Failure 401 {object} models.ErrorResponse
// @Router /token/verify [post]
func (s *Server) VerifyToken(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token" validate:"required"`
	}
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	if _, err := s.parseToken(c.UserContext(), req.Token, ""); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{})
}

// Logout handles POST /api/logout
// @Summary Revoke the current access token and, optionally, a refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{refresh=string} false "Refresh token"
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req struct {
		Refresh string `json:"refresh"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, models.NewValidationError("Invalid request body"))
		}
	}

	var refresh *tokenClaims
	if req.Refresh != "" {
		claims, err := s.parseToken(ctx, req.Refresh, tokenTypeRefresh)
		if err != nil && !errors.Is(err, errRevoked) {
			return respondError(c, err)
		}
		if claims != nil {
			if sub, _ := subjectID(claims); sub != currentUserID(c) {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewForbiddenError("Refresh token belongs to another user"))
			}
			refresh = claims
		}
	}

	// Nothing is revoked until the refresh token has been accepted.
	if access, ok := c.Locals("claims").(*tokenClaims); ok {
		if err := s.revoke(ctx, access); err != nil {
			return respondError(c, models.NewInternalError(err))
		}
	}
	if refresh != nil {
		if err := s.revoke(ctx, refresh); err != nil {
			return respondError(c, models.NewInternalError(err))
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

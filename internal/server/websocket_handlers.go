package server

import (
	"sociable/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketUpgrade rejects plain HTTP requests to the notification socket.
func (s *Server) WebsocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if s.hub == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Notifications are unavailable")
	}
	return c.Next()
}

// WebsocketHandler handles GET /api/ws
// @Summary Notification stream
// @Description Upgrades to a websocket that receives followed, post_liked, comment_liked and comment_created events for the caller.
// @Tags notifications
// @Security BearerAuth
// @Param token query string false "Access token when headers cannot be set"
// @Success 101
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration failed", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		middleware.Logger.Info("notification socket connected", "user_id", userID)

		go client.WritePump()
		client.ReadPump()
	})
}

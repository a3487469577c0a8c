package api

import (
	"strings"

	domain "github.com/example/ai-support-chat/domain/user"
	"github.com/example/ai-support-chat/modules/auth"
	"github.com/example/ai-support-chat/modules/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	// UserContextKey is the key used to store user claims in the Fiber context.
	UserContextKey = "user"
	// SessionContextKey holds the chat session opened by the connection gate.
	SessionContextKey = "chat_session"
)

// AuthMiddleware creates a middleware that validates JWT tokens.
func AuthMiddleware(authAdapter auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header is required",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid authorization header format. Use: Bearer <token>",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Token is required",
			})
		}

		claims, err := authAdapter.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// ConnectionGate authenticates websocket connections before the upgrade.
// It is mounted on the websocket router, so every route below it is gated.
// The token comes from the Authorization header or the "token" query
// parameter, since browsers cannot set headers on websocket requests.
// A rejected connection is answered with 401 and never upgraded.
func ConnectionGate(authAdapter auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := chat.NewSession("")
		_ = session.BeginAuth()

		token := bearerToken(c)
		if token == "" {
			return rejectConnection(c, session, "Token is required")
		}

		claims, err := authAdapter.ValidateToken(c.UserContext(), token)
		if err != nil {
			return rejectConnection(c, session, "Invalid or expired token")
		}

		if !websocket.IsWebSocketUpgrade(c) {
			session.Close()
			return fiber.ErrUpgradeRequired
		}

		if err := session.Accept(chat.Identity{UserID: claims.UserID, Username: claims.Username}); err != nil {
			return err
		}
		c.Locals(UserContextKey, claims)
		c.Locals(SessionContextKey, session)
		return c.Next()
	}
}

// joinRoom moves the gated session into the room named by the route.
func joinRoom(c *fiber.Ctx) error {
	session, ok := c.Locals(SessionContextKey).(*chat.Session)
	if !ok {
		return fiber.ErrUnauthorized
	}
	if room := c.Params("room"); room != "" {
		session.Room = room
	}
	return c.Next()
}

func bearerToken(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return c.Query("token")
}

func rejectConnection(c *fiber.Ctx, session *chat.Session, message string) error {
	_ = session.Reject()
	session.Close()
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: message,
	})
}

// claimsFrom returns the claims stored by AuthMiddleware.
func claimsFrom(c *fiber.Ctx) (*domain.Claims, bool) {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	return claims, ok
}

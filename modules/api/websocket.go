package api

import (
	"context"
	"log/slog"

	"github.com/example/ai-support-chat/modules/chat"
	"github.com/gofiber/contrib/websocket"
)

// chatHandler bridges an upgraded connection to the chat relay.
func chatHandler(ctx context.Context, relay *chat.Relay, logger *slog.Logger) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		// unblock ReadMessage on shutdown
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				_ = c.Close()
			case <-done:
			}
		}()

		session, ok := c.Locals(SessionContextKey).(*chat.Session)
		if !ok {
			logger.Error("WebSocket connection without a chat session")
			return
		}

		if err := relay.Serve(ctx, c, session); err != nil {
			logger.Warn("Chat session ended with error", "session_id", session.ID, "error", err)
		}
	}
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jengzang/travel-journal-go/internal/logging"
	"github.com/jengzang/travel-journal-go/internal/middleware"
	"github.com/jengzang/travel-journal-go/internal/stream"
)

// StreamHandler upgrades clients to the live event websocket
type StreamHandler struct {
	hub      *stream.Hub
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(hub *stream.Hub) *StreamHandler {
	return &StreamHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients authenticate with a token, not cookies
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Stream handles GET /api/v1/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	stream.NewClient(h.hub, conn, middleware.UserID(c)).Start()
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/swiftcab/ride-backend/pkg/logger"
	"github.com/swiftcab/ride-backend/pkg/websocket"
)

// HandleWebSocket handles GET /v1/ws: the realtime notification channel.
// Connections are keyed by the user_id query parameter; all trip and
// search events for that user are pushed over this socket.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter is required"})
		return
	}

	upgrader := gorilla.Upgrader{
		ReadBufferSize:  h.WS.ReadBufferSize,
		WriteBufferSize: h.WS.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins in development
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("Failed to upgrade to WebSocket", logger.Err(err))
		return
	}

	client := websocket.NewClient(h.Hub, conn, userID, h.Logger)
	h.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/nassert93-sketch/PharmaConnect/internal/auth"
	"github.com/nassert93-sketch/PharmaConnect/internal/models"
	"github.com/nassert93-sketch/PharmaConnect/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const pongWait = 30 * time.Second

type WebSocketHandler struct {
	Hub *socket.Hub
}

// HandleConnection upgrades the request and keeps the connection registered
// until the client goes away. Auth is a token query parameter because
// browsers cannot set headers on websocket upgrades.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
		return
	}

	claims := &auth.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return auth.JwtSecret, nil
	})
	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	actorID := claims.ActorID()
	h.Hub.Register(actorID, conn, claims.Role == models.RoleAdmin)

	go h.readLoop(actorID, conn)
}

func (h *WebSocketHandler) readLoop(actorID string, conn *websocket.Conn) {
	defer func() {
		h.Hub.Unregister(actorID)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The server never acts on client messages; the loop only surfaces
	// disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

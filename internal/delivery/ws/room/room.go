package ws_room

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/reelmatch/core/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type Controller struct {
	hub    *Hub
	logger *slog.Logger
}

func NewController(hub *Hub) *Controller {
	return &Controller{
		hub:    hub,
		logger: slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/rooms/:room_code/ws", c.serve)
}

func (c *Controller) serve(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		Hub:      c.hub,
		Conn:     conn,
		Send:     make(chan []byte, 32),
		RoomCode: model.RoomCode(ctx.Param("room_code")),
	}

	c.hub.RegisterClient(client)
	go c.hub.StartClientWriting(client)
	go c.hub.StartClientReading(client)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/skillswap/skillswap-backend/internal/common"
	"github.com/skillswap/skillswap-backend/internal/config"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/skillswap/skillswap-backend/internal/middleware"
	"github.com/skillswap/skillswap-backend/internal/ws"
	"github.com/skillswap/skillswap-backend/pkg/logger"
)

// WSHandler upgrades messaging gateway connections
type WSHandler struct {
	hub            *ws.Hub
	allowedOrigins map[string]bool
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler; allowedOrigins is comma-separated
func NewWSHandler(hub *ws.Hub, allowedOrigins string) *WSHandler {
	h := &WSHandler{
		hub:            hub,
		allowedOrigins: make(map[string]bool),
	}
	for _, origin := range config.SplitAndTrim(allowedOrigins, ",") {
		h.allowedOrigins[origin] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin allows same-origin requests, and any origin when none are configured
func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	return h.allowedOrigins[origin]
}

// Connect handles GET /ws/messages
// @Summary Realtime messaging gateway (WebSocket)
// @Description Frames: open, close, send, read. Server pushes history, message, out_of_sync.
// @Tags messages
// @Security BearerAuth
// @Param access_token query string false "JWT when headers are unavailable"
// @Router /ws/messages [get]
func (h *WSHandler) Connect(c *gin.Context) {
	viewer := middleware.Viewer(c)
	if _, ok := domain.UserID(viewer); !ok {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", common.ErrUnauthenticated)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.GetLogger().Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, viewer)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

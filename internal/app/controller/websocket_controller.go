package controller

import (
	"net/http"

	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/internal/middleware"
	ws "github.com/bizcomply/compliance-backend/internal/websocket"
	"github.com/gin-gonic/gin"
)

// WebSocketController upgrades authenticated requests into live
// notification streams.
type WebSocketController struct {
	hub *ws.Hub
}

func NewWebSocketController(hub *ws.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// Connect joins the caller to the hub
// GET /ws?token=...
func (ctrl *WebSocketController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	rc, ok := requestContext(c)
	if !ok {
		return
	}

	conn, err := ws.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, rc.UserID, rc.CompanyID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("WebSocket connection established", map[string]interface{}{
		"user_id":    rc.UserID,
		"company_id": rc.CompanyID,
	})
}

// OnlineUsers lists connected users of the caller's company
// GET /api/v1/notifications/online
func (ctrl *WebSocketController) OnlineUsers(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_ids": ctrl.hub.OnlineUsers(companyID)})
}

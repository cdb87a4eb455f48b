package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	commonauth "eventgallery/server/common/auth"
	"eventgallery/server/common/transport/httpresp"
)

func (h *Handler) getEvent(c *gin.Context) {
	ev, err := h.events.Get(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		writeServiceError(c, "get_event", err)
		return
	}
	c.JSON(http.StatusOK, NewEventResponse(ev))
}

func (h *Handler) createEvent(c *gin.Context) {
	if h.bootstrapToken == "" {
		c.JSON(http.StatusForbidden, NewErrorResponse(httpresp.ErrBootstrapDisabled))
		return
	}
	given := strings.TrimSpace(c.GetHeader("X-Bootstrap-Token"))
	if subtle.ConstantTimeCompare([]byte(given), []byte(h.bootstrapToken)) != 1 {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	var req struct {
		EventID  string `json:"event_id" binding:"required"`
		Name     string `json:"name" binding:"required"`
		AdminID  string `json:"admin_id" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	ev, err := h.events.Create(c.Request.Context(), req.EventID, req.Name, req.AdminID, req.Password)
	if err != nil {
		writeServiceError(c, "create_event", err)
		return
	}
	c.JSON(http.StatusCreated, NewEventResponse(ev))
}

func (h *Handler) adminLogin(c *gin.Context) {
	var req struct {
		AdminID  string `json:"admin_id" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	eventID := c.Param("eventId")
	token, err := h.events.Login(c.Request.Context(), eventID, req.AdminID, req.Password)
	if err != nil {
		writeServiceError(c, "admin_login", err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewTokenResponse(token, strings.TrimSpace(req.AdminID), eventID, commonauth.RoleAdmin, int64(h.auth.TTL().Seconds())))
}

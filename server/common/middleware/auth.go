package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eventgallery/server/common/transport/httpresp"
)

const (
	CtxAccessToken = "auth_access_token"
	CtxAdminID     = "auth_admin_id"
	CtxEventID     = "auth_event_id"
	CtxRole        = "auth_role"
)

type tokenAuth interface {
	ParseAuthContext(token string) (adminID, eventID, role string, err error)
}

// BearerToken returns the Authorization bearer token, falling back to the
// access_token query parameter for websocket upgrades.
func BearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token != "" {
			return token, true
		}
	}
	token := strings.TrimSpace(c.Query("access_token"))
	if token == "" {
		return "", false
	}
	return token, true
}

func AuthRequired(auth tokenAuth) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrMissingBearerToken))
			return
		}
		adminID, eventID, role, err := auth.ParseAuthContext(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrInvalidToken))
			return
		}
		c.Set(CtxAccessToken, token)
		c.Set(CtxAdminID, adminID)
		c.Set(CtxEventID, eventID)
		c.Set(CtxRole, role)
		c.Next()
	}
}

func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, role := range roles {
		allowed[strings.TrimSpace(role)] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, httpresp.NewErrorResponse(httpresp.ErrForbidden))
			return
		}
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, httpresp.NewErrorResponse(httpresp.ErrInsufficientRole))
			return
		}
		c.Next()
	}
}

// RequireEventParam rejects tokens issued for another event than the one in
// the named path parameter.
func RequireEventParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxEventID) != c.Param(param) {
			c.AbortWithStatusJSON(http.StatusForbidden, httpresp.NewErrorResponse(httpresp.ErrEventMismatch))
			return
		}
		c.Next()
	}
}

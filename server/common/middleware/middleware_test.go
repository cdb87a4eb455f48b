package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubAuth struct {
	eventID string
	role    string
	err     error
}

func (s stubAuth) ParseAuthContext(string) (string, string, string, error) {
	return "adm", s.eventID, s.role, s.err
}

func newRouter(auth tokenAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/events/:eventId", AuthRequired(auth), RequireRoles("admin"), RequireEventParam("eventId"))
	g.GET("/secret", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func serve(r http.Handler, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthChain(t *testing.T) {
	tests := []struct {
		name  string
		auth  stubAuth
		path  string
		token string
		want  int
	}{
		{name: "missing token", auth: stubAuth{}, path: "/events/e1/secret", want: http.StatusUnauthorized},
		{name: "invalid token", auth: stubAuth{err: errors.New("bad")}, path: "/events/e1/secret", token: "x", want: http.StatusUnauthorized},
		{name: "wrong role", auth: stubAuth{eventID: "e1", role: "guest"}, path: "/events/e1/secret", token: "x", want: http.StatusForbidden},
		{name: "other event", auth: stubAuth{eventID: "e2", role: "admin"}, path: "/events/e1/secret", token: "x", want: http.StatusForbidden},
		{name: "ok", auth: stubAuth{eventID: "e1", role: "admin"}, path: "/events/e1/secret", token: "x", want: http.StatusNoContent},
		{name: "query token", auth: stubAuth{eventID: "e1", role: "admin"}, path: "/events/e1/secret?access_token=x", want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(newRouter(tt.auth), tt.path, tt.token))
		})
	}
}

func TestIPRateLimiterBurstAndEviction(t *testing.T) {
	l := NewIPRateLimiter(60, 2)
	now := time.Now()

	assert.True(t, l.Allow("1.1.1.1", now))
	assert.True(t, l.Allow("1.1.1.1", now))
	assert.False(t, l.Allow("1.1.1.1", now))
	assert.True(t, l.Allow("2.2.2.2", now))
	assert.True(t, l.Allow("1.1.1.1", now.Add(1100*time.Millisecond)))

	l.evictIdle(now.Add(10 * time.Minute))
	assert.Empty(t, l.visitors)
}

package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	commonauth "eventgallery/server/common/auth"
	"eventgallery/server/common/metrics"
	"eventgallery/server/common/middleware"
	"eventgallery/server/gallery/feed"
	"eventgallery/server/gallery/service"
)

type Deps struct {
	Events     *service.EventService
	Uploads    *service.UploadService
	Moderation *service.ModerationService
	Memories   *service.MemoryService
	Voices     *service.VoiceService

	Media  feed.Store
	Prober feed.Prober
	Feed   feed.Config
	Hub    *service.FeedHub

	Auth           *commonauth.Service
	UploadLimiter  *middleware.IPRateLimiter
	BootstrapToken string
	MaxUploadBytes int64
	Ready          func(ctx context.Context) error
}

type Handler struct {
	events     *service.EventService
	uploads    *service.UploadService
	moderation *service.ModerationService
	memories   *service.MemoryService
	voices     *service.VoiceService

	media   feed.Store
	prober  feed.Prober
	feedCfg feed.Config
	hub     *service.FeedHub

	auth           *commonauth.Service
	uploadLimiter  *middleware.IPRateLimiter
	bootstrapToken string
	maxUploadBytes int64
	ready          func(ctx context.Context) error
}

func NewHandler(d Deps) *Handler {
	if d.UploadLimiter == nil {
		d.UploadLimiter = middleware.NewIPRateLimiter(30, 10)
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 512 << 20
	}
	if d.Ready == nil {
		d.Ready = func(context.Context) error { return nil }
	}
	return &Handler{
		events:         d.Events,
		uploads:        d.Uploads,
		moderation:     d.Moderation,
		memories:       d.Memories,
		voices:         d.Voices,
		media:          d.Media,
		prober:         d.Prober,
		feedCfg:        d.Feed,
		hub:            d.Hub,
		auth:           d.Auth,
		uploadLimiter:  d.UploadLimiter,
		bootstrapToken: d.BootstrapToken,
		maxUploadBytes: d.MaxUploadBytes,
		ready:          d.Ready,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, NewHealthResponse("ok")) })
	r.GET("/health/live", func(c *gin.Context) { c.JSON(http.StatusOK, NewHealthResponse("ok")) })
	r.GET("/health/ready", h.readiness)
	r.GET("/metrics", metrics.Handler())
	r.GET("/ws/events/:eventId/feed", h.handleFeedWS)

	api := r.Group("/api/v1")
	{
		api.POST("/events", h.createEvent)
		api.GET("/events/:eventId", h.getEvent)
		api.POST("/events/:eventId/admin/login", h.adminLogin)
		api.GET("/events/:eventId/media", h.publicMediaPage)
		api.POST("/events/:eventId/media", h.uploadLimiter.Handler(), h.uploadMedia)
		api.GET("/events/:eventId/memories", h.listPublicMemories)
		api.POST("/events/:eventId/memories", h.uploadLimiter.Handler(), h.createMemory)
		api.GET("/events/:eventId/voices", h.listPublicVoices)
		api.POST("/events/:eventId/voices", h.uploadLimiter.Handler(), h.uploadVoice)
	}

	admin := api.Group("/admin/events/:eventId")
	admin.Use(
		middleware.AuthRequired(h.auth),
		middleware.RequireRoles(commonauth.RoleAdmin),
		middleware.RequireEventParam("eventId"),
	)
	{
		admin.GET("/media", h.adminMediaPage)
		admin.POST("/media/:mediaId/visibility", h.toggleMediaVisibility)
		admin.DELETE("/media/:mediaId", h.deleteMedia)
		admin.GET("/memories", h.listAllMemories)
		admin.POST("/memories/:memoryId/visibility", h.toggleMemoryVisibility)
		admin.DELETE("/memories/:memoryId", h.deleteMemory)
		admin.GET("/voices", h.listAllVoices)
		admin.POST("/voices/:voiceId/visibility", h.toggleVoiceVisibility)
		admin.DELETE("/voices/:voiceId", h.deleteVoice)
	}
}

func (h *Handler) readiness(c *gin.Context) {
	if err := h.ready(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, NewHealthResponse("unavailable"))
		return
	}
	c.JSON(http.StatusOK, NewHealthResponse("ok"))
}

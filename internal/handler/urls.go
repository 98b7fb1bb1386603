package handlers

import (
	"VoiceBoard/internal/pipeline"
	"VoiceBoard/pkg/cache"
	"VoiceBoard/pkg/i18n"
	"VoiceBoard/pkg/metrics"
	"VoiceBoard/pkg/middleware"
	"VoiceBoard/pkg/rotation"
	"VoiceBoard/pkg/search"
	"VoiceBoard/pkg/sse"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"gorm.io/gorm"
)

// Options tune the HTTP surface. Zero values fall back to defaults.
type Options struct {
	MaxUploadBytes  int64
	DisplayCacheTTL time.Duration
	UploadRate      string
	LimiterStore    limiter.Store
	IdemStore       middleware.IdemStore
	AdminSecret     string
	Geo             middleware.GeoLocator
	DebugRoutes     bool
	DiskPath        string
	Interval        time.Duration
	Fade            time.Duration
	RefreshEvery    time.Duration
}

type Handlers struct {
	db       *gorm.DB
	pipeline *pipeline.Pipeline
	cache    cache.Cache
	i18n     *i18n.I18nSupport
	hub      *sse.Hub
	search   search.Engine
	metrics  *metrics.Metrics
	opts     Options
}

// NewHandlers wires the routes' collaborators. cache, engine and m may be nil.
func NewHandlers(db *gorm.DB, p *pipeline.Pipeline, c cache.Cache, tr *i18n.I18nSupport, hub *sse.Hub, engine search.Engine, m *metrics.Metrics, opts Options) *Handlers {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.DisplayCacheTTL <= 0 {
		opts.DisplayCacheTTL = 10 * time.Second
	}
	if opts.UploadRate == "" {
		opts.UploadRate = "10-M"
	}
	if opts.DiskPath == "" {
		opts.DiskPath = "/"
	}
	if opts.Interval <= 0 {
		opts.Interval = rotation.DefaultInterval
	}
	if opts.Fade <= 0 {
		opts.Fade = rotation.DefaultFade
	}
	if opts.RefreshEvery <= 0 {
		opts.RefreshEvery = rotation.DefaultRefreshEvery
	}
	if hub == nil {
		hub = sse.NewHub(0)
	}
	return &Handlers{
		db:       db,
		pipeline: p,
		cache:    c,
		i18n:     tr,
		hub:      hub,
		search:   engine,
		metrics:  m,
		opts:     opts,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	r := engine.Group("")
	r.Use(middleware.LanguageMiddleware(h.i18n))

	h.registerSystemRoutes(r)
	h.registerUploadRoutes(r)
	h.registerAdminRoutes(r)
	h.registerDisplayRoutes(r)
}

// Upload Module
func (h *Handlers) registerUploadRoutes(r *gin.RouterGroup) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:        h.opts.UploadRate,
		Identifier:  "ip",
		AddHeaders:  true,
		DenyMessage: func(c *gin.Context) string { return h.t(c, "request.too_many") },
	}, h.opts.LimiterStore)
	if h.metrics != nil {
		rl.WithObserver(middleware.NewPrometheusObserver(h.metrics.Registry()))
	}

	r.POST("/upload-audio",
		rl.Middleware(),
		middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{
			Store:           h.opts.IdemStore,
			ConflictMessage: func(c *gin.Context) string { return h.t(c, "request.duplicate") },
		}),
		h.handleUploadAudio,
	)
}

// Admin Module
func (h *Handlers) registerAdminRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	admin.Use(h.adminGuards()...)
	{
		admin.GET("/messages", h.handleListVoiceMessages)
		admin.GET("/messages/search", h.handleSearchVoiceMessages)
		admin.GET("/messages/:id", h.handleGetVoiceMessage)
		admin.PUT("/messages/:id", h.handleUpdateVoiceMessage)
		admin.DELETE("/messages/:id", h.handleDeleteVoiceMessage)
		admin.POST("/messages/:id/display", h.handleSendToDisplay)

		admin.GET("/operation-logs", h.handleListOperationLogs)
	}
}

// Display Module
func (h *Handlers) registerDisplayRoutes(r *gin.RouterGroup) {
	display := r.Group("/display")
	{
		display.GET("/messages", h.handleListDisplayMessages)
		display.GET("/stream", h.handleDisplayStream)

		guards := h.adminGuards()
		display.POST("/messages", append(guards, h.handleCreateDisplayMessage)...)
		display.PUT("/messages/:id", append(guards, h.handleUpdateDisplayMessage)...)
		display.DELETE("/messages/:id", append(guards, h.handleDeleteDisplayMessage)...)
		display.POST("/messages/:id/toggle", append(guards, h.handleToggleDisplayMessage)...)
	}
}

// System Module
func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("/system")
	{
		system.GET("/health", h.handleHealthCheck)
		system.GET("/stats", h.handleSystemStats)
	}
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	if h.opts.DebugRoutes {
		r.GET("/debug/db", h.handleDebugDB)
	}
}

// adminGuards protect every mutating or back-office route: an optional HMAC
// signature check followed by the operation log.
func (h *Handlers) adminGuards() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.SignVerifyMiddleware(h.opts.AdminSecret, 5*time.Minute),
		middleware.OperationLogMiddleware(h.db, h.opts.Geo),
	}
}

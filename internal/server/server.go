package server

import (
	"io"
	"time"

	"otaflow/internal/api/handlers"
	"otaflow/internal/api/middleware"
	"otaflow/internal/cache"
	"otaflow/internal/config"
	"otaflow/internal/db"
	"otaflow/internal/notify"
	"otaflow/internal/repository"
	"otaflow/internal/resolver"
	"otaflow/internal/service"
	"otaflow/internal/stats"
	"otaflow/internal/storage"
	"otaflow/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// statsBuffer is how many pending outcome events may queue before Record
// starts dropping
const statsBuffer = 4096

// noticeInterval caps owner notices to one per (org, event) per interval
const noticeInterval = time.Hour

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	cfg    *config.Config
	db     *db.Database
	store  cache.Store
	issuer storage.Issuer
	sink   stats.Sink
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, database *db.Database, store cache.Store, issuer storage.Issuer) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Disable Gin's default logger entirely because we're using our custom logger
	gin.DisableConsoleColor()
	gin.DefaultWriter = io.Discard

	router := gin.New()
	router.Use(gin.Recovery())

	return &Server{
		router: router,
		cfg:    cfg,
		db:     database,
		store:  store,
		issuer: issuer,
	}
}

// Start wires repositories, services and routes, then serves until the
// listener fails.
func (s *Server) Start() error {
	appRepo := repository.NewAppRepository(s.db.DB)
	orgRepo := repository.NewOrgRepository(s.db.DB)
	resolutionRepo := repository.NewResolutionRepository(s.db.DB)
	deviceRepo := repository.NewDeviceRepository(s.db.DB)
	statsRepo := repository.NewStatsRepository(s.db.DB)

	s.sink = stats.NewSink(deviceRepo, statsRepo, statsBuffer)

	var transport notify.Transport
	if s.cfg.TelegramBotToken != "" && s.cfg.TelegramChatID != "" {
		transport = notify.NewTelegramService(s.cfg.TelegramBotToken, s.cfg.TelegramChatID)
	}
	notifier := notify.NewNotifier(transport, noticeInterval)

	res := resolver.New(appRepo, orgRepo, resolutionRepo, s.issuer, s.sink, notifier, s.cfg.SignedURLTTL)
	updateService := service.NewUpdateService(s.store, res, s.cfg.ResolveTimeout)
	triggerService := service.NewTriggerService(s.store)

	updateHandler := handlers.NewUpdateHandler(updateService)
	triggerHandler := handlers.NewTriggerHandler(triggerService)
	healthHandler := handlers.NewHealthHandler(s.db, s.store)

	// Global middleware
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		RPS:   200,
		Burst: 400,
	}))
	s.router.Use(middleware.RequestLogger())
	if s.cfg.OTLPEndpoint != "" {
		s.router.Use(otelgin.Middleware(telemetry.ServiceName))
	}

	// Health check endpoint - no auth required
	s.router.GET("/health", healthHandler.Check)

	// Device check-ins
	s.router.POST("/updates", updateHandler.Check)

	// Cache invalidation triggers, called by the control plane
	triggers := s.router.Group("/triggers")
	triggers.Use(middleware.RequireAPISecret(s.cfg.TriggerAPISecret))
	{
		triggers.POST("/on_bundle_change", triggerHandler.OnBundleChange)
		triggers.POST("/on_device_change", triggerHandler.OnDeviceChange)
	}

	return s.router.Run(":" + s.cfg.Port)
}

// Close flushes the stats sink
func (s *Server) Close() {
	if s.sink != nil {
		s.sink.Close()
	}
}

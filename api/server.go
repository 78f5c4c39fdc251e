package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudpilot-labs/cost-governor/api/handlers"
	"github.com/cloudpilot-labs/cost-governor/api/middleware"
	"github.com/cloudpilot-labs/cost-governor/api/websocket"
	"github.com/cloudpilot-labs/cost-governor/internal/auth"
	"github.com/cloudpilot-labs/cost-governor/pkg/config"
	"github.com/cloudpilot-labs/cost-governor/pkg/database"
	"github.com/cloudpilot-labs/cost-governor/pkg/database/queries"
	"github.com/gin-gonic/gin"
)

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      config.APIConfig
	wsConfig    config.WebSocketConfig
	db          *database.DB
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
	governor    handlers.Governor
}

func NewServer(cfg config.APIConfig, wsCfg config.WebSocketConfig, db *database.DB, governor handlers.Governor) *Server {
	if cfg.JWTSecret == "" || cfg.JWTSecret == "change-me-in-production" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtDuration := cfg.JWTDuration
	if jwtDuration == 0 {
		jwtDuration = 24 * time.Hour
	}

	router := gin.New()
	authService := auth.NewService(cfg.JWTSecret, jwtDuration)
	wsHub := websocket.NewHub(wsCfg)

	s := &Server{
		router:      router,
		config:      cfg,
		wsConfig:    wsCfg,
		db:          db,
		authService: authService,
		wsHub:       wsHub,
		governor:    governor,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if governor != nil {
		eventsChan := governor.SubscribeAllEvents()
		s.wsBridge = websocket.NewEventBridge(wsHub, eventsChan)
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())

	corsCfg := middleware.DefaultCORSConfig()
	if len(s.config.CORS.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = s.config.CORS.AllowedOrigins
	}
	if len(s.config.CORS.AllowedMethods) > 0 {
		corsCfg.AllowMethods = s.config.CORS.AllowedMethods
	}
	if len(s.config.CORS.AllowedHeaders) > 0 {
		corsCfg.AllowHeaders = s.config.CORS.AllowedHeaders
	}
	corsCfg.AllowCredentials = s.config.CORS.AllowCredentials

	s.router.Use(middleware.CORS(corsCfg))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())

	rateLimiter := middleware.NewRateLimiter(100, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.db)
	fleetHandler := handlers.NewFleetHandler(s.governor)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		protected.GET("/fleets", fleetHandler.List)
		protected.GET("/fleets/:id", fleetHandler.Get)
		protected.GET("/fleets/:id/status", fleetHandler.GetStatus)
	}

	// Persisted history needs the database; without it the service
	// still serves live state.
	if s.db != nil {
		userRepo := queries.NewUserRepository(s.db.DB)
		actionRepo := queries.NewCapacityActionRepository(s.db.DB)
		warningRepo := queries.NewWarningRepository(s.db.DB)

		authHandler := handlers.NewAuthHandler(userRepo, s.authService)
		historyHandler := handlers.NewHistoryHandler(actionRepo, warningRepo, s.config.DefaultLimit, s.config.MaxLimit)

		s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/fleets/:id/actions", historyHandler.GetFleetActions)
		protected.GET("/fleets/:id/actions/stats", historyHandler.GetFleetActionStats)
		protected.GET("/actions/recent", historyHandler.GetRecentActions)
		protected.GET("/warnings/recent", historyHandler.GetRecentWarnings)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}

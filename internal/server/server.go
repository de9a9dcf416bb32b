// Package server exposes the engine over HTTP: test management, metrics
// ingestion, results, auto-completion, and history insights.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/splitsignal/splitsignal/internal/engine"
	"github.com/splitsignal/splitsignal/internal/store"
)

type Server struct {
	store         *store.SQLiteStore
	defaultPolicy engine.Policy
	router        *gin.Engine
	logger        *zap.Logger
	startTime     time.Time
}

func New(s *store.SQLiteStore, defaultPolicy engine.Policy, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	srv := &Server{
		store:         s,
		defaultPolicy: defaultPolicy,
		router:        gin.New(),
		logger:        logger,
		startTime:     time.Now(),
	}

	srv.router.Use(gin.Recovery(), srv.requestLogger())
	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/tests", s.handleCreateTest)
		api.GET("/tests", s.handleListTests)
		api.GET("/tests/:id", s.handleGetTest)
		api.POST("/tests/:id/start", s.handleStartTest)
		api.POST("/tests/:id/cancel", s.handleCancelTest)
		api.POST("/tests/:id/metrics", s.handleUpdateMetrics)
		api.GET("/tests/:id/results", s.handleResults)
		api.POST("/tests/:id/complete", s.handleCompleteTest)
		api.POST("/tests/:id/autocomplete", s.handleAutoComplete)
		api.GET("/users/:userID/insights", s.handleInsights)
	}
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.logger.Info("server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

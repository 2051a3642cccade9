// Package api exposes the pool over HTTP with gin, plus a websocket stream of live scores.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/catalog"
	"github.com/yourusername/banker-pool/internal/leaderboard"
	"github.com/yourusername/banker-pool/internal/metrics"
	"github.com/yourusername/banker-pool/internal/raceday"
)

// Config holds the dependencies and settings of the API server
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MetricsPath  string
	Release      bool

	Days        *raceday.Service
	Leaderboard *leaderboard.Service
	Reconciler  *leaderboard.Reconciler
	// Catalog is optional; without it days can only be opened with an explicit race list.
	Catalog     catalog.Source
	Logger      *logrus.Logger
}

// Server is the pool's HTTP API
type Server struct {
	cfg    Config
	router *gin.Engine
	hub    *Hub
	server *http.Server
	logger *logrus.Logger
}

// NewServer builds the router and subscribes the score stream to the race day service
func NewServer(cfg Config) *Server {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		router: gin.New(),
		hub:    NewHub(cfg.Logger),
		logger: cfg.Logger,
	}
	cfg.Days.OnScoresChanged(s.hub.Publish)
	s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(gin.Recovery(), requestID(), requestLogger(s.logger))

	if s.cfg.MetricsPath != "" {
		r.GET(s.cfg.MetricsPath, gin.WrapH(metrics.Handler()))
	}
	r.GET("/ws/scores", gin.WrapH(s.hub))

	h := &handlers{
		days:       s.cfg.Days,
		board:      s.cfg.Leaderboard,
		reconciler: s.cfg.Reconciler,
		catalog:    s.cfg.Catalog,
		logger:     s.logger,
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/racedays", h.openDay)
		v1.GET("/racedays/current", h.currentDay)
		v1.GET("/racedays/index", h.index)
		v1.GET("/racedays/:date", h.getDay)
		v1.POST("/racedays/:date/wagers", h.placeWager)
		v1.POST("/racedays/:date/bankers", h.setBanker)
		v1.DELETE("/racedays/:date/bankers/:participant", h.clearBanker)
		v1.POST("/racedays/:date/races/:race/winner", h.setWinner)
		v1.POST("/racedays/:date/recompute", h.recompute)
		v1.POST("/racedays/:date/complete", h.complete)

		v1.GET("/leaderboard", h.leaderboard)

		v1.POST("/participants", h.registerParticipant)
		v1.GET("/participants/:id", h.getParticipant)
		v1.GET("/participants/:id/history", h.history)

		v1.GET("/reconcile", h.reconcile)
	}
}

// Start serves the API in the background until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go func() {
		s.logger.WithField("address", s.cfg.Address).Info("API server starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown drains in-flight requests and disconnects stream clients
func (s *Server) Shutdown() error {
	s.hub.Close()
	if s.server == nil {
		return nil
	}

	s.logger.Info("API server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

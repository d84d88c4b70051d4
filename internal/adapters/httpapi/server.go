// Package httpapi serves the operator surface: health, status, recent
// signals, the enable switch and Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signalGenerator/internal/app"
	"signalGenerator/internal/domain"
	"signalGenerator/internal/ports"
)

const (
	defaultSignalLimit = 20
	maxSignalLimit     = 500
)

// Controller is the part of the service the HTTP surface drives.
type Controller interface {
	Status() app.Status
	SetEnabled(ctx context.Context, enabled bool)
	RecentSignals(ctx context.Context, limit int) ([]*domain.Signal, error)
}

// Server wraps a gin engine in an http.Server.
type Server struct {
	logger ports.Logger
	ctrl   Controller
	router *gin.Engine
	srv    *http.Server
}

// NewServer builds the router. addr is the listen address.
func NewServer(addr string, ctrl Controller, logger ports.Logger) *Server {
	s := &Server{logger: logger, ctrl: ctrl, router: gin.New()}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/status", s.status)
	s.router.GET("/signals", s.signals)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	strategy := s.router.Group("/strategy")
	{
		strategy.POST("/enable", s.setEnabled(true))
		strategy.POST("/disable", s.setEnabled(false))
	}
}

// Start listens until Shutdown is called. It returns nil on a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": s.srv.Addr})
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	st := s.ctrl.Status()
	state := "healthy"
	if len(st.Degraded) > 0 {
		state = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     state,
		"service":    st.Service,
		"strategy":   st.Strategy,
		"enabled":    st.Enabled,
		"inSession":  st.InSession,
		"inPosition": st.InPosition,
		"degraded":   st.Degraded,
		"timestamp":  st.Timestamp,
	})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Status())
}

func (s *Server) signals(c *gin.Context) {
	limit := defaultSignalLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxSignalLimit)
	}
	sigs, err := s.ctrl.RecentSignals(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error(c.Request.Context(), err, "Failed to load recent signals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": sigs, "count": len(sigs)})
}

func (s *Server) setEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.ctrl.SetEnabled(c.Request.Context(), enabled)
		s.logger.Info(c.Request.Context(), "Strategy toggled over HTTP", map[string]interface{}{"enabled": enabled})
		c.JSON(http.StatusOK, gin.H{"enabled": s.ctrl.Status().Enabled})
	}
}

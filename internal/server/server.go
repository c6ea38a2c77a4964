// Package server exposes the simulator over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/rounds/internal/logger"
)

// Server is the HTTP host.
type Server struct {
	cfg     Config
	sim     Simulator
	log     *logger.Logger
	ping    func(context.Context) error
	limiter *userLimiter
	router  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck makes /health report the result of ping.
func WithHealthCheck(ping func(context.Context) error) Option {
	return func(s *Server) { s.ping = ping }
}

func New(cfg Config, sim Simulator, log *logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.Nop()
	}
	registerValidators()

	s := &Server{cfg: cfg, sim: sim, log: log.With("component", "server")}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.RateLimit > 0 {
		s.limiter = newUserLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe(), maxBody(s.cfg.MaxBodyBytes))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/grading/rubric", s.rubric)
		api.GET("/grading/statistics", s.statistics)
	}

	protected := api.Group("")
	protected.Use(requireUser())
	if s.limiter != nil {
		protected.Use(rateLimit(s.limiter))
	}
	{
		protected.POST("/documents", s.uploadDocument)
		protected.GET("/documents", s.listDocuments)
		protected.GET("/documents/:id", s.getDocument)

		protected.POST("/simulator/generate", s.generate)
		protected.POST("/simulator/submit", s.submit)
		protected.GET("/simulator/progress/:document_id", s.progress)
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

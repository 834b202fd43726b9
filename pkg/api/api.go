package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/finopscloud/sla-engine/pkg/config"
	"github.com/finopscloud/sla-engine/pkg/metrics"
	"github.com/finopscloud/sla-engine/pkg/ratelimit"
	"github.com/finopscloud/sla-engine/pkg/system"
	"github.com/finopscloud/sla-engine/pkg/version"
)

type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

type Server struct {
	gin             *gin.Engine
	config          config.Config
	http            *http.Server
	readLimiter     *ratelimit.Limiter
	mutationLimiter *ratelimit.Limiter
}

func NewServer(log *zap.Logger, cfg config.Config, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		system.ReqLoggerMiddleware(log.Sugar()),
	)

	if len(cfg.Server.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.Server.TrustedProxies)
	}

	if debug {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins: []string{"http://localhost:5173", "127.0.0.1:8080"},
				AllowMethods: []string{"GET", "PUT", "PATCH", "POST", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Authorization", "Content-Type"},
				MaxAge:       12 * time.Hour,
			}),
		)
	}

	s := &Server{
		gin:    engine,
		config: cfg,
	}

	engine.GET("healthz", s.healthz)
	engine.GET("metrics", gin.WrapH(metrics.MetricsHandler()))
	engine.GET("api/version", s.getVersion)

	return s
}

func (s *Server) RegisterAll(controllers []APIController) error {
	var handlers []gin.HandlerFunc
	if s.config.Server.RateLimit {
		s.readLimiter = ratelimit.New(ratelimit.DefaultReadConfig())
		s.mutationLimiter = ratelimit.New(ratelimit.DefaultMutationConfig())
		handlers = append(handlers, ratelimit.PerMethod(s.readLimiter, s.mutationLimiter))
	}
	r := s.gin.Group("api", handlers...)
	for _, c := range controllers {
		if err := c.Register(r.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return err
		}
	}
	return nil
}

// Listen serves until the listener fails or Shutdown is called.
func (s *Server) Listen() error {
	s.http = &http.Server{
		Addr:    s.config.Server.ListenAddress,
		Handler: s.gin,
	}
	if s.config.Server.TLSCertFile != "" && s.config.Server.TLSKeyFile != "" {
		err := s.http.ListenAndServeTLS(s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.readLimiter != nil {
		s.readLimiter.Stop()
	}
	if s.mutationLimiter != nil {
		s.mutationLimiter.Stop()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Engine exposes the underlying router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.gin
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.GetBuildInfo())
}

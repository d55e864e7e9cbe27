package main

import (
	"context"
	"net/http"

	"github.com/BaSui01/cricketflow/api/handlers"
	"github.com/BaSui01/cricketflow/config"
	"github.com/BaSui01/cricketflow/internal/metrics"
	"github.com/BaSui01/cricketflow/internal/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🖥️ Server
// =============================================================================

// publicPaths 无需鉴权的路径
var publicPaths = []string{"/", "/health", "/healthz", "/ready", "/readyz", "/version"}

// Server 托管 API 与指标两个监听
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	asker     handlers.Asker
	checks    []handlers.HealthCheck
	collector *metrics.Collector

	health *handlers.HealthHandler
}

// NewServer 创建服务器。asker 为 nil 时 /ask 与 /ws/ask 返回 503
func NewServer(cfg *config.Config, asker handlers.Asker, checks []handlers.HealthCheck, collector *metrics.Collector, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		asker:     asker,
		checks:    checks,
		collector: collector,
		health:    handlers.NewHealthHandler(logger),
	}
	for _, c := range checks {
		s.health.RegisterCheck(c)
	}
	return s
}

// Handler 构建带中间件链的 API 路由
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.health.HandleRoot)
	mux.HandleFunc("GET /health", s.health.HandleHealth)
	mux.HandleFunc("GET /healthz", s.health.HandleHealth)
	mux.HandleFunc("GET /ready", s.health.HandleReady)
	mux.HandleFunc("GET /readyz", s.health.HandleReady)
	mux.HandleFunc("GET /version", s.health.HandleVersion(Version, BuildTime, GitCommit))

	ask := handlers.NewAskHandler(s.asker, s.logger)
	mux.HandleFunc("POST /ask", ask.HandleAsk)
	stream := handlers.NewStreamHandler(s.asker, s.cfg.Server.CORSAllowedOrigins, s.logger)
	mux.HandleFunc("GET /ws/ask", stream.HandleStream)

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		OTelTracing(),
	}
	if s.collector != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.collector))
	}
	middlewares = append(middlewares,
		SecurityHeaders(),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		Auth(AuthConfig{
			APIKeys:       s.cfg.Server.APIKeys,
			JWT:           s.cfg.Server.JWT,
			SkipPaths:     publicPaths,
			QueryKeyPaths: []string{"/ws/ask"},
		}, s.logger),
	)
	return Chain(mux, middlewares...)
}

// Run 阻塞直到 ctx 取消或任一监听异常退出，随后关闭两个监听
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	api := server.NewManager("api", s.Handler(gctx), server.ConfigFrom(s.cfg.Server, s.cfg.Server.HTTPPort), s.logger)
	g.Go(func() error { return api.Run(gctx) })

	if s.cfg.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv := server.NewManager("metrics", mux, server.ConfigFrom(s.cfg.Server, s.cfg.Server.MetricsPort), s.logger)
		g.Go(func() error { return metricsSrv.Run(gctx) })
	}

	s.logger.Info("cricketflow serving",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Int("health_checks", len(s.checks)),
	)
	return g.Wait()
}

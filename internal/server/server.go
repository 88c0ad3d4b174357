package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	analyticsdomain "github.com/smallbiznis/analytics/internal/analytics/domain"
	"github.com/smallbiznis/analytics/internal/analytics/listener"
	"github.com/smallbiznis/analytics/internal/config"
	"github.com/smallbiznis/analytics/internal/observability"
	obsmiddleware "github.com/smallbiznis/analytics/internal/observability/logger"
	obstracing "github.com/smallbiznis/analytics/internal/observability/tracing"
	reportdomain "github.com/smallbiznis/analytics/internal/reports/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(func(l *listener.Listener) RefreshQueue { return l }),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// RefreshQueue accepts asynchronous account refreshes.
type RefreshQueue interface {
	EnqueueRefresh(ctx context.Context, kind analyticsdomain.RefreshKind, accountID uuid.UUID, cc analyticsdomain.CallContext) (snowflake.ID, error)
	HandleEvent(ctx context.Context, event listener.Event) (bool, error)
}

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	log          *zap.Logger
	analyticsSvc analyticsdomain.Service
	reportSvc    reportdomain.Service
	queue        RefreshQueue
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Log          *zap.Logger
	AnalyticsSvc analyticsdomain.Service
	ReportSvc    reportdomain.Service
	Queue        RefreshQueue `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		log:          p.Log.Named("http"),
		analyticsSvc: p.AnalyticsSvc,
		reportSvc:    p.ReportSvc,
		queue:        p.Queue,
	}

	svc.registerAnalyticsRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAnalyticsRoutes() {
	plugin := s.engine.Group("/plugins/analytics")

	plugin.GET("/reports", s.GetReportsTimeSeries)
	plugin.POST("/events", s.HandleBillingEvent)

	reports := plugin.Group("/reports/config")
	{
		reports.GET("", s.ListReportConfigs)
		reports.POST("", s.CreateReportConfig)
		reports.GET("/:name", s.GetReportConfig)
		reports.PUT("/:name", s.UpdateReportConfig)
		reports.DELETE("/:name", s.DeleteReportConfig)
		reports.POST("/:name/refresh", s.RefreshReportConfig)
	}

	accounts := plugin.Group("/accounts/:accountId")
	{
		accounts.GET("", s.GetAccountSummary)
		accounts.PUT("", s.RebuildAccount)
		accounts.POST("/refresh", s.EnqueueAccountRefresh)
	}
}

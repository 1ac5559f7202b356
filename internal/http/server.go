package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mkarimov/event-gateway/internal/config"
	"github.com/mkarimov/event-gateway/internal/http/middleware"
	"github.com/mkarimov/event-gateway/internal/metrics"
	"github.com/mkarimov/event-gateway/internal/repository"
	"github.com/mkarimov/event-gateway/internal/service/register"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	eventsRepo := repository.NewEventsRepository(mysqlDB)
	regsRepo := repository.NewRegistrationsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)
	syncsRepo := repository.NewSyncResultsRepository(mysqlDB)

	// repos (ClickHouse)
	dlogRepo := repository.NewDeliveryLogRepository(clickhouseDB)

	// services
	registerSvc := register.New(
		repository.NewTxRunner(mysqlDB),
		eventsRepo,
		regsRepo,
		outboxRepo,
		cfg.Notifications.OwnerID,
	)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1")
	v1.GET("/events", listEventsHandler(eventsRepo))
	v1.POST("/events/:id/register", registerHandler(registerSvc), rlMW)

	reports := v1.Group("/reports", middleware.TokenMiddleware(cfg.Reports.Token))
	reports.GET("/sync", listSyncResultsHandler(syncsRepo))
	reports.GET("/deliveries", listDeliveriesHandler(dlogRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

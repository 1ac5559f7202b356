package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mkarimov/event-gateway/internal/config"
	"github.com/mkarimov/event-gateway/internal/db"
	"github.com/mkarimov/event-gateway/internal/gateway"
	"github.com/mkarimov/event-gateway/internal/kafka"
	"github.com/mkarimov/event-gateway/internal/logger"
	"github.com/mkarimov/event-gateway/internal/metrics"
	"github.com/mkarimov/event-gateway/internal/repository"
	"github.com/mkarimov/event-gateway/internal/worker"
)

var dispatcherCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Run the outbox dispatcher (safe to run multiple instances)",
	RunE:  runDispatcher,
}

func runDispatcher(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Log.Level)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) DB connection (MySQL)
	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	outboxRepo := repository.NewOutboxRepository(dbx)

	// 3) sink: one long-lived client shared across cycles
	var sink worker.Sink
	switch strings.ToLower(cfg.Notifications.Transport) {
	case "", "http":
		if strings.TrimSpace(cfg.Notifications.URL) == "" {
			return fmt.Errorf("notifications.url is required for the http transport")
		}
		sink = gateway.NewClient(
			cfg.Notifications.URL,
			cfg.Notifications.Token,
			cfg.Notifications.Timeout,
			cfg.Notifications.Breaker.FailThreshold,
			cfg.Notifications.Breaker.OpenForMs,
		)
	case "kafka":
		producer := kafka.NewProducerFromConfig(kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		defer producer.Close()
		sink = producer
	default:
		return fmt.Errorf("unknown notifications.transport %q", cfg.Notifications.Transport)
	}

	// 4) delivery audit log (ClickHouse, optional)
	var auditRepo repository.DeliveryLogRepository
	if strings.TrimSpace(cfg.ClickHouse.DSN) != "" {
		chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
			DSN:             cfg.ClickHouse.DSN,
			MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
			MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
			ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
			PingTimeout:     cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			logger.Log.Sugar().Warnf("clickhouse unavailable, delivery audit disabled: %v", err)
		} else {
			defer func() { _ = chDB.Close() }()
			auditRepo = repository.NewDeliveryLogRepository(chDB)
		}
	}

	d := worker.NewDispatcher(outboxRepo, sink, auditRepo, logger.Log)

	// tune knobs
	if cfg.Dispatcher.WorkerCount > 0 {
		d.Workers = cfg.Dispatcher.WorkerCount
	}
	if cfg.Dispatcher.BatchSize > 0 {
		d.BatchSize = cfg.Dispatcher.BatchSize
	}
	if cfg.Dispatcher.PollInterval > 0 {
		d.PollInterval = cfg.Dispatcher.PollInterval
	}
	if cfg.Dispatcher.ClaimLease > 0 {
		d.ClaimLease = cfg.Dispatcher.ClaimLease
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}

package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mkarimov/event-gateway/internal/config"
	"github.com/mkarimov/event-gateway/internal/db"
	"github.com/mkarimov/event-gateway/internal/feed"
	"github.com/mkarimov/event-gateway/internal/logger"
	"github.com/mkarimov/event-gateway/internal/metrics"
	"github.com/mkarimov/event-gateway/internal/reconciler"
	"github.com/mkarimov/event-gateway/internal/repository"
)

var (
	reconcileAll   bool
	reconcileDate  string
	reconcileEvery time.Duration
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Sync the local event mirror from the upstream feed",
	RunE:  runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileAll, "all", false, "full resync (walk the entire feed)")
	reconcileCmd.Flags().StringVar(&reconcileDate, "date", "", "only records changed since this date (YYYY-MM-DD)")
	reconcileCmd.Flags().DurationVar(&reconcileEvery, "every", 0, "repeat at this interval instead of running once")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Log.Level)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	opts := reconciler.Options{Full: reconcileAll}
	if reconcileDate != "" {
		since, err := time.Parse("2006-01-02", reconcileDate)
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
		opts.Since = &since
	}

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

	r := reconciler.New(
		feed.NewClient(cfg.Feed.URL, cfg.Feed.Token, cfg.Feed.Timeout),
		repository.NewEventsRepository(dbx),
		repository.NewSyncResultsRepository(dbx),
		logger.Log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if reconcileEvery <= 0 {
		res, err := r.Run(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Printf(">> Sync done. Added: %d, Updated: %d\n", res.AddedCount, res.UpdatedCount)
		return nil
	}

	// periodic mode for running under a supervisor instead of cron
	ticker := time.NewTicker(reconcileEvery)
	defer ticker.Stop()

	for {
		if _, err := r.Run(ctx, opts); err != nil {
			logger.Log.Sugar().Errorf("reconcile run failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

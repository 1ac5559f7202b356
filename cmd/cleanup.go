package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkarimov/event-gateway/internal/config"
	"github.com/mkarimov/event-gateway/internal/db"
	"github.com/mkarimov/event-gateway/internal/repository"
)

var (
	cleanupDays   int
	cleanupBefore string
)

// Retention is a stateless batch job: a filtered bulk delete with a
// cutoff, independent of the delivery/reconciliation core.
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete events older than the retention cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		cutoff := time.Now().AddDate(0, 0, -cleanupDays)
		if cleanupBefore != "" {
			cutoff, err = time.Parse("2006-01-02", cleanupBefore)
			if err != nil {
				return fmt.Errorf("parse --before: %w", err)
			}
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		eventsRepo := repository.NewEventsRepository(sqlDB)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := eventsRepo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("delete old events: %w", err)
		}

		log.Printf(">> Deleted %d events older than %s", n, cutoff.Format("2006-01-02"))
		return nil
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 7, "delete events that ended more than N days ago")
	cleanupCmd.Flags().StringVar(&cleanupBefore, "before", "", "explicit cutoff date (YYYY-MM-DD), overrides --days")
}

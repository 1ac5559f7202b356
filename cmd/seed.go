package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/mkarimov/event-gateway/internal/config"
	"github.com/mkarimov/event-gateway/internal/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo places and events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
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

		log.Println(">> Seeding demo places and events...")

		if err := seedMirror(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

type seedPlace struct {
	id, name string
}

type seedEvent struct {
	id, name, placeID string
	daysAhead         int
}

// seedMirror inserts deterministic demo mirror rows (idempotent). Real
// mirror rows come from the reconciler; this exists for local dev only.
func seedMirror(dbx *sqlx.DB) error {
	places := []seedPlace{
		{"c1a7b6f0-0001-4000-8000-000000000001", "City Concert Hall"},
		{"c1a7b6f0-0001-4000-8000-000000000002", "Riverside Expo Center"},
		{"c1a7b6f0-0001-4000-8000-000000000003", "Old Town Library"},
	}
	for _, p := range places {
		if _, err := dbx.Exec(
			`INSERT IGNORE INTO places (id, name) VALUES (?, ?)`,
			p.id, p.name,
		); err != nil {
			return fmt.Errorf("seed place %s: %w", p.name, err)
		}
	}

	events := []seedEvent{
		{"e7e0d0a0-0002-4000-8000-000000000001", "Go Meetup: Outbox Patterns", places[0].id, 7},
		{"e7e0d0a0-0002-4000-8000-000000000002", "Spring Jazz Evening", places[1].id, 14},
		{"e7e0d0a0-0002-4000-8000-000000000003", "Open Lecture: Distributed Systems", places[2].id, 21},
	}
	for _, e := range events {
		eventTime := time.Now().AddDate(0, 0, e.daysAhead)
		deadline := eventTime.AddDate(0, 0, -1)
		if _, err := dbx.Exec(
			`INSERT IGNORE INTO events
			    (id, name, event_time, status, place_id, registration_deadline, changed_at)
			 VALUES (?, ?, ?, 'open', ?, ?, NOW())`,
			e.id, e.name, eventTime, e.placeID, deadline,
		); err != nil {
			return fmt.Errorf("seed event %s: %w", e.name, err)
		}
	}

	return nil
}

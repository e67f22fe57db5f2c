package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE presence_action AS ENUM ('join', 'leave'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS presence_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		display_name TEXT NOT NULL,
		action presence_action NOT NULL,
		speaking BOOLEAN NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		server_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_presence_events_user ON presence_events (user_id, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS daily_totals (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		display_name TEXT NOT NULL,
		day DATE NOT NULL,
		total_seconds BIGINT NOT NULL DEFAULT 0 CHECK (total_seconds >= 0),
		server_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, day)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_totals_day ON daily_totals (day)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

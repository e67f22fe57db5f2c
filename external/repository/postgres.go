package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thanwa/voicetally/internal/repository"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) InsertPresenceEvent(ctx context.Context, input repository.InsertPresenceEventInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO presence_events (user_id, display_name, action, speaking, occurred_at, server_name)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		input.UserID, input.DisplayName, string(input.Action), input.Speaking, input.OccurredAt, input.ServerName)
	return err
}

func (r *PostgresRepository) AddToDailyTotal(ctx context.Context, input repository.AddToDailyTotalInput) (*repository.DailyTotal, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO daily_totals (user_id, display_name, day, total_seconds, server_name)
		 VALUES ($1, $2, $3::date, $4, $5)
		 ON CONFLICT (user_id, day) DO UPDATE
		 SET total_seconds = daily_totals.total_seconds + EXCLUDED.total_seconds,
		     display_name  = EXCLUDED.display_name,
		     server_name   = EXCLUDED.server_name,
		     updated_at    = NOW()
		 RETURNING id, user_id, display_name, to_char(day, 'YYYY-MM-DD'), total_seconds, server_name, created_at, updated_at`,
		input.UserID, input.DisplayName, input.Day, input.AddSeconds, input.ServerName)
	return scanDailyTotal(row)
}

func (r *PostgresRepository) GetDailyTotal(ctx context.Context, userID, day string) (*repository.DailyTotal, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, display_name, to_char(day, 'YYYY-MM-DD'), total_seconds, server_name, created_at, updated_at
		 FROM daily_totals WHERE user_id = $1 AND day = $2::date`,
		userID, day)
	t, err := scanDailyTotal(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func scanDailyTotal(row pgx.Row) (*repository.DailyTotal, error) {
	var t repository.DailyTotal
	err := row.Scan(&t.ID, &t.UserID, &t.DisplayName, &t.Day, &t.TotalSeconds, &t.ServerName, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

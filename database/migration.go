package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "create_users_table",
		sql: `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			password_digest TEXT NOT NULL,
			picture_url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
	{
		name: "create_posts_table",
		sql: `
		CREATE TABLE IF NOT EXISTS posts (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
	{
		name: "index_posts_user_id",
		sql:  `CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts (user_id)`,
	},
}

// Migrate applies the schema statements in order. Every statement is
// idempotent, so re-running at each startup is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			log.Error().Err(err).Str("migration", m.name).Msg("migration failed")
			return err
		}
		log.Debug().Str("migration", m.name).Msg("migration applied")
	}
	return nil
}

package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repositories use. pgxmock satisfies it
// too, so repositories are testable without a live database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Pinger is the connectivity probe the readiness check uses.
type Pinger interface {
	Ping(ctx context.Context) error
}

// execBatch sends a queued batch and counts inserted vs. conflict-skipped
// rows. Unique-constraint conflicts are silent skips by construction: every
// bulk statement carries ON CONFLICT DO NOTHING.
func execBatch(ctx context.Context, db DB, batch *pgx.Batch, queued int) (int, int, error) {
	br := db.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for i := 0; i < queued; i++ {
		ct, err := br.Exec()
		if err != nil {
			return inserted, queued - inserted, err
		}
		inserted += int(ct.RowsAffected())
	}
	return inserted, queued - inserted, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeatCodeRepo persists the external-code table built for a show. The
// table is written once at scheduling time and only ever read after
// that, so the insert is idempotent.
type SeatCodeRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SeatCodeRepo) With(db DB) *SeatCodeRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SeatCodeRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// BatchInsert stores all code->seat pairs of a show. Pairs keep their
// build order via an ordinal column so a later load reconstructs the
// mapping exactly.
func (r *SeatCodeRepo) BatchInsert(ctx context.Context, showID int64, pairs [][2]string) error {
	const op = "postgres.SeatCodeRepo.BatchInsert"

	db := r.handle()

	batch := &pgx.Batch{}
	for i, p := range pairs {
		batch.Queue(
			`INSERT INTO seat_codes(show_id, ordinal, code, seat_id)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (show_id, code) DO NOTHING`,
			showID, i, p[0], p[1],
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// LoadByShow returns the show's code->seat pairs in build order.
func (r *SeatCodeRepo) LoadByShow(ctx context.Context, showID int64) ([][2]string, error) {
	const op = "postgres.SeatCodeRepo.LoadByShow"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT code, seat_id FROM seat_codes
		 WHERE show_id = $1
		 ORDER BY ordinal`,
		showID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var p [2]string
		if err := rows.Scan(&p[0], &p[1]); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

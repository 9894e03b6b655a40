package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/seatcore/internal/domain"
)

type ShowRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ShowRepo) With(db DB) *ShowRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ShowRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a show pinned to one layout version and returns its ID.
func (r *ShowRepo) Create(ctx context.Context, s *domain.Show) (int64, error) {
	const op = "postgres.ShowRepo.Create"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO shows(venue_id, layout_version, title, starts_at, ends_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		s.VenueID, s.LayoutVersion, s.Title, s.Starts, s.Ends,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

// Get retrieves a show by its ID. Returns repository.ErrNotFound if the
// show does not exist.
func (r *ShowRepo) Get(ctx context.Context, id int64) (*domain.Show, error) {
	const op = "postgres.ShowRepo.Get"

	db := r.handle()

	var s domain.Show
	err := db.QueryRow(ctx,
		`SELECT id, venue_id, layout_version, title, starts_at, ends_at
		 FROM shows WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.VenueID, &s.LayoutVersion, &s.Title, &s.Starts, &s.Ends)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &s, nil
}

// List lists upcoming shows ordered by start time.
func (r *ShowRepo) List(ctx context.Context, limit, offset int) ([]domain.Show, error) {
	const op = "postgres.ShowRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, venue_id, layout_version, title, starts_at, ends_at
		 FROM shows
		 ORDER BY starts_at
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Show
	for rows.Next() {
		var s domain.Show
		if err := rows.Scan(&s.ID, &s.VenueID, &s.LayoutVersion, &s.Title, &s.Starts, &s.Ends); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

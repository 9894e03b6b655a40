package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/repository"
)

// LayoutRepo persists compiled layout versions. Each version is stored
// as a single immutable jsonb document; only the "active" flag ever
// changes after insert.
type LayoutRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *LayoutRepo) With(db DB) *LayoutRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *LayoutRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// NextVersion returns the version number the next compile of this venue
// should carry. Run inside the same transaction as SaveVersion so two
// concurrent publishes cannot claim the same number.
func (r *LayoutRepo) NextVersion(ctx context.Context, venueID int64) (int, error) {
	const op = "postgres.LayoutRepo.NextVersion"

	db := r.handle()

	var v int
	err := db.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1
		 FROM venue_layouts WHERE venue_id = $1`,
		venueID,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return v, nil
}

// SaveVersion inserts a compiled layout as a new inactive version.
// Returns repository.ErrConflict if the version already exists.
func (r *LayoutRepo) SaveVersion(ctx context.Context, l *domain.VenueLayout) error {
	const op = "postgres.LayoutRepo.SaveVersion"

	db := r.handle()

	doc, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO venue_layouts(venue_id, version, active, doc)
		 VALUES ($1, $2, FALSE, $3)`,
		l.VenueID, l.Version, doc,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Activate flips the active flag to the given version. Callers run it
// inside a transaction together with SaveVersion so a publish is
// all-or-nothing.
func (r *LayoutRepo) Activate(ctx context.Context, venueID int64, version int) error {
	const op = "postgres.LayoutRepo.Activate"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`UPDATE venue_layouts SET active = FALSE
		 WHERE venue_id = $1 AND active`,
		venueID,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	tag, err := db.Exec(ctx,
		`UPDATE venue_layouts SET active = TRUE
		 WHERE venue_id = $1 AND version = $2`,
		venueID, version,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// GetActive returns the venue's currently active layout version.
func (r *LayoutRepo) GetActive(ctx context.Context, venueID int64) (*domain.VenueLayout, error) {
	const op = "postgres.LayoutRepo.GetActive"

	db := r.handle()

	var doc []byte
	err := db.QueryRow(ctx,
		`SELECT doc FROM venue_layouts
		 WHERE venue_id = $1 AND active`,
		venueID,
	).Scan(&doc)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return unmarshalLayout(op, doc)
}

// GetVersion returns one specific layout version, active or not. Shows
// pin a version at scheduling time and read it through here even after
// the venue moves on.
func (r *LayoutRepo) GetVersion(ctx context.Context, venueID int64, version int) (*domain.VenueLayout, error) {
	const op = "postgres.LayoutRepo.GetVersion"

	db := r.handle()

	var doc []byte
	err := db.QueryRow(ctx,
		`SELECT doc FROM venue_layouts
		 WHERE venue_id = $1 AND version = $2`,
		venueID, version,
	).Scan(&doc)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return unmarshalLayout(op, doc)
}

func unmarshalLayout(op string, doc []byte) (*domain.VenueLayout, error) {
	var l domain.VenueLayout
	if err := json.Unmarshal(doc, &l); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return &l, nil
}

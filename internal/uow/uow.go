package uow

import (
	"context"

	"github.com/kirinyoku/seatcore/internal/repository/postgres"
)

// AfterCommit runs once the surrounding transaction has committed.
// Hooks are for side effects that must not fire on rollback, such as
// seeding seat inventory for a freshly scheduled show.
type AfterCommit func(ctx context.Context)

// UoW runs a function inside one serializable transaction and fires
// the hooks it registered after a successful commit.
type UoW struct {
	store *postgres.Store
}

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{store: store}
}

func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, nil, func(ctx context.Context, tx postgres.DB) error {
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

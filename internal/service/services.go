package service

import (
	postgres "github.com/kirinyoku/seatcore/internal/repository/postgres"
	redis "github.com/kirinyoku/seatcore/internal/repository/redis"
	"github.com/kirinyoku/seatcore/internal/service/layouts"
	"github.com/kirinyoku/seatcore/internal/service/query"
	"github.com/kirinyoku/seatcore/internal/service/reservation"
	"github.com/kirinyoku/seatcore/internal/service/shows"
)

type Services struct {
	Layouts     *layouts.Service
	Shows       *shows.Service
	Reservation *reservation.Service
	Query       *query.Service
}

type Config struct {
	Reservation reservation.Config
	Query       query.Config
}

func NewServices(
	store *postgres.Store,
	res *redis.ReservationStore,
	cache *redis.Cache,
	pubsub *redis.SeatEventsPubSub,
	limiter *redis.SlidingWindowLimiter,
	cfg Config,
) *Services {
	ls := layouts.New(store)
	sh := shows.New(store, ls, res)

	return &Services{
		Layouts:     ls,
		Shows:       sh,
		Reservation: reservation.New(sh, res, cache, pubsub, limiter, cfg.Reservation),
		Query:       query.New(sh, res, cache, cfg.Query),
	}
}

package query

import (
	"errors"
)

var (
	ErrShowNotFound = errors.New("show not found")
	ErrSeatNotFound = errors.New("seat not found")
	ErrCodeUnknown  = errors.New("code not mapped")
	ErrNoSeatNearby = errors.New("no seat within radius")
)

package shows

import (
	"errors"
)

var (
	ErrShowNotFound = errors.New("show not found")
	ErrShowConflict = errors.New("show already exists")
)

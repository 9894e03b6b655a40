package layouts

import (
	"errors"
)

var (
	ErrLayoutNotFound  = errors.New("layout not found")
	ErrVersionConflict = errors.New("layout version already exists")
)

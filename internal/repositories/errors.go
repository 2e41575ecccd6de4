package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// IsNotFoundError reports whether err is a missing-record error from the
// database layer.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsConflictError reports whether err is a unique-constraint violation. The
// postgres driver translates driver errors, so join-code and membership
// collisions surface as gorm.ErrDuplicatedKey.
func IsConflictError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

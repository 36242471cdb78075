package policy

import (
	"errors"

	"github.com/google/uuid"
)

var ErrForbidden = errors.New("access denied")

// Ownable is implemented by every tenant-scoped model.
type Ownable interface {
	GetUserID() uuid.UUID
}

// Authorize returns ErrForbidden unless actor owns resource.
func Authorize(actor uuid.UUID, resource Ownable) error {
	if resource == nil || resource.GetUserID() != actor {
		return ErrForbidden
	}
	return nil
}

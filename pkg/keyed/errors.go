package keyed

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentity is returned when an item's identity is already in
	// the list.
	ErrDuplicateIdentity = errors.New("keyed: duplicate identity")

	// ErrUnknownIdentity is returned when a target or reference identity is
	// not in the list.
	ErrUnknownIdentity = errors.New("keyed: unknown identity")

	// ErrInvalidIdentity is returned for an empty identity.
	ErrInvalidIdentity = errors.New("keyed: invalid identity")

	// ErrRender is returned when the renderer fails or panics.
	ErrRender = errors.New("keyed: render failed")

	// ErrSurface is returned when the surface rejects a mutation.
	ErrSurface = errors.New("keyed: surface rejected mutation")
)

// IdentityError reports which operation failed on which identity.
type IdentityError struct {
	Op  Op
	ID  string
	Err error
}

func (e *IdentityError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.ID, e.Err)
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

func identityError(op Op, id string, err error) error {
	return &IdentityError{Op: op, ID: id, Err: err}
}

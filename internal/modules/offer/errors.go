package offer

import "errors"

var (
	// ErrNotFound - offer does not exist, or the target tailor does not
	// exist / is not a tailor.
	ErrNotFound = errors.New("offer not found")
	// ErrForbidden - actor is not a participant, or the action is reserved
	// for the other role.
	ErrForbidden = errors.New("action not permitted for this actor")
	// ErrConflict - mutation attempted on a terminal offer, a duplicate
	// half-accept, or a concurrent transition won the race.
	ErrConflict = errors.New("offer state does not permit this action")
	ErrValidation = errors.New("validation error")
)

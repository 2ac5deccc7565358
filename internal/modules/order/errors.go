package order

import "errors"

var (
	ErrNotFound         = errors.New("order not found")
	ErrForbidden        = errors.New("not a participant of this order")
	ErrNotFinalized     = errors.New("offer is not finalized")
	ErrAlreadyConverted = errors.New("offer already converted to an order")
)

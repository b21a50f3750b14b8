package referrer

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the capability the
	// operation requires (owner for configuration, referrer for collection).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidFeeRate is returned when a fee rate exceeds MaxFeeBps.
	ErrInvalidFeeRate = errors.New("invalid fee rate")

	// ErrArithmeticOverflow is returned when a fee or adjusted-amount
	// computation would exceed the representable range.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrReentrantCall is returned when a collection entry point is entered
	// while another collection is already executing.
	ErrReentrantCall = errors.New("reentrant call")
)

package orders

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNoExternalRef     = errors.New("order has no external reference")
)

package league

import "errors"

var (
	// ErrNotFound is returned when a referenced team, opponent or player does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")
)

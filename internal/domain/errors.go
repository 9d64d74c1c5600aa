package domain

import "errors"

var (
	ErrCardNotFound    = errors.New("card not found")
	ErrInvalidRating   = errors.New("invalid rating")
	ErrNoActiveSession = errors.New("no active study session")
)

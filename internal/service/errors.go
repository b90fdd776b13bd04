package service

import "errors"

var (
	// ErrInvalidPosition is returned for an empty or malformed position batch
	ErrInvalidPosition = errors.New("invalid position")
	// ErrUnknownErrorCode is returned for an unrecognised sensor error code
	ErrUnknownErrorCode = errors.New("unknown location error code")
	// ErrInvalidDate is returned when a date is not YYYY-MM-DD
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
)

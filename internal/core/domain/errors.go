package domain

import "errors"

var (
	ErrInvalidUserID    = errors.New("invalid user id")
	ErrUnresolvable     = errors.New("target reference could not be resolved")
	ErrDenied           = errors.New("action denied")
	ErrUsage            = errors.New("malformed command")
	ErrUnknownGroup     = errors.New("unknown group")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrPersistence      = errors.New("persistence failure")
	ErrLookupFailed     = errors.New("external lookup failed")
)

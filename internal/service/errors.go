package service

import "errors"

// Sentinel errors for service layer
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict error")
	ErrNotFound   = errors.New("not found")
	// ErrUIOnly is returned for actions that only a user interface can handle
	ErrUIOnly = errors.New("action handled by the user interface")
	// ErrNoModem is returned when no modem can place a USSD session
	ErrNoModem = errors.New("no modem available")
)

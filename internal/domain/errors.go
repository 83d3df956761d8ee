package domain

import "errors"

var (
	// ErrInsufficientHistory is returned when fewer than two samples are
	// available for a standard deviation.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrTransientNetwork marks a failed fetch or notification; the caller
	// skips the current cycle.
	ErrTransientNetwork = errors.New("transient network error")
	// ErrConfiguration marks an invalid or incomplete configuration.
	ErrConfiguration = errors.New("configuration error")
)

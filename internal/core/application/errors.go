package application

import "errors"

var (
	// ErrNilBundle ...
	ErrNilBundle = errors.New("bundle must not be nil")
	// ErrMiningNotStarted is returned when the mining coordinator could not
	// be started, ie. because the context is already done
	ErrMiningNotStarted = errors.New("mining coordinator not started")
)

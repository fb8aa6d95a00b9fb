package collector

import "errors"

// Sentinel errors returned by Deliver.
var (
	ErrRequest = errors.New("collector request failed")
	ErrStatus  = errors.New("collector rejected event")
)

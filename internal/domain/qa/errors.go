package qa

import "errors"

var (
	ErrEmptyQuestion = errors.New("question is required")
	// ErrUpstream indicates the provider answered with a non-2xx status or an unusable body.
	ErrUpstream = errors.New("qa provider error")
)

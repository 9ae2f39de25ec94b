package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrInvalidValue = errors.New("invalid value")
	ErrUpstream     = errors.New("upstream request failed")
	ErrClosed       = errors.New("closed")
)

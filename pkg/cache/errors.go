package cache

import "errors"

var (
	ErrNotFound         = errors.New("cache: entry not found")
	ErrClosed           = errors.New("cache: closed")
	ErrMarshal          = errors.New("cache: failed to marshal value")
	ErrUnmarshal        = errors.New("cache: failed to unmarshal value")
	ErrEmptyURL         = errors.New("cache: empty redis URL")
	ErrInvalidURL       = errors.New("cache: invalid redis URL")
	ErrConnectionFailed = errors.New("cache: failed to connect to redis")
)

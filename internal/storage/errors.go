package storage

import "errors"

var (
	ErrNotFound          = errors.New("storage: not found")
	ErrInvalidParent     = errors.New("storage: parent comment does not exist in thread")
	ErrUnsupportedDSN    = errors.New("storage: unsupported database dsn")
	ErrClosed            = errors.New("storage: store is closed")
	ErrConnectionFailed  = errors.New("storage: failed to open database connection")
	ErrHealthcheckFailed = errors.New("storage: healthcheck failed")
	ErrApplyMigrations   = errors.New("storage: failed to apply migrations")
)
